package field

// Column is a named sequence of values.
type Column struct {
	Name   string
	Values []float64
}

// Table is an ordered set of equal-length columns. Row i of every table
// produced by one Assemble call refers to the same grid point.
type Table struct {
	Name    string
	Columns []Column
}

// Rows returns the number of rows.
func (t Table) Rows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// Header returns the column names in order.
func (t Table) Header() []string {
	h := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		h[i] = c.Name
	}
	return h
}

// Column returns the named column.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}
