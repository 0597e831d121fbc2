package export

// Column describes one table column. Width is the PDF cell width in
// millimetres; zero means an equal share of the page.
type Column struct {
	Header string
	Width  float64
}

// Table defines tabular export content. Rows are positional and must match
// the column count.
type Table struct {
	Title   string
	Columns []Column
	Rows    [][]string
}
