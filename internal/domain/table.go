package domain

// Table is a flat result with named columns. Every output adapter renders a
// Table the same way regardless of which fetch produced it.
type Table interface {
	Columns() []string
	Records() [][]string
}

var (
	_ Table = Sites(nil)
	_ Table = Variables(nil)
	_ Table = Observations(nil)
)
