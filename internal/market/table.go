package market

// Table is an in-memory append-only sequence of observations.
// It is not safe for concurrent use; the monitor loop is the single writer.
type Table[T any] struct {
	rows []T
}

// NewTable returns an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{}
}

// Append adds rows at the end, preserving arrival order.
func (t *Table[T]) Append(rows ...T) {
	t.rows = append(t.rows, rows...)
}

// Rows returns the backing slice. Callers must not mutate it.
func (t *Table[T]) Rows() []T {
	return t.rows
}

// Len reports the number of accumulated rows.
func (t *Table[T]) Len() int {
	return len(t.rows)
}

// Tail returns the last n rows (all rows when n <= 0 or n >= Len).
func (t *Table[T]) Tail(n int) []T {
	if n <= 0 || n >= len(t.rows) {
		return t.rows
	}
	return t.rows[len(t.rows)-n:]
}

// Dataset bundles the three accumulation tables the monitor maintains.
type Dataset struct {
	Gold         *Table[GoldPrice]
	Indices      *Table[IndexQuote]
	ExchangeRate *Table[ExchangeRate]
}

// NewDataset returns a dataset with three empty tables.
func NewDataset() *Dataset {
	return &Dataset{
		Gold:         NewTable[GoldPrice](),
		Indices:      NewTable[IndexQuote](),
		ExchangeRate: NewTable[ExchangeRate](),
	}
}
