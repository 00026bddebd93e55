package txstore

// ParseStats counts what the parser read, kept, and discarded.
type ParseStats struct {
	LinesRead         int64
	BlankLines        int64
	TransactionsKept  int64
	EmptyDropped      int64
	MalformedTokens   int64
	NonPositiveTokens int64
	DuplicateItems    int64
}

// Store is the read-only transaction corpus.
type Store struct {
	txs   []Transaction
	stats ParseStats
}

// NewStore wraps already-built transactions. Transaction IDs are
// reassigned to their position.
func NewStore(txs []Transaction) *Store {
	owned := make([]Transaction, len(txs))
	copy(owned, txs)
	for i := range owned {
		owned[i].ID = int32(i)
	}
	return &Store{
		txs:   owned,
		stats: ParseStats{TransactionsKept: int64(len(owned))},
	}
}

// Len returns the number of transactions.
func (s *Store) Len() int {
	return len(s.txs)
}

// At returns the transaction with the given ID. The returned value must
// not be modified.
func (s *Store) At(id int32) *Transaction {
	return &s.txs[id]
}

// Transactions returns the backing slice. Callers must treat it as
// read-only.
func (s *Store) Transactions() []Transaction {
	return s.txs
}

// Stats returns the parse statistics.
func (s *Store) Stats() ParseStats {
	return s.stats
}

// TotalUtility returns the sum of TU over all transactions.
func (s *Store) TotalUtility() float64 {
	var sum float64
	for i := range s.txs {
		sum += s.txs[i].TU
	}
	return sum
}
