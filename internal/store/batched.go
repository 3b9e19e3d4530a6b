package store

import "sync"

// BatchedStore buffers result inserts in memory using fake (negative) IDs.
// It implements DataStore so result writers can run without knowing whether
// they hit SQLite or an in-memory buffer.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
// SymbolsByName passes through to the underlying Store, which is safe for
// concurrent reads.
type BatchedStore struct {
	store *Store // for read passthrough
	mu    sync.Mutex

	Symbols     []Symbol
	Diagnostics []Diagnostic

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore backed by the given Store for read queries.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{
		store:      s,
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertSymbol(sym *Symbol) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	sym.ID = fakeID
	b.Symbols = append(b.Symbols, *sym)
	return fakeID, nil
}

func (b *BatchedStore) InsertDiagnostic(d *Diagnostic) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	d.ID = fakeID
	b.Diagnostics = append(b.Diagnostics, *d)
	return fakeID, nil
}

// SymbolsByName passes through to the underlying Store for cross-file lookups.
func (b *BatchedStore) SymbolsByName(name string) ([]*Symbol, error) {
	return b.store.SymbolsByName(name)
}

// SymbolsByFile returns the buffered symbols of a file. Symbols already in the
// database are not included: committing the batch replaces them.
func (b *BatchedStore) SymbolsByFile(fileID int64) ([]*Symbol, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*Symbol
	for i := range b.Symbols {
		if b.Symbols[i].FileID == fileID {
			out = append(out, &b.Symbols[i])
		}
	}
	return out, nil
}
