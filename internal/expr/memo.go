package expr

// Memo caches per-node results keyed on the structural hash. Collisions are
// resolved with Equal, so structurally equal sub-trees share one entry even
// when they are distinct allocations.
type Memo struct {
	m map[uint64][]memoEntry
}

type memoEntry struct {
	key Expr
	val Expr
}

// NewMemo returns an empty cache.
func NewMemo() *Memo {
	return &Memo{m: make(map[uint64][]memoEntry)}
}

// Get returns the cached value for k.
func (m *Memo) Get(k Expr) (Expr, bool) {
	for _, e := range m.m[k.Hash()] {
		if Equal(e.key, k) {
			return e.val, true
		}
	}
	return nil, false
}

// Put stores v for k.
func (m *Memo) Put(k, v Expr) {
	h := k.Hash()
	for i, e := range m.m[h] {
		if Equal(e.key, k) {
			m.m[h][i].val = v
			return
		}
	}
	m.m[h] = append(m.m[h], memoEntry{key: k, val: v})
}

// Len returns the number of cached entries.
func (m *Memo) Len() int {
	n := 0
	for _, es := range m.m {
		n += len(es)
	}
	return n
}
