package symbols

import (
	"cmp"
	"slices"
	"sync"

	"github.com/funvibe/semcore/internal/names"
)

// Table indexes the class-like symbols of one module by ClassID. Lookups
// made before a class is registered get a forward reference which is
// handed to the declaration once it is collected.
type Table[D any] struct {
	mu       sync.RWMutex
	classes  map[names.ClassID]*ClassLikeSymbol[D]
	packages map[names.FqName][]names.Name
}

func NewTable[D any]() *Table[D] {
	return &Table[D]{
		classes:  make(map[names.ClassID]*ClassLikeSymbol[D]),
		packages: make(map[names.FqName][]names.Name),
	}
}

// Reference returns the symbol for id, creating an unbound one if needed.
func (t *Table[D]) Reference(kind Kind, id names.ClassID) *ClassLikeSymbol[D] {
	t.mu.RLock()
	s, ok := t.classes[id]
	t.mu.RUnlock()
	if ok {
		return s
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.classes[id]; ok {
		return s
	}
	s = NewClassLike[D](kind, id)
	t.classes[id] = s
	return s
}

// Define binds d to the symbol of id. It returns the existing owner and
// false if another declaration already holds that id.
func (t *Table[D]) Define(kind Kind, id names.ClassID, d D) (*ClassLikeSymbol[D], D, bool) {
	s := t.Reference(kind, id)
	if err := s.Bind(d); err != nil {
		return s, s.Owner(), false
	}
	if !id.IsNested() {
		t.mu.Lock()
		t.packages[id.Package] = append(t.packages[id.Package], id.ShortName())
		t.mu.Unlock()
	}
	var zero D
	return s, zero, true
}

// Add registers a symbol bound elsewhere, replacing an unbound forward
// reference to the same id. It returns the registered symbol and false if a
// bound symbol already holds the id.
func (t *Table[D]) Add(s *ClassLikeSymbol[D]) (*ClassLikeSymbol[D], bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.classes[s.ID]; ok && prev.IsBound() {
		return prev, false
	}
	t.classes[s.ID] = s
	if !s.ID.IsNested() {
		t.packages[s.ID.Package] = append(t.packages[s.ID.Package], s.ID.ShortName())
	}
	return s, true
}

// Lookup returns the bound symbol of id.
func (t *Table[D]) Lookup(id names.ClassID) (*ClassLikeSymbol[D], bool) {
	t.mu.RLock()
	s, ok := t.classes[id]
	t.mu.RUnlock()
	if !ok || !s.IsBound() {
		return nil, false
	}
	return s, true
}

// ClassNames returns the top-level class names defined in pkg, sorted.
func (t *Table[D]) ClassNames(pkg names.FqName) []names.Name {
	t.mu.RLock()
	out := slices.Clone(t.packages[pkg])
	t.mu.RUnlock()
	slices.SortFunc(out, func(a, b names.Name) int { return cmp.Compare(a, b) })
	return out
}

// Packages returns every package with at least one defined top-level class.
func (t *Table[D]) Packages() []names.FqName {
	t.mu.RLock()
	out := make([]names.FqName, 0, len(t.packages))
	for p := range t.packages {
		out = append(out, p)
	}
	t.mu.RUnlock()
	slices.SortFunc(out, func(a, b names.FqName) int { return cmp.Compare(a.String(), b.String()) })
	return out
}

// Unbound lists ids that were referenced but never defined.
func (t *Table[D]) Unbound() []names.ClassID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []names.ClassID
	for id, s := range t.classes {
		if !s.IsBound() {
			out = append(out, id)
		}
	}
	slices.SortFunc(out, func(a, b names.ClassID) int { return cmp.Compare(a.String(), b.String()) })
	return out
}
