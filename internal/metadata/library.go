package metadata

import (
	"cmp"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/funvibe/semcore/internal/names"
)

// ClassData is the serialized form of one class together with where it was
// read from.
type ClassData struct {
	ID       names.ClassID
	Envelope *Envelope
	Source   string
}

// Finder locates serialized declarations. Libraries and stores implement it.
type Finder interface {
	FindClassData(id names.ClassID) (*ClassData, bool)
	PackageParts(fq names.FqName) []*Envelope
	ClassNames(fq names.FqName) []names.Name
	Packages() []names.FqName
}

// Library is an in-memory index of envelopes.
type Library struct {
	name string

	mu         sync.RWMutex
	classes    map[names.ClassID]*ClassData
	parts      map[names.FqName][]*Envelope
	classNames map[names.FqName][]names.Name
}

func NewLibrary(name string) *Library {
	return &Library{
		name:       name,
		classes:    make(map[names.ClassID]*ClassData),
		parts:      make(map[names.FqName][]*Envelope),
		classNames: make(map[names.FqName][]names.Name),
	}
}

// LoadLibrary reads every file in paths into a new library.
func LoadLibrary(name string, paths []string) (*Library, error) {
	lib := NewLibrary(name)
	for _, p := range paths {
		if err := lib.AddFile(p); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

func (l *Library) Name() string { return l.name }

// AddFile indexes the envelopes of one metadata file.
func (l *Library) AddFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	envs, err := ReadEnvelopes(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for _, env := range envs {
		l.Add(env, path)
	}
	return nil
}

// Add indexes env by the name it carries. A later class with the same id
// replaces the earlier one.
func (l *Library) Add(env *Envelope, source string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch env.Kind {
	case KindClass:
		id := names.ParseClassID(env.Name)
		if _, seen := l.classes[id]; !seen && !id.IsNested() {
			l.classNames[id.Package] = append(l.classNames[id.Package], id.ShortName())
		}
		l.classes[id] = &ClassData{ID: id, Envelope: env, Source: source}
		l.touch(id.Package)
	case KindPackage:
		fq := names.NewFqName(env.Name)
		l.parts[fq] = append(l.parts[fq], env)
		l.touch(fq)
	}
}

// touch records fq and its parents as known packages.
func (l *Library) touch(fq names.FqName) {
	for {
		if _, ok := l.parts[fq]; !ok {
			l.parts[fq] = nil
		}
		if fq.IsRoot() {
			return
		}
		fq = fq.Parent()
	}
}

func (l *Library) FindClassData(id names.ClassID) (*ClassData, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.classes[id]
	return d, ok
}

func (l *Library) PackageParts(fq names.FqName) []*Envelope {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.parts[fq])
}

func (l *Library) ClassNames(fq names.FqName) []names.Name {
	l.mu.RLock()
	out := slices.Clone(l.classNames[fq])
	l.mu.RUnlock()
	slices.Sort(out)
	return out
}

// Packages lists every package that has declarations or sub-packages.
func (l *Library) Packages() []names.FqName {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return sortedKeys(l.parts)
}

// Envelopes returns all indexed envelopes, classes first, in name order.
func (l *Library) Envelopes() []*Envelope {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var classes []*ClassData
	for _, d := range l.classes {
		classes = append(classes, d)
	}
	slices.SortFunc(classes, func(a, b *ClassData) int { return cmp.Compare(a.ID.String(), b.ID.String()) })
	var out []*Envelope
	for _, d := range classes {
		out = append(out, d.Envelope)
	}
	for _, fq := range sortedKeys(l.parts) {
		out = append(out, l.parts[fq]...)
	}
	return out
}

func sortedKeys[V any](m map[names.FqName]V) []names.FqName {
	keys := make([]names.FqName, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b names.FqName) int { return cmp.Compare(a.String(), b.String()) })
	return keys
}

// Chain searches several finders in order. The first finder that has a
// class wins; package parts and names are merged.
type Chain []Finder

func (c Chain) FindClassData(id names.ClassID) (*ClassData, bool) {
	for _, f := range c {
		if d, ok := f.FindClassData(id); ok {
			return d, true
		}
	}
	return nil, false
}

func (c Chain) PackageParts(fq names.FqName) []*Envelope {
	var out []*Envelope
	for _, f := range c {
		out = append(out, f.PackageParts(fq)...)
	}
	return out
}

func (c Chain) ClassNames(fq names.FqName) []names.Name {
	var out []names.Name
	for _, f := range c {
		out = append(out, f.ClassNames(fq)...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (c Chain) Packages() []names.FqName {
	seen := make(map[names.FqName]bool)
	for _, f := range c {
		for _, fq := range f.Packages() {
			seen[fq] = true
		}
	}
	return sortedKeys(seen)
}
