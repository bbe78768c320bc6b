package metadata

import (
	"slices"

	"github.com/funvibe/semcore/internal/names"
)

// NameResolver maps string and qualified name indices of one unit to names.
type NameResolver struct {
	strings *StringTable
	qnames  *QualifiedNameTable
}

func NewNameResolver(strings *StringTable, qnames *QualifiedNameTable) *NameResolver {
	return &NameResolver{strings: strings, qnames: qnames}
}

func (r *NameResolver) String(i int32) (string, error) {
	if i < 0 || int(i) >= len(r.strings.Strings) {
		return "", malformed("string index %d out of range", i)
	}
	return r.strings.Strings[i], nil
}

func (r *NameResolver) Name(i int32) (names.Name, error) {
	s, err := r.String(i)
	return names.Name(s), err
}

// ClassID resolves a qualified name index to a class id. Package segments
// form the package name, class segments the relative name; a local segment
// marks the id local.
func (r *NameResolver) ClassID(i int32) (names.ClassID, error) {
	pkg, rel, local, err := r.traverse(i)
	if err != nil {
		return names.ClassID{}, err
	}
	if len(rel) == 0 {
		return names.ClassID{}, malformed("qualified name %d is a package, not a class", i)
	}
	return names.NewClassID(names.FqNameOf(pkg...), names.FqNameOf(rel...), local), nil
}

// FqName resolves a qualified name index to a dotted name, ignoring the
// package and class distinction.
func (r *NameResolver) FqName(i int32) (names.FqName, error) {
	pkg, rel, _, err := r.traverse(i)
	if err != nil {
		return names.FqName{}, err
	}
	return names.FqNameOf(append(pkg, rel...)...), nil
}

func (r *NameResolver) traverse(i int32) (pkg, rel []names.Name, local bool, err error) {
	for steps := 0; i != Absent; steps++ {
		if i < 0 || int(i) >= len(r.qnames.Names) {
			return nil, nil, false, malformed("qualified name index %d out of range", i)
		}
		if steps > len(r.qnames.Names) {
			return nil, nil, false, malformed("qualified name %d has a parent cycle", i)
		}
		q := r.qnames.Names[i]
		short, err := r.Name(q.ShortName)
		if err != nil {
			return nil, nil, false, err
		}
		switch q.Kind {
		case KindClassName:
			rel = append(rel, short)
		case KindLocalName:
			rel = append(rel, short)
			local = true
		default:
			pkg = append(pkg, short)
		}
		i = q.Parent
	}
	slices.Reverse(pkg)
	slices.Reverse(rel)
	return pkg, rel, local, nil
}
