package names

import "strings"

// ClassID identifies a class by its package and its dotted name relative to
// that package. Local classes are not reachable by lookup.
type ClassID struct {
	Package  FqName
	Relative FqName
	Local    bool
}

func NewClassID(pkg FqName, relative FqName, local bool) ClassID {
	return ClassID{Package: pkg, Relative: relative, Local: local}
}

// TopLevelClassID splits fq into package and a single class segment.
func TopLevelClassID(fq FqName) ClassID {
	return ClassID{Package: fq.Parent(), Relative: FqNameOf(fq.ShortName())}
}

// ParseClassID parses the "pkg/path/Outer.Inner" form produced by String.
func ParseClassID(s string) ClassID {
	local := strings.HasPrefix(s, ".")
	s = strings.TrimPrefix(s, ".")
	i := strings.LastIndexByte(s, '/')
	if i < 0 {
		return ClassID{Relative: NewFqName(s), Local: local}
	}
	pkg := strings.ReplaceAll(s[:i], "/", ".")
	return ClassID{Package: NewFqName(pkg), Relative: NewFqName(s[i+1:]), Local: local}
}

func (c ClassID) ShortName() Name {
	return c.Relative.ShortName()
}

func (c ClassID) IsNested() bool {
	return !c.Relative.Parent().IsRoot()
}

func (c ClassID) OuterClassID() (ClassID, bool) {
	if !c.IsNested() {
		return ClassID{}, false
	}
	return ClassID{Package: c.Package, Relative: c.Relative.Parent(), Local: c.Local}, true
}

func (c ClassID) Nested(n Name) ClassID {
	return ClassID{Package: c.Package, Relative: c.Relative.Child(n), Local: c.Local}
}

// OutermostClassID returns the top-level class enclosing c.
func (c ClassID) OutermostClassID() ClassID {
	segs := c.Relative.Segments()
	if len(segs) == 0 {
		return c
	}
	return ClassID{Package: c.Package, Relative: FqNameOf(segs[0]), Local: c.Local}
}

func (c ClassID) AsSingleFqName() FqName {
	if c.Package.IsRoot() {
		return c.Relative
	}
	return FqName{path: c.Package.path + "." + c.Relative.path}
}

func (c ClassID) String() string {
	var sb strings.Builder
	if c.Local {
		sb.WriteByte('.')
	}
	sb.WriteString(strings.ReplaceAll(c.Package.path, ".", "/"))
	sb.WriteByte('/')
	sb.WriteString(c.Relative.path)
	return sb.String()
}

// CallableID identifies a top-level or member callable by name.
type CallableID struct {
	Package  FqName
	Class    FqName // empty for top-level callables
	Callable Name
}

func (c CallableID) ClassID() (ClassID, bool) {
	if c.Class.IsRoot() {
		return ClassID{}, false
	}
	return ClassID{Package: c.Package, Relative: c.Class}, true
}

func (c CallableID) String() string {
	pkg := strings.ReplaceAll(c.Package.path, ".", "/")
	if c.Class.IsRoot() {
		return pkg + "/" + string(c.Callable)
	}
	return pkg + "/" + c.Class.path + "." + string(c.Callable)
}
