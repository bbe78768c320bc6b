// Package names holds identifiers used across the symbol graph: simple
// names, dotted package names, and class and callable ids.
package names

import (
	"strings"
)

// Name is a simple identifier. Special names are enclosed in angle brackets
// and can never be written in source.
type Name string

const (
	NoName            Name = "<no name provided>"
	Init              Name = "<init>"
	Anonymous         Name = "<anonymous>"
	Root              Name = "<root>"
	DefaultCompanion  Name = "Companion"
	ThisName          Name = "<this>"
	ErrorName         Name = "<error>"
	RecursionDetected Name = "<recursion detected>"
)

func Special(s string) Name {
	return Name("<" + s + ">")
}

func (n Name) IsSpecial() bool {
	return strings.HasPrefix(string(n), "<")
}

func (n Name) String() string {
	return string(n)
}

// FqName is a dot-separated fully qualified name. The zero value is the root
// package.
type FqName struct {
	path string
}

var RootFqName = FqName{}

func NewFqName(s string) FqName {
	return FqName{path: strings.Trim(s, ".")}
}

func FqNameOf(segments ...Name) FqName {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, string(s))
	}
	return FqName{path: strings.Join(parts, ".")}
}

func (f FqName) IsRoot() bool {
	return f.path == ""
}

func (f FqName) String() string {
	return f.path
}

func (f FqName) Child(n Name) FqName {
	if f.path == "" {
		return FqName{path: string(n)}
	}
	return FqName{path: f.path + "." + string(n)}
}

func (f FqName) Parent() FqName {
	i := strings.LastIndexByte(f.path, '.')
	if i < 0 {
		return RootFqName
	}
	return FqName{path: f.path[:i]}
}

func (f FqName) ShortName() Name {
	if f.path == "" {
		return Root
	}
	i := strings.LastIndexByte(f.path, '.')
	return Name(f.path[i+1:])
}

func (f FqName) Segments() []Name {
	if f.path == "" {
		return nil
	}
	parts := strings.Split(f.path, ".")
	out := make([]Name, len(parts))
	for i, p := range parts {
		out[i] = Name(p)
	}
	return out
}

// StartsWith reports whether prefix is a segment-wise prefix of f.
func (f FqName) StartsWith(prefix FqName) bool {
	if prefix.path == "" {
		return true
	}
	return f.path == prefix.path || strings.HasPrefix(f.path, prefix.path+".")
}
