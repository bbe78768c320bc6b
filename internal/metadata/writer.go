package metadata

import (
	"github.com/funvibe/semcore/internal/names"
)

// TableBuilder interns strings and qualified names while records of one unit
// are built.
type TableBuilder struct {
	strings []string
	sindex  map[string]int32
	qnames  []QualifiedName
	qindex  map[QualifiedName]int32
}

func NewTableBuilder() *TableBuilder {
	return &TableBuilder{sindex: map[string]int32{}, qindex: map[QualifiedName]int32{}}
}

func (b *TableBuilder) String(s string) int32 {
	if i, ok := b.sindex[s]; ok {
		return i
	}
	i := int32(len(b.strings))
	b.strings = append(b.strings, s)
	b.sindex[s] = i
	return i
}

func (b *TableBuilder) Name(n names.Name) int32 {
	return b.String(string(n))
}

func (b *TableBuilder) qname(parent int32, short names.Name, kind QualifiedNameKind) int32 {
	q := QualifiedName{Parent: parent, ShortName: b.Name(short), Kind: kind}
	if i, ok := b.qindex[q]; ok {
		return i
	}
	i := int32(len(b.qnames))
	b.qnames = append(b.qnames, q)
	b.qindex[q] = i
	return i
}

// Package interns a package name. The root package is Absent.
func (b *TableBuilder) Package(fq names.FqName) int32 {
	parent := Absent
	for _, seg := range fq.Segments() {
		parent = b.qname(parent, seg, KindPackageName)
	}
	return parent
}

// Class interns a class id.
func (b *TableBuilder) Class(id names.ClassID) int32 {
	parent := b.Package(id.Package)
	kind := KindClassName
	if id.Local {
		kind = KindLocalName
	}
	for _, seg := range id.Relative.Segments() {
		parent = b.qname(parent, seg, kind)
	}
	return parent
}

// Tables returns the tables built so far.
func (b *TableBuilder) Tables() (*StringTable, *QualifiedNameTable) {
	st := &StringTable{Strings: append([]string(nil), b.strings...)}
	qt := &QualifiedNameTable{Names: append([]QualifiedName(nil), b.qnames...)}
	return st, qt
}

// ClassEnvelope wraps c, whose indices refer to b, at the current versions.
func ClassEnvelope(id names.ClassID, c *Class, b *TableBuilder) *Envelope {
	st, qt := b.Tables()
	return &Envelope{
		MetadataVersion: CurrentVersion,
		ABIVersion:      CurrentABI,
		Kind:            KindClass,
		Name:            id.String(),
		Strings:         st,
		QualifiedNames:  qt,
		Data:            c.Marshal(),
	}
}

// PackageEnvelope wraps p, whose indices refer to b, at the current
// versions.
func PackageEnvelope(fq names.FqName, p *Package, b *TableBuilder) *Envelope {
	st, qt := b.Tables()
	return &Envelope{
		MetadataVersion: CurrentVersion,
		ABIVersion:      CurrentABI,
		Kind:            KindPackage,
		Name:            fq.String(),
		Strings:         st,
		QualifiedNames:  qt,
		Data:            p.Marshal(),
	}
}
