// Package irload reads declaration files into IR.
//
// A declaration file is a YAML document describing one source file:
//
//	package: demo.shapes
//	imports: [demo.util.*, "demo.geo.Point as P"]
//	declarations:
//	  - interface: Shape
//	    members:
//	      - fun: area
//	        returns: Double
//	  - class: Circle
//	    supertypes: [Shape]
//	    members:
//	      - constructor: primary
//	        params: ["val radius: Double"]
//	      - fun: area
//	        modifiers: override
//	        expression: radius.times(radius)
//
// Types, expressions, parameters and type parameters are written as
// strings in the usual source syntax. Files are loaded at PhaseRaw.
package irload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/ir"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/session"
	"github.com/funvibe/semcore/internal/symbols"
)

// SyntaxError carries every problem found in one file.
type SyntaxError struct {
	File        string
	Diagnostics []*diagnostics.DiagnosticError
}

func (e *SyntaxError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = d.Error()
	}
	return strings.Join(msgs, "\n")
}

// Parse builds the IR file described by data. name is used in positions.
func Parse(s *session.Session, name string, data []byte) (*ir.File, error) {
	var doc fileNode
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, &SyntaxError{File: name, Diagnostics: []*diagnostics.DiagnosticError{
			diagnostics.NewError(diagnostics.ErrP001, diagnostics.Position{File: name}, err.Error()),
		}}
	}

	ld := &loader{session: s, file: name}
	f := ld.buildFile(&doc)
	if len(ld.errors) > 0 {
		return nil, &SyntaxError{File: name, Diagnostics: ld.errors}
	}
	return f, nil
}

// LoadFile reads and parses one declaration file.
func LoadFile(s *session.Session, path string) (*ir.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(s, path, data)
}

// LoadFiles loads paths with at most workers files at a time. The result
// keeps the order of paths, with nil for the files that failed; the error
// joins the failures of every file.
func LoadFiles(ctx context.Context, s *session.Session, paths []string, workers int) ([]*ir.File, error) {
	files := make([]*ir.File, len(paths))
	errs := make([]error, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			files[i], errs[i] = LoadFile(s, path)
			if errs[i] == nil {
				s.Logger.Debug("loaded declaration file", "file", path, "declarations", len(files[i].Declarations))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, errors.Join(errs...)
}

// Document shape

type fileNode struct {
	Package      scalar     `yaml:"package"`
	Imports      []scalar   `yaml:"imports"`
	Annotations  []scalar   `yaml:"annotations"`
	Declarations []declNode `yaml:"declarations"`
}

// scalar is a string with the position of its YAML node.
type scalar struct {
	Value  string
	Line   int
	Column int
}

func (s *scalar) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a string", n.Line)
	}
	s.Value, s.Line, s.Column = n.Value, n.Line, n.Column
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		s.Column++
	}
	return nil
}

// declNode is a declaration. Exactly one of the keyword keys is set and
// names the declaration.
type declNode struct {
	Class       *scalar `yaml:"class"`
	Interface   *scalar `yaml:"interface"`
	Object      *scalar `yaml:"object"`
	Enum        *scalar `yaml:"enum"`
	Annotation  *scalar `yaml:"annotation"`
	TypeAlias   *scalar `yaml:"typealias"`
	Fun         *scalar `yaml:"fun"`
	Val         *scalar `yaml:"val"`
	Var         *scalar `yaml:"var"`
	Constructor *scalar `yaml:"constructor"` // primary or secondary

	Modifiers      *scalar       `yaml:"modifiers"`
	Annotations    []scalar      `yaml:"annotations"`
	TypeParameters []scalar      `yaml:"type_parameters"`
	Supertypes     []scalar      `yaml:"supertypes"`
	Members        []declNode    `yaml:"members"`
	Entries        []entryNode   `yaml:"entries"`
	Receiver       *scalar       `yaml:"receiver"`
	Params         []scalar      `yaml:"params"`
	Returns        *scalar       `yaml:"returns"`
	Type           *scalar       `yaml:"type"`
	Delegate       *scalar       `yaml:"delegate"`
	Initializer    *scalar       `yaml:"initializer"`
	Getter         *accessorNode `yaml:"getter"`
	Setter         *accessorNode `yaml:"setter"`
	Body           []stmtNode    `yaml:"body"`
	Expression     *scalar       `yaml:"expression"`
}

type accessorNode struct {
	Modifiers  *scalar    `yaml:"modifiers"`
	Param      *scalar    `yaml:"param"`
	Returns    *scalar    `yaml:"returns"`
	Body       []stmtNode `yaml:"body"`
	Expression *scalar    `yaml:"expression"`
}

// entryNode is an enum entry: a name, or a mapping with members.
type entryNode struct {
	Name        scalar     `yaml:"name"`
	Annotations []scalar   `yaml:"annotations"`
	Members     []declNode `yaml:"members"`
}

func (e *entryNode) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		return n.Decode(&e.Name)
	}
	type plain entryNode
	return n.Decode((*plain)(e))
}

// stmtNode is a statement string, or a local function declaration.
type stmtNode struct {
	text *scalar
	decl *declNode
}

func (s *stmtNode) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		s.text = new(scalar)
		return n.Decode(s.text)
	}
	s.decl = new(declNode)
	return n.Decode(s.decl)
}

// Building

type loader struct {
	session *session.Session
	file    string
	pkg     names.FqName
	errors  []*diagnostics.DiagnosticError
}

// container is the class members are declared in.
type container struct {
	id   names.ClassID
	sym  *ir.ClassSymbol
	kind descriptors.ClassKind
}

func (ld *loader) at(s scalar) diagnostics.Position {
	return diagnostics.Position{File: ld.file, Line: s.Line, Column: s.Column}
}

func (ld *loader) errorf(s scalar, format string, args ...any) {
	ld.errors = append(ld.errors, diagnostics.NewError(diagnostics.ErrP001, ld.at(s), fmt.Sprintf(format, args...)))
}

// parse runs fn over a parser of s and collects its errors.
func parse[T any](ld *loader, s scalar, fn func(*Parser) T) T {
	p := newParser(ld, ld.at(s), s.Value)
	out := fn(p)
	ld.errors = append(ld.errors, p.errors...)
	return out
}

func (ld *loader) typeRef(s *scalar) ir.TypeRef {
	if s == nil {
		return nil
	}
	return parse(ld, *s, (*Parser).ParseType)
}

func (ld *loader) expression(s *scalar) ir.Expression {
	if s == nil {
		return nil
	}
	return parse(ld, *s, (*Parser).ParseExpression)
}

func (ld *loader) buildFile(doc *fileNode) *ir.File {
	if doc.Package.Value != "" {
		ld.pkg = names.NewFqName(doc.Package.Value)
	}
	b := ir.FileBuilder{
		Source:        diagnostics.Position{File: ld.file, Line: 1, Column: 1},
		Session:       ld.session,
		Name:          ld.file,
		PackageFqName: ld.pkg,
		Annotations:   ld.annotations(doc.Annotations),
	}
	for _, imp := range doc.Imports {
		b.Imports = append(b.Imports, parse(ld, imp, (*Parser).ParseImport))
	}
	for i := range doc.Declarations {
		b.Declarations = append(b.Declarations, ld.declaration(&doc.Declarations[i], nil)...)
	}
	return b.Build()
}

func (ld *loader) annotations(list []scalar) []*ir.Annotation {
	var out []*ir.Annotation
	for _, a := range list {
		out = append(out, parse(ld, a, (*Parser).ParseAnnotation))
	}
	return out
}

func (ld *loader) modifiers(s *scalar) ir.ModifierSet {
	var mods ir.ModifierSet
	if s == nil {
		return mods
	}
	for _, word := range strings.Fields(s.Value) {
		m, ok := ir.ParseModifier(word)
		if !ok {
			ld.errorf(*s, "unknown modifier %q", word)
			continue
		}
		mods = mods.With(m)
	}
	return mods
}

// keyword returns the keyword key set on d and its name.
func (ld *loader) keyword(d *declNode) (string, *scalar) {
	keys := []struct {
		key string
		val *scalar
	}{
		{"class", d.Class}, {"interface", d.Interface}, {"object", d.Object},
		{"enum", d.Enum}, {"annotation", d.Annotation}, {"typealias", d.TypeAlias},
		{"fun", d.Fun}, {"val", d.Val}, {"var", d.Var}, {"constructor", d.Constructor},
	}
	var key string
	var name *scalar
	for _, k := range keys {
		if k.val == nil {
			continue
		}
		if name != nil {
			ld.errorf(*k.val, "declaration is both a %s and a %s", key, k.key)
			continue
		}
		key, name = k.key, k.val
	}
	return key, name
}

// declaration builds d as a top-level declaration or a member of owner.
// A primary constructor also yields the properties its parameters declare.
func (ld *loader) declaration(d *declNode, owner *container) []ir.Declaration {
	key, name := ld.keyword(d)
	switch key {
	case "":
		ld.errors = append(ld.errors, diagnostics.NewError(diagnostics.ErrP001, diagnostics.Position{File: ld.file},
			"declaration without a kind: expected one of class, interface, object, enum, annotation, typealias, fun, val, var or constructor"))
		return nil
	case "class", "interface", "object", "enum", "annotation":
		return []ir.Declaration{ld.class(key, *name, d, owner)}
	case "typealias":
		if owner != nil {
			ld.errorf(*name, "type alias %s must be declared at top level", name.Value)
			return nil
		}
		return []ir.Declaration{ld.typeAlias(*name, d)}
	case "fun":
		return []ir.Declaration{ld.function(*name, d, owner)}
	case "val", "var":
		return []ir.Declaration{ld.property(*name, key == "var", d, owner, false)}
	default:
		if owner == nil {
			ld.errorf(*name, "constructor outside a class")
			return nil
		}
		return ld.constructor(*name, d, owner)
	}
}

var classKinds = map[string]descriptors.ClassKind{
	"class":      descriptors.KindClass,
	"interface":  descriptors.KindInterface,
	"object":     descriptors.KindObject,
	"enum":       descriptors.KindEnumClass,
	"annotation": descriptors.KindAnnotationClass,
}

func (ld *loader) class(key string, name scalar, d *declNode, owner *container) *ir.RegularClass {
	id := names.TopLevelClassID(ld.pkg.Child(names.Name(name.Value)))
	if owner != nil {
		id = owner.id.Nested(names.Name(name.Value))
	}
	c := &container{
		id:   id,
		sym:  symbols.NewClassLike[ir.ClassLikeDeclaration](symbols.ClassKind, id),
		kind: classKinds[key],
	}
	if len(d.Entries) > 0 && c.kind != descriptors.KindEnumClass {
		ld.errorf(name, "only enum classes have entries")
	}

	b := ir.RegularClassBuilder{
		Source:         ld.at(name),
		Session:        ld.session,
		Symbol:         c.sym,
		ClassID:        id,
		Kind:           c.kind,
		Status:         ir.RawStatus(ld.modifiers(d.Modifiers)),
		TypeParameters: ld.typeParameters(id.String(), d.TypeParameters),
		Annotations:    ld.annotations(d.Annotations),
	}
	for i := range d.Supertypes {
		b.SuperTypeRefs = append(b.SuperTypeRefs, ld.typeRef(&d.Supertypes[i]))
	}
	for i := range d.Entries {
		b.Declarations = append(b.Declarations, ld.enumEntry(&d.Entries[i], c))
	}
	for i := range d.Members {
		b.Declarations = append(b.Declarations, ld.declaration(&d.Members[i], c)...)
	}
	return b.Build()
}

func (ld *loader) enumEntry(e *entryNode, enum *container) *ir.EnumEntry {
	name := names.Name(e.Name.Value)
	b := ir.EnumEntryBuilder{
		CallableBuilder: ir.CallableBuilder{
			Source:          ld.at(e.Name),
			Session:         ld.session,
			CallableID:      names.CallableID{Package: enum.id.Package, Class: enum.id.Relative, Callable: name},
			ContainingClass: enum.sym,
			Status:          ir.RawStatus(0),
			Annotations:     ld.annotations(e.Annotations),
		},
	}
	if len(e.Members) == 0 {
		return b.Build()
	}
	id := names.ClassID{Package: enum.id.Package, Relative: enum.id.Relative.Child(name), Local: true}
	body := &container{
		id:   id,
		sym:  symbols.NewClassLike[ir.ClassLikeDeclaration](symbols.AnonymousObjectKind, id),
		kind: descriptors.KindObject,
	}
	ob := ir.AnonymousObjectBuilder{Source: ld.at(e.Name), Session: ld.session, Symbol: body.sym, ClassID: id}
	for i := range e.Members {
		ob.Declarations = append(ob.Declarations, ld.declaration(&e.Members[i], body)...)
	}
	b.Initializer = ob.Build()
	return b.Build()
}

func (ld *loader) typeAlias(name scalar, d *declNode) *ir.TypeAlias {
	id := names.TopLevelClassID(ld.pkg.Child(names.Name(name.Value)))
	if d.Type == nil {
		ld.errorf(name, "type alias %s has no type", name.Value)
	}
	return ir.TypeAliasBuilder{
		Source:          ld.at(name),
		Session:         ld.session,
		ClassID:         id,
		Status:          ir.RawStatus(ld.modifiers(d.Modifiers)),
		TypeParameters:  ld.typeParameters(id.String(), d.TypeParameters),
		ExpandedTypeRef: ld.typeRef(d.Type),
		Annotations:     ld.annotations(d.Annotations),
	}.Build()
}

func (ld *loader) typeParameters(owner string, list []scalar) []*ir.TypeParameter {
	var out []*ir.TypeParameter
	for i, s := range list {
		h := parse(ld, s, (*Parser).ParseTypeParameter)
		b := ir.TypeParameterBuilder{
			Source:   ld.at(s),
			Session:  ld.session,
			Name:     h.name,
			Index:    i,
			Key:      ir.TypeParameterKey(owner, h.name),
			Variance: h.variance,
			Reified:  h.reified,
		}
		if h.bound != nil {
			b.Bounds = []ir.TypeRef{h.bound}
		}
		out = append(out, b.Build())
	}
	return out
}

func (ld *loader) callableID(name names.Name, owner *container) names.CallableID {
	if owner == nil {
		return names.CallableID{Package: ld.pkg, Callable: name}
	}
	return names.CallableID{Package: owner.id.Package, Class: owner.id.Relative, Callable: name}
}

func containingClass(owner *container) *ir.ClassSymbol {
	if owner == nil {
		return nil
	}
	return owner.sym
}

func (ld *loader) function(name scalar, d *declNode, owner *container) *ir.SimpleFunction {
	id := ld.callableID(names.Name(name.Value), owner)
	return ir.SimpleFunctionBuilder{
		CallableBuilder: ir.CallableBuilder{
			Source:          ld.at(name),
			Session:         ld.session,
			CallableID:      id,
			ContainingClass: containingClass(owner),
			Status:          ir.RawStatus(ld.modifiers(d.Modifiers)),
			TypeParameters:  ld.typeParameters(id.String(), d.TypeParameters),
			ReceiverTypeRef: ld.typeRef(d.Receiver),
			ReturnTypeRef:   ld.typeRef(d.Returns),
			Annotations:     ld.annotations(d.Annotations),
		},
		ValueParameters: ld.valueParameters(d.Params, false),
		Body:            ld.body(name, d.Body, d.Expression),
	}.Build()
}

func (ld *loader) valueParameters(list []scalar, primary bool) []*ir.ValueParameter {
	var out []*ir.ValueParameter
	for i, s := range list {
		h := parse(ld, s, (*Parser).ParseParameter)
		if h.property && !primary {
			ld.errorf(s, "val and var are allowed on primary constructor parameters only")
		}
		h.modifiers &^= ir.Modifiers(ir.ModPublic, ir.ModPrivate, ir.ModProtected, ir.ModInternal)
		out = append(out, ir.ValueParameterBuilder{
			Source:       h.pos,
			Session:      ld.session,
			Name:         h.name,
			Index:        i,
			TypeRef:      h.typ,
			DefaultValue: h.defaultValue,
			Modifiers:    h.modifiers,
		}.Build())
	}
	return out
}

// body builds a block body from statements, or the single return of an
// expression body. It returns nil when the declaration has no body.
func (ld *loader) body(at scalar, stmts []stmtNode, expr *scalar) *ir.Block {
	if expr != nil {
		if len(stmts) > 0 {
			ld.errorf(*expr, "a declaration has either a body or an expression")
		}
		e := ld.expression(expr)
		return ir.NewBlock(e.Pos(), ir.NewReturn(e.Pos(), e))
	}
	if stmts == nil {
		return nil
	}
	block := ir.NewBlock(ld.at(at))
	for _, s := range stmts {
		if s.text != nil {
			block.Statements = append(block.Statements, parse(ld, *s.text, (*Parser).ParseStatement))
			continue
		}
		key, name := ld.keyword(s.decl)
		switch key {
		case "fun":
			block.Statements = append(block.Statements, ld.function(*name, s.decl, nil))
		case "val", "var":
			block.Statements = append(block.Statements, ld.property(*name, key == "var", s.decl, nil, true))
		case "":
			ld.errorf(at, "local declaration without a kind")
		default:
			ld.errorf(*name, "local %s declarations are not supported", key)
		}
	}
	return block
}

func (ld *loader) property(name scalar, isVar bool, d *declNode, owner *container, local bool) *ir.Property {
	pname := names.Name(name.Value)
	id := ld.callableID(pname, owner)
	sym := symbols.NewCallable[ir.CallableDeclaration](symbols.PropertyKind, id)
	b := ir.PropertyBuilder{
		CallableBuilder: ir.CallableBuilder{
			Source:          ld.at(name),
			Session:         ld.session,
			Symbol:          sym,
			CallableID:      id,
			ContainingClass: containingClass(owner),
			Status:          ir.RawStatus(ld.modifiers(d.Modifiers)),
			TypeParameters:  ld.typeParameters(id.String(), d.TypeParameters),
			ReceiverTypeRef: ld.typeRef(d.Receiver),
			ReturnTypeRef:   ld.typeRef(d.Type),
			Annotations:     ld.annotations(d.Annotations),
		},
		IsVar:       isVar,
		IsLocal:     local,
		Initializer: ld.expression(d.Initializer),
	}
	if d.Getter != nil {
		b.Getter = ld.accessor(name, true, d.Getter, sym, owner)
	}
	if d.Setter != nil {
		if !isVar {
			ld.errorf(name, "a val cannot have a setter")
		}
		b.Setter = ld.accessor(name, false, d.Setter, sym, owner)
	}
	return b.Build()
}

func (ld *loader) accessor(name scalar, getter bool, a *accessorNode, prop *ir.CallableSymbol, owner *container) *ir.PropertyAccessor {
	id := ld.callableID(ir.AccessorName(names.Name(name.Value), getter), owner)
	b := ir.PropertyAccessorBuilder{
		CallableBuilder: ir.CallableBuilder{
			Source:          ld.at(name),
			Session:         ld.session,
			CallableID:      id,
			ContainingClass: containingClass(owner),
			Status:          ir.RawStatus(ld.modifiers(a.Modifiers)),
			ReturnTypeRef:   ld.typeRef(a.Returns),
		},
		IsGetter: getter,
		Property: prop,
		Body:     ld.body(name, a.Body, a.Expression),
	}
	if !getter {
		param := scalar{Value: "value", Line: name.Line, Column: name.Column}
		if a.Param != nil {
			param = *a.Param
		}
		b.ValueParameters = ld.valueParameters([]scalar{param}, false)
	}
	return b.Build()
}

// constructor builds a constructor of owner. Parameters of a primary
// constructor marked val or var also declare properties initialized from
// them.
func (ld *loader) constructor(name scalar, d *declNode, owner *container) []ir.Declaration {
	var primary bool
	switch name.Value {
	case "primary":
		primary = true
	case "secondary", "":
	default:
		ld.errorf(name, "constructor must be primary or secondary, got %q", name.Value)
	}
	b := ir.ConstructorBuilder{
		CallableBuilder: ir.CallableBuilder{
			Source:          ld.at(name),
			Session:         ld.session,
			ContainingClass: owner.sym,
			Status:          ir.RawStatus(ld.modifiers(d.Modifiers)),
			Annotations:     ld.annotations(d.Annotations),
		},
		Primary:         primary,
		ValueParameters: ld.valueParameters(d.Params, primary),
		Body:            ld.body(name, d.Body, nil),
	}
	if d.Delegate != nil {
		b.DelegatedCall = parse(ld, *d.Delegate, (*Parser).ParseDelegation)
	}
	out := []ir.Declaration{b.Build()}
	if !primary {
		return out
	}
	for _, s := range d.Params {
		// Errors of the parameter were reported when it was built.
		h := newParser(ld, ld.at(s), s.Value).ParseParameter()
		if !h.property {
			continue
		}
		id := ld.callableID(h.name, owner)
		out = append(out, ir.PropertyBuilder{
			CallableBuilder: ir.CallableBuilder{
				Source:          h.pos,
				Session:         ld.session,
				CallableID:      id,
				ContainingClass: owner.sym,
				Status:          ir.RawStatus(h.modifiers),
				ReturnTypeRef:   h.typ,
			},
			IsVar:       h.isVar,
			Initializer: ir.NewQualifiedAccess(h.pos, nil, h.name),
		}.Build())
	}
	return out
}
