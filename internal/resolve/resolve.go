// Package resolve moves the source declarations of one module through the
// resolution phases and exposes them as descriptors, so that source classes
// and deserialized classes look the same to member scopes, the override
// engine and other modules.
//
// Phases run in order over all files of the module: collect, supertypes,
// status, types, bodies and checks. Supertypes are resolved sequentially
// since cycle detection walks across files; the other phases run one file
// per worker.
package resolve

import (
	"fmt"
	"sync"

	"github.com/funvibe/semcore/internal/config"
	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/ir"
	"github.com/funvibe/semcore/internal/lazy"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/session"
	"github.com/funvibe/semcore/internal/symbols"
	"github.com/funvibe/semcore/internal/typesystem"
)

// Session resolves the files of one module.
type Session struct {
	*session.Session
	Module  descriptors.ModuleDescriptor
	Files   []*ir.File
	Workers int

	classes   *symbols.Table[ir.ClassLikeDeclaration]
	lexicals  map[ir.Declaration]*lexical
	packages  map[names.FqName]*packageMembers
	collected bool

	// pending holds callables whose type is inferred from their body.
	pending    sync.Map
	recursions sync.Map

	aliases   *lazy.Func[*ir.TypeAlias, typesystem.Type]
	bodies    *lazy.Func[ir.CallableDeclaration, typesystem.Type]
	descs     *lazy.Func[*ir.RegularClass, *SourceClass]
	members   *lazy.Func[ir.CallableDeclaration, descriptors.CallableMemberDescriptor]
	fragments *lazy.Func[names.FqName, *PackageFragment]
}

type Option func(*Session)

// WithWorkers bounds the number of files resolved concurrently.
func WithWorkers(n int) Option {
	return func(rs *Session) {
		if n > 0 {
			rs.Workers = n
		}
	}
}

// NewSession prepares the resolution of files as the content of module.
func NewSession(s *session.Session, module descriptors.ModuleDescriptor, files []*ir.File, opts ...Option) *Session {
	rs := &Session{
		Session:  s,
		Module:   module,
		Files:    files,
		Workers:  config.DefaultWorkers,
		classes:  symbols.NewTable[ir.ClassLikeDeclaration](),
		lexicals: make(map[ir.Declaration]*lexical),
		packages: make(map[names.FqName]*packageMembers),
	}
	for _, opt := range opts {
		opt(rs)
	}
	label := module.Name().String()
	rs.aliases = lazy.NewFunc(s.Storage, rs.expandAlias).Named(label + " type alias expansions")
	rs.bodies = lazy.NewFunc(s.Storage, rs.resolveBody).Named(label + " bodies")
	rs.descs = lazy.NewFunc(s.Storage, rs.newSourceClass).Named(label + " source classes")
	rs.members = lazy.NewFunc(s.Storage, rs.newMemberDescriptor).Named(label + " source members")
	rs.fragments = lazy.NewFunc(s.Storage, rs.newPackageFragment).Named(label + " source packages")
	return rs
}

// lexical is where a declaration is written: its file and the classes
// around it, outermost first.
type lexical struct {
	file    *ir.File
	classes []ir.Class
}

func (l *lexical) enter(c ir.Class) *lexical {
	classes := make([]ir.Class, len(l.classes), len(l.classes)+1)
	copy(classes, l.classes)
	return &lexical{file: l.file, classes: append(classes, c)}
}

// owner returns the innermost enclosing class, or nil at top level.
func (l *lexical) owner() ir.Class {
	if len(l.classes) == 0 {
		return nil
	}
	return l.classes[len(l.classes)-1]
}

// packageMembers indexes the top-level callables of one package.
type packageMembers struct {
	functions  map[names.Name][]*ir.SimpleFunction
	properties map[names.Name][]*ir.Property
}

func (rs *Session) packageOf(fq names.FqName) *packageMembers {
	pm, ok := rs.packages[fq]
	if !ok {
		pm = &packageMembers{
			functions:  make(map[names.Name][]*ir.SimpleFunction),
			properties: make(map[names.Name][]*ir.Property),
		}
		rs.packages[fq] = pm
	}
	return pm
}

// Collect registers every class, alias and top-level callable of the files
// and moves all declarations to PhaseDeclarations. It must run before the
// module content is queried.
func (rs *Session) Collect() {
	diagnostics.Assert(!rs.collected, "declarations of %s were already collected", rs.Module.Name())
	rs.collected = true
	for _, f := range rs.Files {
		for fq := f.PackageFqName; ; fq = fq.Parent() {
			rs.packageOf(fq)
			if fq.IsRoot() {
				break
			}
		}
		lex := &lexical{file: f}
		for _, d := range f.Declarations {
			rs.collect(d, lex, true)
		}
		advance(f, ir.PhaseDeclarations)
	}
	rs.Logger.Debug("declarations collected", "module", rs.Module.Name().String(), "files", len(rs.Files))
}

func (rs *Session) collect(d ir.Declaration, lex *lexical, topLevel bool) {
	rs.lexicals[d] = lex
	switch d := d.(type) {
	case *ir.RegularClass:
		rs.register(d)
		inner := lex.enter(d)
		for _, m := range d.Declarations() {
			rs.collect(m, inner, false)
		}
	case *ir.TypeAlias:
		rs.register(d)
	case *ir.SimpleFunction:
		if topLevel {
			pm := rs.packageOf(lex.file.PackageFqName)
			pm.functions[d.Name()] = append(pm.functions[d.Name()], d)
		}
	case *ir.Property:
		if topLevel {
			pm := rs.packageOf(lex.file.PackageFqName)
			pm.properties[d.Name()] = append(pm.properties[d.Name()], d)
		}
	case *ir.EnumEntry:
		if obj := d.Initializer(); obj != nil {
			rs.lexicals[obj] = lex
			inner := lex.enter(obj)
			for _, m := range obj.Declarations() {
				rs.collect(m, inner, false)
			}
		}
	}
}

func (rs *Session) register(d ir.ClassLikeDeclaration) {
	prev, ok := rs.classes.Add(d.Symbol())
	if ok {
		return
	}
	rs.Report(diagnostics.NewError(diagnostics.ErrR001, d.Pos(),
		fmt.Sprintf("redeclaration: %s is already declared at %s", d.Symbol().ID, prev.Owner().Pos())))
}

// lexicalOf returns the context d was collected in.
func (rs *Session) lexicalOf(d ir.Declaration) *lexical {
	lex, ok := rs.lexicals[d]
	diagnostics.Assert(ok, "%T at %s was not collected", d, d.Pos())
	return lex
}

// Class returns the source class of id, if the module declares one.
func (rs *Session) Class(id names.ClassID) (ir.ClassLikeDeclaration, bool) {
	s, ok := rs.classes.Lookup(id)
	if !ok {
		return nil, false
	}
	return s.Owner(), true
}

// Packages lists the packages with source declarations, parents included.
func (rs *Session) Packages() []names.FqName {
	out := make([]names.FqName, 0, len(rs.packages))
	for fq := range rs.packages {
		out = append(out, fq)
	}
	sortFqNames(out)
	return out
}

// advance moves root and every declaration below it to p.
func advance(root ir.Element, p ir.ResolvePhase) {
	ir.Inspect(root, func(e ir.Element) bool {
		if d, ok := e.(ir.Declaration); ok {
			d.ReplaceResolvePhase(p)
		}
		return true
	})
}
