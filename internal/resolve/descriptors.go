package resolve

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/ir"
	"github.com/funvibe/semcore/internal/lazy"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/override"
	"github.com/funvibe/semcore/internal/scopes"
	"github.com/funvibe/semcore/internal/typesystem"
)

// SourceClass is the descriptor of a class declared in the module sources.
// It answers from the IR, which must have passed the phase each query
// needs: supertypes for the type constructor, status for flags and types
// for members.
type SourceClass struct {
	rs         *Session
	decl       *ir.RegularClass
	container  descriptors.DeclarationDescriptor
	typeParams []descriptors.TypeParameterDescriptor

	constructor  *descriptors.ClassTypeConstructor
	constructors *lazy.Value[[]descriptors.ConstructorDescriptor]
	sealed       *lazy.Value[[]descriptors.ClassDescriptor]
	enumEntries  *lazy.Func[names.Name, descriptors.ClassDescriptor]
	scope        *scopes.ClassMemberScope
}

func (rs *Session) newSourceClass(c *ir.RegularClass) (*SourceClass, error) {
	sc := &SourceClass{rs: rs, decl: c}
	lex := rs.lexicalOf(c)
	if outer, ok := lex.owner().(*ir.RegularClass); ok {
		sc.container = rs.SourceClass(outer)
	} else {
		sc.container = rs.fragment(lex.file.PackageFqName)
	}
	sc.typeParams = rs.typeParameters(sc, c.TypeParameters())

	label := c.Symbol().ID.String()
	s := rs.Storage
	sc.constructor = descriptors.NewClassTypeConstructor(sc, sc.typeParams, func() []typesystem.Type {
		return supertypesOf(c)
	})
	sc.constructors = lazy.NewValue(s, sc.computeConstructors).Named(label + " constructors")
	sc.sealed = lazy.NewValue(s, sc.computeSealedSubclasses).Named(label + " sealed subclasses")
	sc.enumEntries = lazy.NewFunc(s, sc.computeEnumEntry).Named(label + " enum entries")
	sc.scope = scopes.NewClassMemberScope(s, sc, &declaredScope{rs: rs, decls: c.Declarations()}, rs.scopeOptions())
	return sc, nil
}

// SourceClass returns the descriptor of a source class, created once.
func (rs *Session) SourceClass(c *ir.RegularClass) *SourceClass {
	sc, err := rs.descs.Get(c)
	if err != nil {
		diagnostics.Invariantf("descriptor of %s: %v", c.Symbol().ID, err)
	}
	return sc
}

func (rs *Session) scopeOptions() scopes.Options {
	return scopes.Options{
		Policy:   override.PolicyFor(rs.Strict),
		Reporter: rs.Reporter,
		Metrics:  rs.Metrics,
		Logger:   rs.Logger,
	}
}

// typeParameters creates descriptors for params. Bounds are read on first
// use, after the types phase.
func (rs *Session) typeParameters(owner descriptors.DeclarationDescriptor, params []*ir.TypeParameter) []descriptors.TypeParameterDescriptor {
	out := make([]descriptors.TypeParameterDescriptor, len(params))
	for i, p := range params {
		out[i] = descriptors.NewTypeParameter(owner, p.Name(), p.Index(), p.Key(), p.Variance(), p.IsReified(), func() []typesystem.Type {
			ir.RequirePhase(p, ir.PhaseTypes)
			var bounds []typesystem.Type
			for _, b := range p.Bounds() {
				if t, ok := ir.ConeType(b); ok && !typesystem.IsError(t) {
					bounds = append(bounds, t)
				}
			}
			return bounds
		})
	}
	return out
}

func (sc *SourceClass) Name() names.Name                                         { return sc.decl.Name() }
func (sc *SourceClass) ContainingDeclaration() descriptors.DeclarationDescriptor { return sc.container }
func (sc *SourceClass) ClassID() names.ClassID                                   { return sc.decl.Symbol().ID }
func (sc *SourceClass) Kind() descriptors.ClassKind                              { return sc.decl.ClassKind() }
func (sc *SourceClass) Modality() descriptors.Modality                           { return sc.decl.Status().Modality }
func (sc *SourceClass) Visibility() descriptors.Visibility                       { return sc.decl.Status().Visibility }
func (sc *SourceClass) IsInner() bool                                            { return sc.has(ir.ModInner) }
func (sc *SourceClass) IsData() bool                                             { return sc.has(ir.ModData) }
func (sc *SourceClass) IsCompanionObject() bool                                  { return sc.decl.IsCompanion() }
func (sc *SourceClass) IsExpect() bool                                           { return sc.has(ir.ModExpect) }
func (sc *SourceClass) IsInline() bool                                           { return sc.has(ir.ModInline) }
func (sc *SourceClass) IsFun() bool                                              { return sc.has(ir.ModFun) }
func (sc *SourceClass) Module() descriptors.ModuleDescriptor                     { return sc.rs.Module }
func (sc *SourceClass) TypeConstructor() descriptors.TypeConstructor             { return sc.constructor }
func (sc *SourceClass) UnsubstitutedMemberScope() descriptors.MemberScope        { return sc.scope }
func (sc *SourceClass) SourcePosition() diagnostics.Position                     { return sc.decl.Pos() }
func (sc *SourceClass) HasOverrideModifier() bool                                { return false }

func (sc *SourceClass) DeclaredTypeParameters() []descriptors.TypeParameterDescriptor {
	return sc.typeParams
}

// Declaration returns the IR the descriptor was built from.
func (sc *SourceClass) Declaration() *ir.RegularClass { return sc.decl }

func (sc *SourceClass) has(m ir.Modifier) bool {
	ir.RequirePhase(sc.decl, ir.PhaseStatus)
	return sc.decl.Status().Modifiers.Has(m)
}

func (sc *SourceClass) DefaultType() typesystem.Type {
	return descriptors.DefaultClassType(sc.ClassID(), sc.typeParams)
}

// computeConstructors returns the declared constructors. A class without
// any gets a public primary constructor without parameters.
func (sc *SourceClass) computeConstructors() ([]descriptors.ConstructorDescriptor, error) {
	var out []descriptors.ConstructorDescriptor
	for _, m := range sc.decl.Declarations() {
		if c, ok := m.(*ir.Constructor); ok {
			ir.RequirePhase(c, ir.PhaseTypes)
			ctor := &sourceConstructor{
				ConstructorImpl: &descriptors.ConstructorImpl{Class: sc, Primary: c.IsPrimary(), Vis: c.Status().Visibility, Pos: c.Pos()},
				decl:            c,
			}
			ctor.Params = valueParameterDescriptors(ctor.ConstructorImpl, c.ValueParameters())
			out = append(out, ctor)
		}
	}
	if len(out) > 0 {
		return out, nil
	}
	switch sc.Kind() {
	case descriptors.KindInterface, descriptors.KindObject, descriptors.KindEnumEntry:
		return nil, nil
	}
	return []descriptors.ConstructorDescriptor{&sourceConstructor{
		ConstructorImpl: &descriptors.ConstructorImpl{Class: sc, Primary: true, Vis: descriptors.Public, Pos: sc.decl.Pos()},
	}}, nil
}

func (sc *SourceClass) Constructors() []descriptors.ConstructorDescriptor {
	ctors, err := sc.constructors.Get()
	if err != nil {
		sc.rs.Logger.Debug("constructors unavailable", "class", sc.ClassID().String(), "error", err)
		return nil
	}
	return ctors
}

func (sc *SourceClass) UnsubstitutedPrimaryConstructor() descriptors.ConstructorDescriptor {
	for _, ctor := range sc.Constructors() {
		if ctor.IsPrimary() {
			return ctor
		}
	}
	return nil
}

func (sc *SourceClass) CompanionObjectDescriptor() descriptors.ClassDescriptor {
	comp := sc.decl.Companion()
	if comp == nil {
		return nil
	}
	return sc.rs.SourceClass(comp)
}

func (sc *SourceClass) FindNestedClass(name names.Name) descriptors.ClassDescriptor {
	d, ok := sc.rs.Class(sc.ClassID().Nested(name))
	if !ok {
		return nil
	}
	if c, ok := d.(*ir.RegularClass); ok {
		return sc.rs.SourceClass(c)
	}
	return nil
}

// computeSealedSubclasses collects the source classes of the module that
// list the class as a direct supertype.
func (sc *SourceClass) computeSealedSubclasses() ([]descriptors.ClassDescriptor, error) {
	if sc.Modality() != descriptors.Sealed {
		return nil, nil
	}
	id := sc.ClassID()
	var out []descriptors.ClassDescriptor
	for _, f := range sc.rs.Files {
		ir.Inspect(f, func(e ir.Element) bool {
			switch c := e.(type) {
			case ir.Expression:
				return false
			case *ir.RegularClass:
				for _, st := range supertypesOf(c) {
					if sid, ok := typesystem.ClassIDOf(st); ok && sid == id {
						out = append(out, sc.rs.SourceClass(c))
						break
					}
				}
			}
			return true
		})
	}
	slices.SortFunc(out, func(a, b descriptors.ClassDescriptor) int {
		return cmp.Compare(a.ClassID().String(), b.ClassID().String())
	})
	return out, nil
}

func (sc *SourceClass) SealedSubclasses() []descriptors.ClassDescriptor {
	out, err := sc.sealed.Get()
	if err != nil {
		return nil
	}
	return out
}

func (sc *SourceClass) computeEnumEntry(name names.Name) (descriptors.ClassDescriptor, error) {
	if sc.Kind() != descriptors.KindEnumClass {
		return nil, nil
	}
	for _, m := range sc.decl.Declarations() {
		e, ok := m.(*ir.EnumEntry)
		if !ok || e.Name() != name {
			continue
		}
		entry := &descriptors.ClassImpl{
			ID:        sc.ClassID().Nested(name),
			Container: sc,
			InModule:  sc.rs.Module,
			ClassKind: descriptors.KindEnumEntry,
			Mod:       descriptors.Final,
			Vis:       descriptors.Public,
			Supers:    []typesystem.Type{sc.DefaultType()},
		}
		entry.Scope = scopes.NewClassMemberScope(sc.rs.Storage, entry, descriptors.EmptyScope, sc.rs.scopeOptions())
		return entry, nil
	}
	return nil, nil
}

// FindEnumEntry returns the descriptor of an enum entry declared in the
// class.
func (sc *SourceClass) FindEnumEntry(name names.Name) descriptors.ClassDescriptor {
	e, err := sc.enumEntries.Get(name)
	if err != nil {
		return nil
	}
	return e
}

func (sc *SourceClass) String() string {
	return fmt.Sprintf("source class %s", sc.ClassID())
}

type sourceConstructor struct {
	*descriptors.ConstructorImpl
	decl *ir.Constructor
}

type sourceFunction struct {
	*descriptors.FunctionImpl
	decl *ir.SimpleFunction
}

func (f *sourceFunction) Declaration() ir.CallableDeclaration { return f.decl }

type sourceProperty struct {
	*descriptors.PropertyImpl
	decl *ir.Property
}

func (p *sourceProperty) Declaration() ir.CallableDeclaration { return p.decl }

// memberDescriptor returns the descriptor of a source function or
// property, or nil while the declaration is still being described.
func (rs *Session) memberDescriptor(d ir.CallableDeclaration) descriptors.CallableMemberDescriptor {
	m, err := rs.members.Get(d)
	if err != nil {
		rs.Logger.Debug("member descriptor unavailable", "declaration", d.Symbol().ID.String(), "error", err)
		return nil
	}
	return m
}

func (rs *Session) newMemberDescriptor(d ir.CallableDeclaration) (descriptors.CallableMemberDescriptor, error) {
	ir.RequirePhase(d, ir.PhaseStatus)
	owner := rs.memberOwner(d)
	fill := func(c *descriptors.Callable, self descriptors.DeclarationDescriptor) {
		st := d.Status()
		c.Owner = owner
		c.CallableName = d.Name()
		c.Vis = st.Visibility
		c.Mod = st.Modality
		c.CallKind = descriptors.Declaration
		c.TypeParams = rs.typeParameters(self, d.TypeParameters())
		c.Receiver = receiverOf(d)
		c.Returns = rs.returnType(d)
		c.Pos = d.Pos()
		c.OverrideModifier = st.Modifiers.Has(ir.ModOverride)
	}
	switch d := d.(type) {
	case *ir.SimpleFunction:
		mods := d.Status().Modifiers
		f := &sourceFunction{
			FunctionImpl: &descriptors.FunctionImpl{
				Operator: mods.Has(ir.ModOperator),
				Infix:    mods.Has(ir.ModInfix),
				Inline:   mods.Has(ir.ModInline),
				Suspend:  mods.Has(ir.ModSuspend),
				Tailrec:  mods.Has(ir.ModTailrec),
				External: mods.Has(ir.ModExternal),
			},
			decl: d,
		}
		fill(&f.Callable, f.FunctionImpl)
		f.Params = valueParameterDescriptors(f.FunctionImpl, d.ValueParameters())
		return f, nil
	case *ir.Property:
		mods := d.Status().Modifiers
		p := &sourceProperty{
			PropertyImpl: &descriptors.PropertyImpl{
				Var:      d.IsVar(),
				Const:    mods.Has(ir.ModConst),
				LateInit: mods.Has(ir.ModLateInit),
			},
			decl: d,
		}
		fill(&p.Callable, p.PropertyImpl)
		return p, nil
	}
	return nil, fmt.Errorf("%T %s has no member descriptor", d, d.Symbol().ID)
}

// memberOwner is the class or package fragment a member belongs to.
func (rs *Session) memberOwner(d ir.Declaration) descriptors.DeclarationDescriptor {
	lex := rs.lexicalOf(d)
	if c, ok := lex.owner().(*ir.RegularClass); ok {
		return rs.SourceClass(c)
	}
	return rs.fragment(lex.file.PackageFqName)
}

func valueParameterDescriptors(owner descriptors.DeclarationDescriptor, params []*ir.ValueParameter) []descriptors.ValueParameterDescriptor {
	out := make([]descriptors.ValueParameterDescriptor, len(params))
	for i, p := range params {
		vp := &descriptors.ValueParameterImpl{
			Owner:       owner,
			ParamName:   p.Name(),
			Idx:         p.Index(),
			ParamType:   valueParameterType(p),
			HasDefault:  p.DefaultValue() != nil,
			Crossinline: p.IsCrossinline(),
			Noinline:    p.IsNoinline(),
		}
		if p.IsVararg() {
			vp.Vararg = vp.ParamType
			vp.ParamType = typesystem.Simple(arrayID, vp.ParamType)
		}
		out[i] = vp
	}
	return out
}

// declaredScope presents source declarations as descriptors.
type declaredScope struct {
	rs    *Session
	decls []ir.Declaration
}

func (ds *declaredScope) ContributedFunctions(name names.Name) []descriptors.FunctionDescriptor {
	var out []descriptors.FunctionDescriptor
	for _, d := range ds.decls {
		if f, ok := d.(*ir.SimpleFunction); ok && f.Name() == name {
			if m := ds.rs.memberDescriptor(f); m != nil {
				out = append(out, m.(descriptors.FunctionDescriptor))
			}
		}
	}
	return out
}

func (ds *declaredScope) ContributedProperties(name names.Name) []descriptors.PropertyDescriptor {
	var out []descriptors.PropertyDescriptor
	for _, d := range ds.decls {
		if p, ok := d.(*ir.Property); ok && p.Name() == name {
			if m := ds.rs.memberDescriptor(p); m != nil {
				out = append(out, m.(descriptors.PropertyDescriptor))
			}
		}
	}
	return out
}

func (ds *declaredScope) ContributedClassifier(name names.Name) descriptors.ClassifierDescriptor {
	for _, d := range ds.decls {
		if c, ok := d.(*ir.RegularClass); ok && c.Name() == name {
			return ds.rs.SourceClass(c)
		}
	}
	return nil
}

func (ds *declaredScope) FunctionNames() []names.Name {
	return ds.names(func(d ir.Declaration) (names.Name, bool) {
		f, ok := d.(*ir.SimpleFunction)
		if !ok {
			return "", false
		}
		return f.Name(), true
	})
}

func (ds *declaredScope) PropertyNames() []names.Name {
	return ds.names(func(d ir.Declaration) (names.Name, bool) {
		p, ok := d.(*ir.Property)
		if !ok {
			return "", false
		}
		return p.Name(), true
	})
}

func (ds *declaredScope) ClassifierNames() []names.Name {
	return ds.names(func(d ir.Declaration) (names.Name, bool) {
		c, ok := d.(*ir.RegularClass)
		if !ok {
			return "", false
		}
		return c.Name(), true
	})
}

func (ds *declaredScope) names(of func(ir.Declaration) (names.Name, bool)) []names.Name {
	var out []names.Name
	for _, d := range ds.decls {
		if n, ok := of(d); ok {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// PackageFragment is the part of a package declared in the module sources.
type PackageFragment struct {
	rs    *Session
	fq    names.FqName
	scope *declaredScope
}

func (rs *Session) newPackageFragment(fq names.FqName) (*PackageFragment, error) {
	var decls []ir.Declaration
	for _, f := range rs.Files {
		if f.PackageFqName == fq {
			decls = append(decls, f.Declarations...)
		}
	}
	return &PackageFragment{rs: rs, fq: fq, scope: &declaredScope{rs: rs, decls: decls}}, nil
}

func (rs *Session) fragment(fq names.FqName) *PackageFragment {
	f, err := rs.fragments.Get(fq)
	if err != nil {
		diagnostics.Invariantf("package fragment %s: %v", fq, err)
	}
	return f
}

func (f *PackageFragment) Name() names.Name {
	if f.fq.IsRoot() {
		return names.Root
	}
	return f.fq.ShortName()
}

func (f *PackageFragment) ContainingDeclaration() descriptors.DeclarationDescriptor { return f.rs.Module }
func (f *PackageFragment) FqName() names.FqName                                     { return f.fq }
func (f *PackageFragment) MemberScope() descriptors.MemberScope                     { return f.scope }

func (f *PackageFragment) String() string {
	return fmt.Sprintf("source package %s", f.fq)
}

type sourceProvider struct {
	rs *Session
}

// Provider returns the package fragments of the module sources. The
// declarations must be collected first.
func (rs *Session) Provider() descriptors.PackageFragmentProvider {
	return sourceProvider{rs: rs}
}

func (p sourceProvider) PackageFragments(fq names.FqName) []descriptors.PackageFragmentDescriptor {
	diagnostics.Assert(p.rs.collected, "sources of %s are queried before collection", p.rs.Module.Name())
	if _, ok := p.rs.packages[fq]; !ok {
		return nil
	}
	return []descriptors.PackageFragmentDescriptor{p.rs.fragment(fq)}
}

func (p sourceProvider) SubPackagesOf(fq names.FqName) []names.FqName {
	var out []names.FqName
	for sub := range p.rs.packages {
		if !sub.IsRoot() && sub.Parent() == fq {
			out = append(out, sub)
		}
	}
	sortFqNames(out)
	return out
}

func sortFqNames(fqs []names.FqName) {
	slices.SortFunc(fqs, func(a, b names.FqName) int {
		return cmp.Compare(a.String(), b.String())
	})
}
