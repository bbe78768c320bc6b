package deserialization

import (
	"fmt"
	"slices"

	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/lazy"
	"github.com/funvibe/semcore/internal/metadata"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/scopes"
	"github.com/funvibe/semcore/internal/typesystem"
)

// DeserializedClass is a class read from metadata. Flags, type parameters
// and the names of nested classes and enum entries are read when the class
// is created; everything else on first use.
type DeserializedClass struct {
	c         *Components
	id        names.ClassID
	container descriptors.DeclarationDescriptor
	source    string
	proto     *metadata.Class
	resolver  *metadata.NameResolver
	flags     metadata.ClassFlags

	types       *typeDeserializer
	members     *memberDeserializer
	typeParams  []descriptors.TypeParameterDescriptor
	constructor *descriptors.ClassTypeConstructor
	nestedNames []names.Name
	enumNames   []names.Name

	supertypes   *lazy.Value[[]typesystem.Type]
	constructors *lazy.Value[[]descriptors.ConstructorDescriptor]
	companion    *lazy.Value[descriptors.ClassDescriptor]
	sealed       *lazy.Value[[]descriptors.ClassDescriptor]
	nested       *lazy.Func[names.Name, descriptors.ClassDescriptor]
	enumEntries  *lazy.Func[names.Name, descriptors.ClassDescriptor]
	scope        *scopes.ClassMemberScope
}

func newDeserializedClass(c *Components, id names.ClassID, container descriptors.DeclarationDescriptor, source string, resolver *metadata.NameResolver, proto *metadata.Class) *DeserializedClass {
	d := &DeserializedClass{
		c:         c,
		id:        id,
		container: container,
		source:    source,
		proto:     proto,
		resolver:  resolver,
		flags:     metadata.DecodeClassFlags(proto.Flags),
	}
	label := id.String()
	d.types, d.typeParams = newTypeDeserializer(resolver, proto.TypeTable).child(d, label, proto.TypeParameters)
	d.members = &memberDeserializer{types: d.types, label: label}
	for _, i := range proto.NestedClassNames {
		d.nestedNames = append(d.nestedNames, d.types.name(i))
	}
	for _, e := range proto.EnumEntries {
		d.enumNames = append(d.enumNames, d.types.name(e.Name))
	}
	slices.Sort(d.nestedNames)

	s := c.Storage
	d.supertypes = lazy.NewRecursionTolerantValue(s, d.computeSupertypes,
		func() []typesystem.Type { return nil }).Named(label + " supertypes")
	d.constructor = descriptors.NewClassTypeConstructor(d, d.typeParams, func() []typesystem.Type {
		return value(c, d.supertypes, label+" supertypes")
	})
	d.constructors = lazy.NewValue(s, d.computeConstructors).Named(label + " constructors")
	d.companion = lazy.NewValue(s, d.computeCompanion).Named(label + " companion")
	d.sealed = lazy.NewValue(s, d.computeSealedSubclasses).Named(label + " sealed subclasses")
	d.nested = lazy.NewFunc(s, d.computeNested).Named(label + " nested classes")
	d.enumEntries = lazy.NewFunc(s, d.computeEnumEntry).Named(label + " enum entries")

	declared := newDeclaredScope(s, label,
		[]*unit{newUnit(d, d.members, proto.Functions, proto.Properties)},
		func(n names.Name) descriptors.ClassifierDescriptor { return d.FindNestedClass(n) },
		func() []names.Name { return d.nestedNames })
	d.scope = scopes.NewClassMemberScope(s, d, declared, c.scopeOptions())
	return d
}

func (d *DeserializedClass) Name() names.Name                                         { return d.id.ShortName() }
func (d *DeserializedClass) ContainingDeclaration() descriptors.DeclarationDescriptor { return d.container }
func (d *DeserializedClass) ClassID() names.ClassID                                   { return d.id }
func (d *DeserializedClass) Kind() descriptors.ClassKind                              { return d.flags.Kind }
func (d *DeserializedClass) Modality() descriptors.Modality                           { return d.flags.Modality }
func (d *DeserializedClass) Visibility() descriptors.Visibility                       { return d.flags.Visibility }
func (d *DeserializedClass) IsInner() bool                                            { return d.flags.Inner }
func (d *DeserializedClass) IsData() bool                                             { return d.flags.Data }
func (d *DeserializedClass) IsCompanionObject() bool                                  { return d.flags.Companion }
func (d *DeserializedClass) IsExpect() bool                                           { return d.flags.Expect }
func (d *DeserializedClass) IsInline() bool                                           { return d.flags.Inline }
func (d *DeserializedClass) IsFun() bool                                              { return d.flags.Fun }
func (d *DeserializedClass) Module() descriptors.ModuleDescriptor                     { return d.c.Module }
func (d *DeserializedClass) TypeConstructor() descriptors.TypeConstructor             { return d.constructor }
func (d *DeserializedClass) UnsubstitutedMemberScope() descriptors.MemberScope        { return d.scope }

func (d *DeserializedClass) DeclaredTypeParameters() []descriptors.TypeParameterDescriptor {
	return d.typeParams
}

func (d *DeserializedClass) DefaultType() typesystem.Type {
	return descriptors.DefaultClassType(d.id, d.typeParams)
}

// Source is the file the class metadata was read from.
func (d *DeserializedClass) Source() string { return d.source }

// NestedClassNames returns the names of the nested classes, sorted.
func (d *DeserializedClass) NestedClassNames() []names.Name { return d.nestedNames }

// EnumEntryNames returns the enum entry names in declaration order.
func (d *DeserializedClass) EnumEntryNames() []names.Name { return d.enumNames }

func (d *DeserializedClass) report(code diagnostics.ErrorCode, format string, args ...any) {
	d.c.Reporter.Report(diagnostics.NewError(code, diagnostics.Position{File: d.source}, fmt.Sprintf(format, args...)))
}

func (d *DeserializedClass) computeSupertypes() ([]typesystem.Type, error) {
	raw, err := d.proto.TypeTable.ResolveAll(d.proto.Supertypes, d.proto.SupertypeIDs)
	if err != nil {
		d.report(diagnostics.ErrM001, "cannot read supertypes of %s: %v", d.id, err)
		raw = nil
	}
	var out []typesystem.Type
	for _, r := range raw {
		ct, ok := d.types.typ(r).(typesystem.TClass)
		if !ok {
			d.report(diagnostics.ErrM003, "supertype of %s is not a class type", d.id)
			continue
		}
		var extra []typesystem.Type
		if ct.Suspend {
			if n, ok := typesystem.FunctionArity(ct.ID); ok {
				sid := typesystem.SuspendFunctionID(n)
				d.c.BuiltinClass(sid)
				extra = append(extra, typesystem.TClass{ID: sid, Args: ct.Args})
			}
		}
		sc := d.c.FindClass(ct.ID)
		if sc == nil {
			d.report(diagnostics.ErrM003, "supertype %s of %s cannot be found, the class hierarchy is incomplete", ct.ID, d.id)
			continue
		}
		if sc.ClassID() == d.id || descriptors.IsSubclassOf(sc, d) {
			d.report(diagnostics.ErrM004, "%s and %s inherit from each other, supertype %s is removed", d.id, ct.ID, ct.ID)
			continue
		}
		out = append(out, ct)
		out = append(out, extra...)
	}
	if len(out) == 0 && d.id != typesystem.AnyID {
		out = []typesystem.Type{typesystem.TClass{ID: typesystem.AnyID}}
	}
	return out, nil
}

func (d *DeserializedClass) computeConstructors() ([]descriptors.ConstructorDescriptor, error) {
	out := make([]descriptors.ConstructorDescriptor, len(d.proto.Constructors))
	for i, p := range d.proto.Constructors {
		out[i] = d.members.constructor(d, p)
	}
	return out, nil
}

func (d *DeserializedClass) Constructors() []descriptors.ConstructorDescriptor {
	return value(d.c, d.constructors, "constructors")
}

func (d *DeserializedClass) UnsubstitutedPrimaryConstructor() descriptors.ConstructorDescriptor {
	for _, ctor := range d.Constructors() {
		if ctor.IsPrimary() {
			return ctor
		}
	}
	return nil
}

func (d *DeserializedClass) computeCompanion() (descriptors.ClassDescriptor, error) {
	if d.proto.CompanionObjectName == metadata.Absent {
		return nil, nil
	}
	return d.FindNestedClass(d.types.name(d.proto.CompanionObjectName)), nil
}

func (d *DeserializedClass) CompanionObjectDescriptor() descriptors.ClassDescriptor {
	return value(d.c, d.companion, "companion")
}

func (d *DeserializedClass) computeSealedSubclasses() ([]descriptors.ClassDescriptor, error) {
	if d.flags.Modality != descriptors.Sealed {
		return nil, nil
	}
	var out []descriptors.ClassDescriptor
	for _, i := range d.proto.SealedSubclassFqNames {
		id, err := d.resolver.ClassID(i)
		if err != nil {
			d.report(diagnostics.ErrM001, "cannot read sealed subclass of %s: %v", d.id, err)
			continue
		}
		if sc := d.c.FindClass(id); sc != nil {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (d *DeserializedClass) SealedSubclasses() []descriptors.ClassDescriptor {
	return value(d.c, d.sealed, "sealed subclasses")
}

func (d *DeserializedClass) computeNested(name names.Name) (descriptors.ClassDescriptor, error) {
	if _, ok := slices.BinarySearch(d.nestedNames, name); !ok {
		return nil, nil
	}
	return d.c.DeserializeClass(d.id.Nested(name)), nil
}

// FindNestedClass deserializes the nested class name on first request.
func (d *DeserializedClass) FindNestedClass(name names.Name) descriptors.ClassDescriptor {
	nc, err := d.nested.Get(name)
	if err != nil {
		return nil
	}
	return nc
}

// IsNestedClassLoaded reports whether name has been requested already.
func (d *DeserializedClass) IsNestedClassLoaded(name names.Name) bool {
	return d.nested.IsComputed(name)
}

func (d *DeserializedClass) computeEnumEntry(name names.Name) (descriptors.ClassDescriptor, error) {
	if !slices.Contains(d.enumNames, name) {
		return nil, nil
	}
	entry := &descriptors.ClassImpl{
		ID:        d.id.Nested(name),
		Container: d,
		InModule:  d.c.Module,
		ClassKind: descriptors.KindEnumEntry,
		Mod:       descriptors.Final,
		Vis:       descriptors.Public,
		Supers:    []typesystem.Type{d.DefaultType()},
	}
	entry.Scope = scopes.NewClassMemberScope(d.c.Storage, entry, descriptors.EmptyScope, d.c.scopeOptions())
	return entry, nil
}

// FindEnumEntry returns the descriptor of an enum entry, created on first
// request.
func (d *DeserializedClass) FindEnumEntry(name names.Name) descriptors.ClassDescriptor {
	e, err := d.enumEntries.Get(name)
	if err != nil {
		return nil
	}
	return e
}

func (d *DeserializedClass) String() string {
	return fmt.Sprintf("deserialized class %s", d.id)
}
