package scopes

import (
	"log/slog"

	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/lazy"
	"github.com/funvibe/semcore/internal/metrics"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/override"
	"github.com/funvibe/semcore/internal/typesystem"
)

// Options configure how a ClassMemberScope reports override problems.
type Options struct {
	Policy   override.Policy
	Reporter diagnostics.Reporter
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

type supertypeScope struct {
	class descriptors.ClassDescriptor
	scope descriptors.MemberScope
	subst typesystem.Subst
}

type memberList struct {
	functions  []descriptors.FunctionDescriptor
	properties []descriptors.PropertyDescriptor
	fakes      []descriptors.CallableMemberDescriptor
}

// ClassMemberScope is the member scope of a class: the declared members
// plus fake overrides of what the supertypes contribute, computed per name
// on first request. Source and deserialized classes both use it.
type ClassMemberScope struct {
	owner    descriptors.ClassDescriptor
	declared descriptors.MemberScope
	engine   *override.Engine
	opts     Options

	supertypes *lazy.Value[[]supertypeScope]
	functions  *lazy.Func[names.Name, memberList]
	properties *lazy.Func[names.Name, memberList]
	allNames   *lazy.Value[[2][]names.Name]
}

// NewClassMemberScope builds the scope of owner over its declared members.
// Supertypes are read from owner's type constructor on first use.
func NewClassMemberScope(s *lazy.Storage, owner descriptors.ClassDescriptor, declared descriptors.MemberScope, opts Options) *ClassMemberScope {
	if opts.Reporter == nil {
		opts.Reporter = diagnostics.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	cs := &ClassMemberScope{
		owner:    owner,
		declared: declared,
		engine:   override.ForClass(owner),
		opts:     opts,
	}
	label := owner.ClassID().String()
	cs.supertypes = lazy.NewValue(s, cs.computeSupertypes).Named(label + " supertype scopes")
	cs.functions = lazy.NewFunc(s, cs.computeFunctions).Named(label + " functions")
	cs.properties = lazy.NewFunc(s, cs.computeProperties).Named(label + " properties")
	cs.allNames = lazy.NewValue(s, cs.computeNames).Named(label + " member names")
	return cs
}

func (cs *ClassMemberScope) computeSupertypes() ([]supertypeScope, error) {
	m := cs.owner.Module()
	if m == nil {
		return nil, nil
	}
	var out []supertypeScope
	for _, st := range cs.owner.TypeConstructor().Supertypes() {
		ct, ok := st.(typesystem.TClass)
		if !ok {
			continue
		}
		class := m.FindClassAcrossModuleDependencies(ct.ID)
		if class == nil {
			continue
		}
		var keys []string
		for _, p := range class.TypeConstructor().Parameters() {
			keys = append(keys, p.Key())
		}
		out = append(out, supertypeScope{
			class: class,
			scope: class.UnsubstitutedMemberScope(),
			subst: typesystem.NewSubst(keys, ct.Args),
		})
	}
	return out, nil
}

func (cs *ClassMemberScope) supertypeScopes() []supertypeScope {
	sts, err := cs.supertypes.Get()
	if err != nil {
		cs.opts.Logger.Debug("supertype scopes unavailable", "class", cs.owner.ClassID().String(), "error", err)
		return nil
	}
	return sts
}

func (cs *ClassMemberScope) computeFunctions(name names.Name) (memberList, error) {
	declared := cs.declared.ContributedFunctions(name)
	current := make([]descriptors.CallableMemberDescriptor, len(declared))
	for i, f := range declared {
		current[i] = f
	}
	var inherited []override.Inherited
	for _, st := range cs.supertypeScopes() {
		for _, f := range st.scope.ContributedFunctions(name) {
			inherited = append(inherited, override.Inherited{Member: f, Subst: st.subst})
		}
	}
	fakes := cs.generate(name, inherited, current)

	out := memberList{functions: declared, fakes: fakes}
	for _, f := range fakes {
		if fd, ok := f.(descriptors.FunctionDescriptor); ok {
			out.functions = append(out.functions, fd)
		}
	}
	return out, nil
}

func (cs *ClassMemberScope) computeProperties(name names.Name) (memberList, error) {
	declared := cs.declared.ContributedProperties(name)
	current := make([]descriptors.CallableMemberDescriptor, len(declared))
	for i, p := range declared {
		current[i] = p
	}
	var inherited []override.Inherited
	for _, st := range cs.supertypeScopes() {
		for _, p := range st.scope.ContributedProperties(name) {
			inherited = append(inherited, override.Inherited{Member: p, Subst: st.subst})
		}
	}
	fakes := cs.generate(name, inherited, current)

	out := memberList{properties: declared, fakes: fakes}
	for _, f := range fakes {
		if pd, ok := f.(descriptors.PropertyDescriptor); ok {
			out.properties = append(out.properties, pd)
		}
	}
	return out, nil
}

func (cs *ClassMemberScope) generate(name names.Name, inherited []override.Inherited, current []descriptors.CallableMemberDescriptor) []descriptors.CallableMemberDescriptor {
	if len(inherited) == 0 && len(current) == 0 {
		return nil
	}
	sink := override.NewCollector(cs.owner, cs.opts.Policy, cs.opts.Reporter, cs.opts.Metrics)
	cs.engine.GenerateOverrides(name, inherited, current, cs.owner, sink)
	return sink.FakeOverrides()
}

func (cs *ClassMemberScope) computeNames() ([2][]names.Name, error) {
	fns := [][]names.Name{cs.declared.FunctionNames()}
	props := [][]names.Name{cs.declared.PropertyNames()}
	for _, st := range cs.supertypeScopes() {
		fns = append(fns, st.scope.FunctionNames())
		props = append(props, st.scope.PropertyNames())
	}
	return [2][]names.Name{Union(fns...), Union(props...)}, nil
}

func (cs *ClassMemberScope) functionList(name names.Name) memberList {
	l, err := cs.functions.Get(name)
	if err != nil {
		cs.opts.Logger.Debug("member functions fall back to declared", "class", cs.owner.ClassID().String(), "name", name.String(), "error", err)
		return memberList{functions: cs.declared.ContributedFunctions(name)}
	}
	return l
}

func (cs *ClassMemberScope) propertyList(name names.Name) memberList {
	l, err := cs.properties.Get(name)
	if err != nil {
		cs.opts.Logger.Debug("member properties fall back to declared", "class", cs.owner.ClassID().String(), "name", name.String(), "error", err)
		return memberList{properties: cs.declared.ContributedProperties(name)}
	}
	return l
}

func (cs *ClassMemberScope) ContributedFunctions(name names.Name) []descriptors.FunctionDescriptor {
	return cs.functionList(name).functions
}

func (cs *ClassMemberScope) ContributedProperties(name names.Name) []descriptors.PropertyDescriptor {
	return cs.propertyList(name).properties
}

// ContributedClassifier returns a declared nested classifier. Nested
// classes are not inherited.
func (cs *ClassMemberScope) ContributedClassifier(name names.Name) descriptors.ClassifierDescriptor {
	return cs.declared.ContributedClassifier(name)
}

func (cs *ClassMemberScope) FunctionNames() []names.Name {
	n, err := cs.allNames.Get()
	if err != nil {
		return cs.declared.FunctionNames()
	}
	return n[0]
}

func (cs *ClassMemberScope) PropertyNames() []names.Name {
	n, err := cs.allNames.Get()
	if err != nil {
		return cs.declared.PropertyNames()
	}
	return n[1]
}

func (cs *ClassMemberScope) ClassifierNames() []names.Name {
	return cs.declared.ClassifierNames()
}

// Declared returns the scope of members declared in the class itself.
func (cs *ClassMemberScope) Declared() descriptors.MemberScope {
	return cs.declared
}

// FakeOverrides returns the members of name that the class inherits
// without redeclaring them.
func (cs *ClassMemberScope) FakeOverrides(name names.Name) []descriptors.CallableMemberDescriptor {
	fns := cs.functionList(name).fakes
	props := cs.propertyList(name).fakes
	return append(append([]descriptors.CallableMemberDescriptor(nil), fns...), props...)
}
