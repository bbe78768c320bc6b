// Package deserialization builds class and package descriptors from binary
// metadata on demand. Only the flags of a class are read when it is first
// requested; supertypes, constructors and members are deserialized on first
// use and cached in the session storage.
package deserialization

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"

	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/lazy"
	"github.com/funvibe/semcore/internal/metadata"
	"github.com/funvibe/semcore/internal/metrics"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/override"
	"github.com/funvibe/semcore/internal/scopes"
	"github.com/funvibe/semcore/internal/session"
	"github.com/funvibe/semcore/internal/typesystem"
)

// Components is everything deserialized descriptors of one module share.
// A ClassID is deserialized at most once per Components.
type Components struct {
	Storage  *lazy.Storage
	Module   descriptors.ModuleDescriptor
	Finder   metadata.Finder
	Reporter diagnostics.Reporter
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Policy   override.Policy

	classes   *lazy.Func[names.ClassID, descriptors.ClassDescriptor]
	fragments *lazy.Func[names.FqName, *PackageFragment]
	packages  *lazy.Value[map[names.FqName]bool]
}

// NewComponents creates the components of module over finder. module may be
// nil for a standalone library, in which case classes are looked up only in
// finder.
func NewComponents(s *session.Session, module descriptors.ModuleDescriptor, finder metadata.Finder) *Components {
	c := &Components{
		Storage:  s.Storage,
		Module:   module,
		Finder:   finder,
		Reporter: s.Reporter,
		Logger:   s.Logger,
		Metrics:  s.Metrics,
		Policy:   override.PolicyFor(s.Strict),
	}
	if c.Reporter == nil {
		c.Reporter = diagnostics.Discard
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	c.classes = lazy.NewFunc(c.Storage, c.computeClass).Named("deserialized classes")
	c.fragments = lazy.NewFunc(c.Storage, c.computeFragment).Named("deserialized packages")
	c.packages = lazy.NewValue(c.Storage, func() (map[names.FqName]bool, error) {
		known := map[names.FqName]bool{}
		for _, fq := range finder.Packages() {
			known[fq] = true
		}
		return known, nil
	}).Named("known packages")
	return c
}

// DeserializeClass returns the descriptor of id, or nil when the finder has
// no data for it.
func (c *Components) DeserializeClass(id names.ClassID) descriptors.ClassDescriptor {
	cd, err := c.classes.Get(id)
	if err != nil {
		c.Logger.Debug("class deserialization failed", "class", id.String(), "error", err)
		return nil
	}
	return cd
}

// IsDeserialized reports whether id has already been requested.
func (c *Components) IsDeserialized(id names.ClassID) bool {
	return c.classes.IsComputed(id)
}

// Classes returns the classes deserialized so far in id order.
func (c *Components) Classes() []descriptors.ClassDescriptor {
	var out []descriptors.ClassDescriptor
	c.classes.Computed(func(_ names.ClassID, cd descriptors.ClassDescriptor) bool {
		if cd != nil {
			out = append(out, cd)
		}
		return true
	})
	slices.SortFunc(out, func(a, b descriptors.ClassDescriptor) int {
		return cmp.Compare(a.ClassID().String(), b.ClassID().String())
	})
	return out
}

func (c *Components) computeClass(id names.ClassID) (descriptors.ClassDescriptor, error) {
	data, ok := c.Finder.FindClassData(id)
	if !ok {
		return nil, nil
	}
	var container descriptors.DeclarationDescriptor
	if outer, nested := id.OuterClassID(); nested {
		oc := c.DeserializeClass(outer)
		if oc == nil {
			return nil, nil
		}
		container = oc
	} else {
		container = c.PackageFragment(id.Package)
	}

	env := data.Envelope
	if !env.IsCompatible() {
		return c.stub(id, container, data.Source, diagnostics.ErrM002, "incompatible",
			fmt.Sprintf("class %s was compiled with metadata %s and ABI %s, expected %s and %s",
				id, env.MetadataVersion, env.ABIVersion, metadata.CurrentVersion, metadata.CurrentABI)), nil
	}
	resolver, err := env.NameResolver()
	if err == nil {
		var proto *metadata.Class
		if proto, err = env.DecodeClass(); err == nil {
			c.Logger.Debug("deserializing class", "class", id.String(), "source", data.Source)
			c.Metrics.ClassDeserialized()
			return newDeserializedClass(c, id, container, data.Source, resolver, proto), nil
		}
	}
	c.Logger.Warn("malformed class metadata", "class", id.String(), "source", data.Source, "error", err)
	return c.stub(id, container, data.Source, diagnostics.ErrM001, "malformed",
		fmt.Sprintf("cannot read class %s: %v", id, err)), nil
}

// stub stands for a class whose metadata cannot be used: it has no members
// and only Any as supertype.
func (c *Components) stub(id names.ClassID, container descriptors.DeclarationDescriptor, source string, code diagnostics.ErrorCode, reason, msg string) descriptors.ClassDescriptor {
	c.Reporter.Report(diagnostics.NewError(code, diagnostics.Position{File: source}, msg))
	c.Metrics.StubCreated(reason)
	var supers []typesystem.Type
	if id != typesystem.AnyID {
		supers = []typesystem.Type{typesystem.TClass{ID: typesystem.AnyID}}
	}
	return &descriptors.ClassImpl{
		ID:        id,
		Container: container,
		InModule:  c.Module,
		ClassKind: descriptors.KindClass,
		Mod:       descriptors.Final,
		Vis:       descriptors.Public,
		Supers:    supers,
	}
}

// FindClass looks id up across the module dependencies, or in the finder
// when the components have no module.
func (c *Components) FindClass(id names.ClassID) descriptors.ClassDescriptor {
	if c.Module != nil {
		return c.Module.FindClassAcrossModuleDependencies(id)
	}
	return c.DeserializeClass(id)
}

// BuiltinClass returns a built-in class that must exist. A missing one
// makes the module unusable and panics with a *diagnostics.FatalError.
func (c *Components) BuiltinClass(id names.ClassID) descriptors.ClassDescriptor {
	cd := c.FindClass(id)
	if cd == nil {
		diagnostics.Fatalf(diagnostics.ErrM005, "built-in class %s is not found", id)
	}
	return cd
}

// PackageFragment returns the fragment of fq. It is empty when the finder
// knows nothing about fq.
func (c *Components) PackageFragment(fq names.FqName) *PackageFragment {
	f, err := c.fragments.Get(fq)
	if err != nil {
		c.Logger.Debug("package deserialization failed", "package", fq.String(), "error", err)
		return newPackageFragment(c, fq, nil)
	}
	return f
}

// PackageFragments implements descriptors.PackageFragmentProvider.
func (c *Components) PackageFragments(fq names.FqName) []descriptors.PackageFragmentDescriptor {
	if !c.knows(fq) {
		return nil
	}
	return []descriptors.PackageFragmentDescriptor{c.PackageFragment(fq)}
}

// SubPackagesOf implements descriptors.PackageFragmentProvider.
func (c *Components) SubPackagesOf(fq names.FqName) []names.FqName {
	var out []names.FqName
	for _, p := range c.Finder.Packages() {
		if !p.IsRoot() && p.Parent() == fq {
			out = append(out, p)
		}
	}
	return out
}

func (c *Components) knows(fq names.FqName) bool {
	known, err := c.packages.Get()
	return err == nil && known[fq]
}

func (c *Components) scopeOptions() scopes.Options {
	return scopes.Options{Policy: c.Policy, Reporter: c.Reporter, Metrics: c.Metrics, Logger: c.Logger}
}

// value reads a lazy cell of a deserialized descriptor. Cells here do not
// return errors of their own, so an error is a recursion and yields zero.
func value[T any](c *Components, v *lazy.Value[T], what string) T {
	x, err := v.Get()
	if err != nil {
		c.Logger.Debug("lazy value unavailable", "value", what, "error", err)
	}
	return x
}
