package deserialization

import (
	"fmt"

	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/diagnostics"
	"github.com/funvibe/semcore/internal/metadata"
	"github.com/funvibe/semcore/internal/names"
)

// PackageFragment is the part of a package that one module reads from
// metadata: the top-level callables of its package parts and its classes.
type PackageFragment struct {
	c     *Components
	fq    names.FqName
	scope *declaredScope
}

func newPackageFragment(c *Components, fq names.FqName, parts []*metadata.Envelope) *PackageFragment {
	f := &PackageFragment{c: c, fq: fq}
	var units []*unit
	for i, env := range parts {
		if u := f.readPart(env, i); u != nil {
			units = append(units, u)
		}
	}
	f.scope = newDeclaredScope(c.Storage, "package "+fq.String(), units,
		func(n names.Name) descriptors.ClassifierDescriptor {
			return c.DeserializeClass(names.TopLevelClassID(fq.Child(n)))
		},
		func() []names.Name { return c.Finder.ClassNames(fq) })
	return f
}

func (c *Components) computeFragment(fq names.FqName) (*PackageFragment, error) {
	return newPackageFragment(c, fq, c.Finder.PackageParts(fq)), nil
}

// readPart returns the unit of one package part, or nil when the part
// cannot be used.
func (f *PackageFragment) readPart(env *metadata.Envelope, i int) *unit {
	if !env.IsCompatible() {
		f.report(diagnostics.ErrM002, "package part %d of %s was compiled with metadata %s and ABI %s",
			i, f.fq, env.MetadataVersion, env.ABIVersion)
		f.c.Metrics.StubCreated("incompatible")
		return nil
	}
	resolver, err := env.NameResolver()
	if err == nil {
		var p *metadata.Package
		if p, err = env.DecodePackage(); err == nil {
			label := fmt.Sprintf("%s$%d", f.fq, i)
			members := &memberDeserializer{types: newTypeDeserializer(resolver, p.TypeTable), label: label}
			return newUnit(f, members, p.Functions, p.Properties)
		}
	}
	f.c.Logger.Warn("malformed package metadata", "package", f.fq.String(), "part", i, "error", err)
	f.report(diagnostics.ErrM001, "cannot read package part %d of %s: %v", i, f.fq, err)
	f.c.Metrics.StubCreated("malformed")
	return nil
}

func (f *PackageFragment) report(code diagnostics.ErrorCode, format string, args ...any) {
	f.c.Reporter.Report(diagnostics.NewError(code, diagnostics.Position{}, fmt.Sprintf(format, args...)))
}

func (f *PackageFragment) Name() names.Name {
	if f.fq.IsRoot() {
		return names.Root
	}
	return f.fq.ShortName()
}

func (f *PackageFragment) ContainingDeclaration() descriptors.DeclarationDescriptor {
	if f.c.Module == nil {
		return nil
	}
	return f.c.Module
}

func (f *PackageFragment) FqName() names.FqName                 { return f.fq }
func (f *PackageFragment) MemberScope() descriptors.MemberScope { return f.scope }

func (f *PackageFragment) String() string {
	return fmt.Sprintf("deserialized package %s", f.fq)
}
