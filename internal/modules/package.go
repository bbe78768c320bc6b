package modules

import (
	"fmt"

	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/scopes"
)

// CompositeProvider merges the fragments of several providers in order.
type CompositeProvider struct {
	providers []descriptors.PackageFragmentProvider
}

func NewCompositeProvider(providers ...descriptors.PackageFragmentProvider) *CompositeProvider {
	return &CompositeProvider{providers: providers}
}

func (c *CompositeProvider) PackageFragments(fq names.FqName) []descriptors.PackageFragmentDescriptor {
	var out []descriptors.PackageFragmentDescriptor
	for _, p := range c.providers {
		out = append(out, p.PackageFragments(fq)...)
	}
	return out
}

// SubPackagesOf returns the sorted union of the providers' sub-packages.
func (c *CompositeProvider) SubPackagesOf(fq names.FqName) []names.FqName {
	seen := make(map[names.FqName]bool)
	var shorts []names.Name
	for _, p := range c.providers {
		for _, sub := range p.SubPackagesOf(fq) {
			if !seen[sub] {
				seen[sub] = true
				shorts = append(shorts, sub.ShortName())
			}
		}
	}
	out := make([]names.FqName, 0, len(shorts))
	for _, n := range scopes.Union(shorts) {
		out = append(out, fq.Child(n))
	}
	return out
}

// PackageView is everything a module sees in one package: its own
// fragments followed by those of its dependencies.
type PackageView struct {
	module    *Module
	fq        names.FqName
	fragments []descriptors.PackageFragmentDescriptor
	scope     descriptors.MemberScope
}

func newPackageView(m *Module, fq names.FqName) *PackageView {
	v := &PackageView{module: m, fq: fq, fragments: m.PackageFragmentProvider().PackageFragments(fq)}
	fs := make([]descriptors.MemberScope, len(v.fragments))
	for i, f := range v.fragments {
		fs[i] = f.MemberScope()
	}
	v.scope = scopes.Chained(fs...)
	return v
}

func (v *PackageView) Name() names.Name {
	if v.fq.IsRoot() {
		return names.Root
	}
	return v.fq.ShortName()
}

// ContainingDeclaration is the view of the parent package, or nil for the
// root package.
func (v *PackageView) ContainingDeclaration() descriptors.DeclarationDescriptor {
	if v.fq.IsRoot() {
		return nil
	}
	return v.module.PackageView(v.fq.Parent())
}

func (v *PackageView) FqName() names.FqName                               { return v.fq }
func (v *PackageView) Fragments() []descriptors.PackageFragmentDescriptor { return v.fragments }
func (v *PackageView) MemberScope() descriptors.MemberScope               { return v.scope }
func (v *PackageView) Module() descriptors.ModuleDescriptor               { return v.module }

// IsEmpty reports whether no module in the closure declares anything in the
// package or below it.
func (v *PackageView) IsEmpty() bool {
	return len(v.fragments) == 0 && len(v.module.SubPackagesOf(v.fq)) == 0
}

func (v *PackageView) String() string {
	return fmt.Sprintf("package %s in %s", v.fq, v.module.name)
}
