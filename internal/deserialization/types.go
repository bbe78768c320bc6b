package deserialization

import (
	"fmt"

	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/metadata"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/typesystem"
)

// typeDeserializer turns type records of one serialized unit into cone
// types. Type parameters are looked up in the deserializer's own scope and
// then in its parents', so member type parameters shadow class ones.
type typeDeserializer struct {
	resolver *metadata.NameResolver
	table    *metadata.TypeTable
	parent   *typeDeserializer
	byID     map[int32]descriptors.TypeParameterDescriptor
	byName   map[names.Name]descriptors.TypeParameterDescriptor
}

func newTypeDeserializer(resolver *metadata.NameResolver, table *metadata.TypeTable) *typeDeserializer {
	return &typeDeserializer{resolver: resolver, table: table}
}

// child creates a deserializer for a declaration with its own type
// parameters. keyPrefix makes parameter keys unique per declaration.
func (d *typeDeserializer) child(owner descriptors.DeclarationDescriptor, keyPrefix string, params []*metadata.TypeParameter) (*typeDeserializer, []descriptors.TypeParameterDescriptor) {
	if len(params) == 0 {
		return d, nil
	}
	c := &typeDeserializer{
		resolver: d.resolver,
		table:    d.table,
		parent:   d,
		byID:     make(map[int32]descriptors.TypeParameterDescriptor, len(params)),
		byName:   make(map[names.Name]descriptors.TypeParameterDescriptor, len(params)),
	}
	out := make([]descriptors.TypeParameterDescriptor, len(params))
	for i, p := range params {
		name := d.name(p.Name)
		proto := p
		tp := descriptors.NewTypeParameter(owner, name, i, keyPrefix+"#"+string(name), variance(p.Variance), p.Reified,
			func() []typesystem.Type { return c.upperBounds(proto) })
		c.byID[p.ID] = tp
		c.byName[name] = tp
		out[i] = tp
	}
	return c, out
}

func (d *typeDeserializer) upperBounds(p *metadata.TypeParameter) []typesystem.Type {
	bounds, err := d.table.ResolveAll(p.UpperBounds, p.UpperBoundIDs)
	if err != nil {
		return []typesystem.Type{typesystem.TError{Reason: err.Error()}}
	}
	out := make([]typesystem.Type, len(bounds))
	for i, b := range bounds {
		out[i] = d.typ(b)
	}
	return out
}

func (d *typeDeserializer) name(i int32) names.Name {
	n, err := d.resolver.Name(i)
	if err != nil {
		return names.ErrorName
	}
	return n
}

// resolve reads an inline type or a type table reference. A missing type
// yields nil.
func (d *typeDeserializer) resolve(t *metadata.Type, id int32) typesystem.Type {
	rt, err := d.table.Resolve(t, id)
	if err != nil {
		return typesystem.TError{Reason: err.Error()}
	}
	if rt == nil {
		return nil
	}
	return d.typ(rt)
}

// typ never fails: undecodable records become error types.
func (d *typeDeserializer) typ(t *metadata.Type) typesystem.Type {
	switch {
	case t.ClassName != metadata.Absent:
		id, err := d.resolver.ClassID(t.ClassName)
		if err != nil {
			return typesystem.TError{Reason: err.Error()}
		}
		ct := typesystem.TClass{ID: id, Nullable: t.Nullable, Suspend: t.IsSuspend()}
		for _, a := range t.Arguments {
			ct.Args = append(ct.Args, d.argument(a))
		}
		return ct
	case t.TypeParameter != metadata.Absent:
		if p := d.paramByID(t.TypeParameter); p != nil {
			return nullable(p.DefaultType(), t.Nullable)
		}
		return typesystem.TError{Reason: fmt.Sprintf("unknown type parameter id %d", t.TypeParameter)}
	case t.TypeParameterName != metadata.Absent:
		n := d.name(t.TypeParameterName)
		if p := d.paramByName(n); p != nil {
			return nullable(p.DefaultType(), t.Nullable)
		}
		return typesystem.TError{Reason: fmt.Sprintf("unknown type parameter %s", n)}
	default:
		return typesystem.TError{Reason: "type record has no constructor"}
	}
}

func (d *typeDeserializer) argument(a *metadata.TypeArgument) typesystem.Projection {
	if a.Projection == metadata.ProjectionStar {
		return typesystem.StarProjection
	}
	t := d.resolve(a.Type, a.TypeID)
	if t == nil {
		t = typesystem.TError{Reason: "type argument without a type"}
	}
	p := typesystem.Projection{Type: t}
	switch a.Projection {
	case metadata.ProjectionIn:
		p.Variance = typesystem.In
	case metadata.ProjectionOut:
		p.Variance = typesystem.Out
	}
	return p
}

func (d *typeDeserializer) paramByID(id int32) descriptors.TypeParameterDescriptor {
	for s := d; s != nil; s = s.parent {
		if p, ok := s.byID[id]; ok {
			return p
		}
	}
	return nil
}

func (d *typeDeserializer) paramByName(n names.Name) descriptors.TypeParameterDescriptor {
	for s := d; s != nil; s = s.parent {
		if p, ok := s.byName[n]; ok {
			return p
		}
	}
	return nil
}

func nullable(t typesystem.Type, n bool) typesystem.Type {
	if !n {
		return t
	}
	return typesystem.WithNullability(t, true)
}

func variance(v metadata.Variance) typesystem.Variance {
	switch v {
	case metadata.VarianceIn:
		return typesystem.In
	case metadata.VarianceOut:
		return typesystem.Out
	default:
		return typesystem.Invariant
	}
}
