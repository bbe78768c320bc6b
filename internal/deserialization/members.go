package deserialization

import (
	"fmt"

	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/metadata"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/typesystem"
)

// memberDeserializer creates callable descriptors of one class or package
// part. label prefixes the type parameter keys of the members it creates.
type memberDeserializer struct {
	types *typeDeserializer
	label string
}

func (m *memberDeserializer) function(owner descriptors.DeclarationDescriptor, p *metadata.Function, ordinal int) *descriptors.FunctionImpl {
	flags := metadata.DecodeFunctionFlags(p.Flags)
	name := m.types.name(p.Name)
	f := &descriptors.FunctionImpl{
		Operator: flags.Operator,
		Infix:    flags.Infix,
		Inline:   flags.Inline,
		Suspend:  flags.Suspend,
		Tailrec:  flags.Tailrec,
		External: flags.External,
	}
	f.Owner = owner
	f.CallableName = name
	f.Vis = flags.Visibility
	f.Mod = flags.Modality
	f.CallKind = flags.Kind

	types, params := m.types.child(f, fmt.Sprintf("%s.%s@%d", m.label, name, ordinal), p.TypeParameters)
	f.TypeParams = params
	f.Receiver = types.resolve(p.ReceiverType, p.ReceiverTypeID)
	f.Params = valueParameters(f, types, p.ValueParameters)
	f.Returns = returnType(types, p.ReturnType, p.ReturnTypeID)
	return f
}

func (m *memberDeserializer) property(owner descriptors.DeclarationDescriptor, p *metadata.Property, ordinal int) *descriptors.PropertyImpl {
	flags := metadata.DecodePropertyFlags(p.Flags)
	name := m.types.name(p.Name)
	prop := &descriptors.PropertyImpl{
		Var:       flags.Var,
		Const:     flags.Const,
		LateInit:  flags.LateInit,
		Delegated: flags.Delegated,
	}
	prop.Owner = owner
	prop.CallableName = name
	prop.Vis = flags.Visibility
	prop.Mod = flags.Modality
	prop.CallKind = flags.Kind

	types, params := m.types.child(prop, fmt.Sprintf("%s.%s@%d", m.label, name, ordinal), p.TypeParameters)
	prop.TypeParams = params
	prop.Receiver = types.resolve(p.ReceiverType, p.ReceiverTypeID)
	prop.Returns = returnType(types, p.ReturnType, p.ReturnTypeID)
	return prop
}

func (m *memberDeserializer) constructor(class descriptors.ClassDescriptor, p *metadata.Constructor) *descriptors.ConstructorImpl {
	flags := metadata.DecodeConstructorFlags(p.Flags)
	c := &descriptors.ConstructorImpl{
		Class:   class,
		Primary: !flags.Secondary,
		Vis:     flags.Visibility,
	}
	c.Params = valueParameters(c, m.types, p.ValueParameters)
	return c
}

func valueParameters(owner descriptors.DeclarationDescriptor, types *typeDeserializer, ps []*metadata.ValueParameter) []descriptors.ValueParameterDescriptor {
	out := make([]descriptors.ValueParameterDescriptor, len(ps))
	for i, p := range ps {
		flags := metadata.DecodeValueParameterFlags(p.Flags)
		t := types.resolve(p.Type, p.TypeID)
		if t == nil {
			t = typesystem.TError{Reason: "value parameter without a type"}
		}
		out[i] = &descriptors.ValueParameterImpl{
			Owner:       owner,
			ParamName:   types.name(p.Name),
			Idx:         i,
			ParamType:   t,
			Vararg:      types.resolve(p.VarargElementType, p.VarargElementTypeID),
			HasDefault:  flags.DeclaresDefault,
			Crossinline: flags.Crossinline,
			Noinline:    flags.Noinline,
		}
	}
	return out
}

func returnType(types *typeDeserializer, t *metadata.Type, id int32) typesystem.Type {
	if rt := types.resolve(t, id); rt != nil {
		return rt
	}
	return typesystem.TError{Reason: "missing return type"}
}

// memberIndex groups the callable records of a unit by name.
type memberIndex struct {
	functions  map[names.Name][]int
	properties map[names.Name][]int
	fnNames    []names.Name
	propNames  []names.Name
}

func indexMembers(types *typeDeserializer, fns []*metadata.Function, props []*metadata.Property) *memberIndex {
	idx := &memberIndex{functions: map[names.Name][]int{}, properties: map[names.Name][]int{}}
	for i, f := range fns {
		n := types.name(f.Name)
		if _, seen := idx.functions[n]; !seen {
			idx.fnNames = append(idx.fnNames, n)
		}
		idx.functions[n] = append(idx.functions[n], i)
	}
	for i, p := range props {
		n := types.name(p.Name)
		if _, seen := idx.properties[n]; !seen {
			idx.propNames = append(idx.propNames, n)
		}
		idx.properties[n] = append(idx.properties[n], i)
	}
	return idx
}
