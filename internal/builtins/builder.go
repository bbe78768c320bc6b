package builtins

import (
	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/metadata"
	"github.com/funvibe/semcore/internal/names"
)

var (
	openFun      = metadata.FunctionFlags{Visibility: descriptors.Public, Modality: descriptors.Open}
	finalFun     = metadata.FunctionFlags{Visibility: descriptors.Public, Modality: descriptors.Final}
	operatorFun  = metadata.FunctionFlags{Visibility: descriptors.Public, Modality: descriptors.Final, Operator: true}
	abstractOp   = metadata.FunctionFlags{Visibility: descriptors.Public, Modality: descriptors.Abstract, Operator: true}
	finalVal     = metadata.PropertyFlags{Visibility: descriptors.Public, Modality: descriptors.Final, HasGetter: true}
	abstractFun  = metadata.FunctionFlags{Visibility: descriptors.Public, Modality: descriptors.Abstract}
	openOperator = metadata.FunctionFlags{Visibility: descriptors.Public, Modality: descriptors.Open, Operator: true}
)

type param struct {
	name string
	typ  *metadata.Type
}

// unitBuilder interns the names of one class or package part.
type unitBuilder struct {
	tables *metadata.TableBuilder
}

func (u unitBuilder) typ(id names.ClassID, args ...*metadata.Type) *metadata.Type {
	t := metadata.NewType()
	t.ClassName = u.tables.Class(id)
	for _, a := range args {
		arg := metadata.NewTypeArgument()
		arg.Type = a
		t.Arguments = append(t.Arguments, arg)
	}
	return t
}

func nullable(t *metadata.Type) *metadata.Type {
	c := *t
	c.Nullable = true
	return &c
}

func (u unitBuilder) function(name string, flags metadata.FunctionFlags, ret *metadata.Type, params ...param) *metadata.Function {
	f := metadata.NewFunction()
	f.Flags = flags.Encode()
	f.Name = u.tables.String(name)
	f.ReturnType = ret
	for _, p := range params {
		vp := metadata.NewValueParameter()
		vp.Name = u.tables.String(p.name)
		vp.Type = p.typ
		f.ValueParameters = append(f.ValueParameters, vp)
	}
	return f
}

func (u unitBuilder) property(name string, flags metadata.PropertyFlags, t *metadata.Type) *metadata.Property {
	p := metadata.NewProperty()
	p.Flags = flags.Encode()
	p.Name = u.tables.String(name)
	p.ReturnType = t
	return p
}

type classBuilder struct {
	unitBuilder
	id    names.ClassID
	class *metadata.Class
}

func newClass(id names.ClassID, flags metadata.ClassFlags) *classBuilder {
	b := &classBuilder{unitBuilder: unitBuilder{tables: metadata.NewTableBuilder()}, id: id, class: metadata.NewClass()}
	b.class.Flags = flags.Encode()
	b.class.FqName = b.tables.Class(id)
	return b
}

// param declares a class type parameter and returns a usage of it.
func (b *classBuilder) param(name string, v metadata.Variance) (*metadata.TypeParameter, *metadata.Type) {
	tp := metadata.NewTypeParameter()
	tp.ID = int32(len(b.class.TypeParameters))
	tp.Name = b.tables.String(name)
	tp.Variance = v
	b.class.TypeParameters = append(b.class.TypeParameters, tp)
	t := metadata.NewType()
	t.TypeParameter = tp.ID
	return tp, t
}

func (b *classBuilder) extends(types ...*metadata.Type) *classBuilder {
	b.class.Supertypes = append(b.class.Supertypes, types...)
	return b
}

func (b *classBuilder) fun(name string, flags metadata.FunctionFlags, ret *metadata.Type, params ...param) *classBuilder {
	b.class.Functions = append(b.class.Functions, b.function(name, flags, ret, params...))
	return b
}

func (b *classBuilder) val(name string, t *metadata.Type) *classBuilder {
	b.class.Properties = append(b.class.Properties, b.property(name, finalVal, t))
	return b
}

func (b *classBuilder) envelope() *metadata.Envelope {
	return metadata.ClassEnvelope(b.id, b.class, b.tables)
}
