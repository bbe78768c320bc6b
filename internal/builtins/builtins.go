// Package builtins generates the metadata of the lang built-in library:
// Any, Nothing, Unit, the primitive classes, Comparable, Enum, Array, the
// FunctionN interfaces and the suspend function interfaces of
// lang.coroutines. Modules depend on the built-in module to see them.
package builtins

import (
	"fmt"
	"io"
	"sync"

	"github.com/funvibe/semcore/internal/config"
	"github.com/funvibe/semcore/internal/descriptors"
	"github.com/funvibe/semcore/internal/metadata"
	"github.com/funvibe/semcore/internal/names"
	"github.com/funvibe/semcore/internal/typesystem"
)

// Source is the file name reported for built-in declarations.
const Source = "<builtins>"

var (
	langPackage       = names.NewFqName(config.BuiltinsPackage)
	coroutinesPackage = names.NewFqName(config.CoroutinesPackage)

	ComparableID   = names.NewClassID(langPackage, names.NewFqName(config.ComparableTypeName), false)
	ArrayID        = names.NewClassID(langPackage, names.NewFqName(config.ArrayTypeName), false)
	FunctionBaseID = names.NewClassID(langPackage, names.NewFqName(config.FunctionPrefix), false)
	ContinuationID = names.NewClassID(coroutinesPackage, names.NewFqName(config.ContinuationTypeName), false)
)

var envelopes = sync.OnceValue(generate)

// Envelopes returns the built-in declarations. They are generated once per
// process and must not be modified.
func Envelopes() []*metadata.Envelope {
	return envelopes()
}

// NewLibrary returns a fresh library holding the built-in declarations.
func NewLibrary() *metadata.Library {
	lib := metadata.NewLibrary(config.BuiltinsModule)
	for _, env := range Envelopes() {
		lib.Add(env, Source)
	}
	return lib
}

// Write writes the built-in declarations as a metadata stream.
func Write(w io.Writer) error {
	return metadata.WriteEnvelopes(w, Envelopes()...)
}

func classFlags(kind descriptors.ClassKind, modality descriptors.Modality) metadata.ClassFlags {
	return metadata.ClassFlags{Visibility: descriptors.Public, Modality: modality, Kind: kind}
}

func generate() []*metadata.Envelope {
	var out []*metadata.Envelope
	add := func(b *classBuilder) { out = append(out, b.envelope()) }

	anyClass := newClass(typesystem.AnyID, classFlags(descriptors.KindClass, descriptors.Open))
	anyClass.fun(config.EqualsFuncName, openOperator, anyClass.typ(typesystem.BooleanID),
		param{"other", nullable(anyClass.typ(typesystem.AnyID))})
	anyClass.fun(config.HashCodeFuncName, openFun, anyClass.typ(typesystem.IntID))
	anyClass.fun(config.ToStringFuncName, openFun, anyClass.typ(typesystem.StringID))
	anyClass.class.Constructors = []*metadata.Constructor{metadata.NewConstructor()}
	add(anyClass)

	add(newClass(typesystem.NothingID, classFlags(descriptors.KindClass, descriptors.Final)))
	add(newClass(typesystem.UnitID, classFlags(descriptors.KindObject, descriptors.Final)))
	add(newClass(typesystem.AnnotationID, classFlags(descriptors.KindInterface, descriptors.Abstract)))

	comparable := newClass(ComparableID, classFlags(descriptors.KindInterface, descriptors.Abstract))
	_, t := comparable.param("T", metadata.VarianceIn)
	comparable.fun(config.CompareToFuncName, abstractOp, comparable.typ(typesystem.IntID), param{"other", t})
	add(comparable)

	for _, id := range []names.ClassID{typesystem.BooleanID, typesystem.CharID} {
		add(primitive(id))
	}
	for _, id := range []names.ClassID{typesystem.IntID, typesystem.LongID, typesystem.DoubleID} {
		p := primitive(id)
		self := p.typ(id)
		p.fun("plus", operatorFun, self, param{"other", self})
		p.fun("minus", operatorFun, self, param{"other", self})
		p.fun("times", operatorFun, self, param{"other", self})
		add(p)
	}

	str := primitive(typesystem.StringID)
	str.val("length", str.typ(typesystem.IntID))
	str.fun("plus", operatorFun, str.typ(typesystem.StringID), param{"other", nullable(str.typ(typesystem.AnyID))})
	str.fun("get", operatorFun, str.typ(typesystem.CharID), param{"index", str.typ(typesystem.IntID)})
	add(str)

	enum := newClass(typesystem.EnumID, classFlags(descriptors.KindClass, descriptors.Abstract))
	e, et := enum.param("E", metadata.VarianceInv)
	e.UpperBounds = []*metadata.Type{enum.typ(typesystem.EnumID, et)}
	enum.extends(enum.typ(ComparableID, et))
	enum.val(config.NamePropName, enum.typ(typesystem.StringID))
	enum.val(config.OrdinalPropName, enum.typ(typesystem.IntID))
	enum.fun(config.CompareToFuncName, operatorFun, enum.typ(typesystem.IntID), param{"other", et})
	add(enum)

	array := newClass(ArrayID, classFlags(descriptors.KindClass, descriptors.Final))
	_, at := array.param("T", metadata.VarianceInv)
	array.val("size", array.typ(typesystem.IntID))
	array.fun("get", operatorFun, at, param{"index", array.typ(typesystem.IntID)})
	array.fun("set", operatorFun, array.typ(typesystem.UnitID), param{"index", array.typ(typesystem.IntID)}, param{"value", at})
	ctor := metadata.NewConstructor()
	size := metadata.NewValueParameter()
	size.Name = array.tables.String("size")
	size.Type = array.typ(typesystem.IntID)
	ctor.ValueParameters = []*metadata.ValueParameter{size}
	array.class.Constructors = []*metadata.Constructor{ctor}
	add(array)

	function := newClass(FunctionBaseID, classFlags(descriptors.KindInterface, descriptors.Abstract))
	function.param("R", metadata.VarianceOut)
	add(function)

	continuation := newClass(ContinuationID, classFlags(descriptors.KindInterface, descriptors.Abstract))
	_, ct := continuation.param("T", metadata.VarianceIn)
	continuation.fun(config.ResumeFuncName, abstractFun, continuation.typ(typesystem.UnitID), param{"result", ct})
	add(continuation)

	for n := 0; n <= config.MaxFunctionArity; n++ {
		add(functionInterface(typesystem.FunctionID(n), n, false))
		add(functionInterface(typesystem.SuspendFunctionID(n), n, true))
	}

	out = append(out, langPart())
	return out
}

// primitive starts a final class that is comparable to itself.
func primitive(id names.ClassID) *classBuilder {
	p := newClass(id, classFlags(descriptors.KindClass, descriptors.Final))
	self := p.typ(id)
	p.extends(p.typ(ComparableID, self))
	p.fun(config.CompareToFuncName, operatorFun, p.typ(typesystem.IntID), param{"other", self})
	return p
}

// functionInterface builds FunctionN<in P1, ..., in PN, out R> with an
// abstract invoke. The suspend variant has a suspend invoke.
func functionInterface(id names.ClassID, arity int, suspend bool) *classBuilder {
	b := newClass(id, classFlags(descriptors.KindInterface, descriptors.Abstract))
	params := make([]param, arity)
	for i := range arity {
		_, t := b.param(fmt.Sprintf("P%d", i+1), metadata.VarianceIn)
		params[i] = param{fmt.Sprintf("p%d", i+1), t}
	}
	_, r := b.param("R", metadata.VarianceOut)
	b.extends(b.typ(FunctionBaseID, r))
	flags := abstractOp
	flags.Suspend = suspend
	b.fun(config.InvokeFuncName, flags, r, params...)
	return b
}

// langPart holds the top-level functions of the lang package.
func langPart() *metadata.Envelope {
	u := unitBuilder{tables: metadata.NewTableBuilder()}
	p := metadata.NewPackage()
	p.FqName = u.tables.Package(langPackage)
	p.Functions = []*metadata.Function{
		u.function("println", finalFun, u.typ(typesystem.UnitID), param{"message", nullable(u.typ(typesystem.AnyID))}),
		u.function("TODO", finalFun, u.typ(typesystem.NothingID)),
	}
	return metadata.PackageEnvelope(langPackage, p, u.tables)
}
