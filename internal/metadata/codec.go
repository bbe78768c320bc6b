package metadata

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the records. They match the schema in schema.go.
const (
	typeFlags             protowire.Number = 1
	typeArgument          protowire.Number = 2
	typeNullable          protowire.Number = 3
	typeClassName         protowire.Number = 4
	typeTypeParameter     protowire.Number = 5
	typeTypeParameterName protowire.Number = 6

	argProjection protowire.Number = 1
	argType       protowire.Number = 2
	argTypeID     protowire.Number = 3

	tableType          protowire.Number = 1
	tableFirstNullable protowire.Number = 2

	tpID           protowire.Number = 1
	tpName         protowire.Number = 2
	tpReified      protowire.Number = 3
	tpVariance     protowire.Number = 4
	tpUpperBound   protowire.Number = 5
	tpUpperBoundID protowire.Number = 6

	vpFlags        protowire.Number = 1
	vpName         protowire.Number = 2
	vpType         protowire.Number = 3
	vpTypeID       protowire.Number = 4
	vpVarargType   protowire.Number = 5
	vpVarargTypeID protowire.Number = 6

	fnFlags          protowire.Number = 1
	fnName           protowire.Number = 2
	fnReturnType     protowire.Number = 3
	fnReturnTypeID   protowire.Number = 4
	fnTypeParameter  protowire.Number = 5
	fnReceiverType   protowire.Number = 6
	fnReceiverTypeID protowire.Number = 7
	fnValueParameter protowire.Number = 8
	propGetterFlags  protowire.Number = 9
	propSetterFlags  protowire.Number = 10

	ctorFlags          protowire.Number = 1
	ctorValueParameter protowire.Number = 2

	enumEntryName protowire.Number = 1

	classFlags          protowire.Number = 1
	classFqName         protowire.Number = 3
	classCompanion      protowire.Number = 4
	classTypeParameter  protowire.Number = 5
	classSupertype      protowire.Number = 6
	classSupertypeID    protowire.Number = 7
	classNestedName     protowire.Number = 8
	classConstructor    protowire.Number = 9
	classFunction       protowire.Number = 10
	classProperty       protowire.Number = 11
	classEnumEntry      protowire.Number = 12
	classTypeTable      protowire.Number = 13
	classSealedSubclass protowire.Number = 14

	pkgFunction  protowire.Number = 1
	pkgProperty  protowire.Number = 2
	pkgTypeTable protowire.Number = 4
	pkgFqName    protowire.Number = 5

	stringsString protowire.Number = 1

	qnamesName     protowire.Number = 1
	qnameParent    protowire.Number = 1
	qnameShortName protowire.Number = 2
	qnameKind      protowire.Number = 3
)

type encoder struct {
	b []byte
}

func (e *encoder) int32(num protowire.Number, v int32) {
	e.b = protowire.AppendTag(e.b, num, protowire.VarintType)
	e.b = protowire.AppendVarint(e.b, uint64(int64(v)))
}

// optInt32 writes v unless it is Absent.
func (e *encoder) optInt32(num protowire.Number, v int32) {
	if v != Absent {
		e.int32(num, v)
	}
}

func (e *encoder) bool(num protowire.Number, v bool) {
	if v {
		e.b = protowire.AppendTag(e.b, num, protowire.VarintType)
		e.b = protowire.AppendVarint(e.b, 1)
	}
}

func (e *encoder) bytes(num protowire.Number, v []byte) {
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendBytes(e.b, v)
}

func (e *encoder) string(num protowire.Number, v string) {
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendString(e.b, v)
}

func (e *encoder) packed(num protowire.Number, vs []int32) {
	if len(vs) == 0 {
		return
	}
	var body []byte
	for _, v := range vs {
		body = protowire.AppendVarint(body, uint64(int64(v)))
	}
	e.bytes(num, body)
}

type appender interface {
	appendTo(b []byte) []byte
}

func (e *encoder) message(num protowire.Number, m appender) {
	e.bytes(num, m.appendTo(nil))
}

func messages[M appender](e *encoder, num protowire.Number, ms []M) {
	for _, m := range ms {
		e.message(num, m)
	}
}

// field is one decoded field. Only varint and length-delimited fields are
// kept; other wire types are skipped.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

func (f field) int32() (int32, error) {
	if f.typ != protowire.VarintType {
		return 0, malformed("field %d: want varint, got wire type %d", f.num, f.typ)
	}
	return int32(f.varint), nil
}

func (f field) bool() (bool, error) {
	v, err := f.int32()
	return v != 0, err
}

func (f field) message() ([]byte, error) {
	if f.typ != protowire.BytesType {
		return nil, malformed("field %d: want bytes, got wire type %d", f.num, f.typ)
	}
	return f.bytes, nil
}

// appendInt32s decodes a repeated int32 field in packed or unpacked form.
func (f field) appendInt32s(dst []int32) ([]int32, error) {
	if f.typ == protowire.VarintType {
		return append(dst, int32(f.varint)), nil
	}
	b, err := f.message()
	if err != nil {
		return nil, err
	}
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, malformed("field %d: %v", f.num, protowire.ParseError(n))
		}
		dst = append(dst, int32(v))
		b = b[n:]
	}
	return dst, nil
}

func forEachField(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed("%v", protowire.ParseError(n))
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return malformed("field %d: %v", num, protowire.ParseError(n))
		}
		b = b[n:]
		if typ != protowire.VarintType && typ != protowire.BytesType {
			continue
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

type unmarshaler interface {
	Unmarshal(b []byte) error
}

func decodeMessage[M unmarshaler](f field, m M) (M, error) {
	b, err := f.message()
	if err != nil {
		return m, err
	}
	return m, m.Unmarshal(b)
}

func (t *Type) appendTo(b []byte) []byte {
	e := encoder{b}
	if t.Flags != 0 {
		e.int32(typeFlags, t.Flags)
	}
	messages(&e, typeArgument, t.Arguments)
	e.bool(typeNullable, t.Nullable)
	e.optInt32(typeClassName, t.ClassName)
	e.optInt32(typeTypeParameter, t.TypeParameter)
	e.optInt32(typeTypeParameterName, t.TypeParameterName)
	return e.b
}

func (t *Type) Marshal() []byte { return t.appendTo(nil) }

func (t *Type) Unmarshal(b []byte) error {
	*t = *NewType()
	return forEachField(b, func(f field) (err error) {
		switch f.num {
		case typeFlags:
			t.Flags, err = f.int32()
		case typeArgument:
			var a *TypeArgument
			if a, err = decodeMessage(f, NewTypeArgument()); err == nil {
				t.Arguments = append(t.Arguments, a)
			}
		case typeNullable:
			t.Nullable, err = f.bool()
		case typeClassName:
			t.ClassName, err = f.int32()
		case typeTypeParameter:
			t.TypeParameter, err = f.int32()
		case typeTypeParameterName:
			t.TypeParameterName, err = f.int32()
		}
		return err
	})
}

func (a *TypeArgument) appendTo(b []byte) []byte {
	e := encoder{b}
	e.int32(argProjection, int32(a.Projection))
	if a.Type != nil {
		e.message(argType, a.Type)
	}
	e.optInt32(argTypeID, a.TypeID)
	return e.b
}

func (a *TypeArgument) Unmarshal(b []byte) error {
	*a = *NewTypeArgument()
	return forEachField(b, func(f field) (err error) {
		switch f.num {
		case argProjection:
			var v int32
			v, err = f.int32()
			a.Projection = Projection(v)
		case argType:
			a.Type, err = decodeMessage(f, NewType())
		case argTypeID:
			a.TypeID, err = f.int32()
		}
		return err
	})
}

func (tt *TypeTable) appendTo(b []byte) []byte {
	e := encoder{b}
	messages(&e, tableType, tt.Types)
	e.optInt32(tableFirstNullable, tt.FirstNullable)
	return e.b
}

func (tt *TypeTable) Unmarshal(b []byte) error {
	*tt = *NewTypeTable()
	return forEachField(b, func(f field) (err error) {
		switch f.num {
		case tableType:
			var t *Type
			if t, err = decodeMessage(f, NewType()); err == nil {
				tt.Types = append(tt.Types, t)
			}
		case tableFirstNullable:
			tt.FirstNullable, err = f.int32()
		}
		return err
	})
}

func (p *TypeParameter) appendTo(b []byte) []byte {
	e := encoder{b}
	e.int32(tpID, p.ID)
	e.int32(tpName, p.Name)
	e.bool(tpReified, p.Reified)
	if p.Variance != VarianceInv {
		e.int32(tpVariance, int32(p.Variance))
	}
	messages(&e, tpUpperBound, p.UpperBounds)
	e.packed(tpUpperBoundID, p.UpperBoundIDs)
	return e.b
}

func (p *TypeParameter) Unmarshal(b []byte) error {
	*p = *NewTypeParameter()
	return forEachField(b, func(f field) (err error) {
		switch f.num {
		case tpID:
			p.ID, err = f.int32()
		case tpName:
			p.Name, err = f.int32()
		case tpReified:
			p.Reified, err = f.bool()
		case tpVariance:
			var v int32
			v, err = f.int32()
			p.Variance = Variance(v)
		case tpUpperBound:
			var t *Type
			if t, err = decodeMessage(f, NewType()); err == nil {
				p.UpperBounds = append(p.UpperBounds, t)
			}
		case tpUpperBoundID:
			p.UpperBoundIDs, err = f.appendInt32s(p.UpperBoundIDs)
		}
		return err
	})
}

func (p *ValueParameter) appendTo(b []byte) []byte {
	e := encoder{b}
	if p.Flags != 0 {
		e.int32(vpFlags, p.Flags)
	}
	e.int32(vpName, p.Name)
	if p.Type != nil {
		e.message(vpType, p.Type)
	}
	e.optInt32(vpTypeID, p.TypeID)
	if p.VarargElementType != nil {
		e.message(vpVarargType, p.VarargElementType)
	}
	e.optInt32(vpVarargTypeID, p.VarargElementTypeID)
	return e.b
}

func (p *ValueParameter) Unmarshal(b []byte) error {
	*p = *NewValueParameter()
	return forEachField(b, func(f field) (err error) {
		switch f.num {
		case vpFlags:
			p.Flags, err = f.int32()
		case vpName:
			p.Name, err = f.int32()
		case vpType:
			p.Type, err = decodeMessage(f, NewType())
		case vpTypeID:
			p.TypeID, err = f.int32()
		case vpVarargType:
			p.VarargElementType, err = decodeMessage(f, NewType())
		case vpVarargTypeID:
			p.VarargElementTypeID, err = f.int32()
		}
		return err
	})
}

func (fn *Function) appendTo(b []byte) []byte {
	e := encoder{b}
	e.int32(fnFlags, fn.Flags)
	e.int32(fnName, fn.Name)
	if fn.ReturnType != nil {
		e.message(fnReturnType, fn.ReturnType)
	}
	e.optInt32(fnReturnTypeID, fn.ReturnTypeID)
	messages(&e, fnTypeParameter, fn.TypeParameters)
	if fn.ReceiverType != nil {
		e.message(fnReceiverType, fn.ReceiverType)
	}
	e.optInt32(fnReceiverTypeID, fn.ReceiverTypeID)
	messages(&e, fnValueParameter, fn.ValueParameters)
	return e.b
}

func (fn *Function) Marshal() []byte { return fn.appendTo(nil) }

func (fn *Function) Unmarshal(b []byte) error {
	*fn = *NewFunction()
	return forEachField(b, func(f field) (err error) {
		switch f.num {
		case fnFlags:
			fn.Flags, err = f.int32()
		case fnName:
			fn.Name, err = f.int32()
		case fnReturnType:
			fn.ReturnType, err = decodeMessage(f, NewType())
		case fnReturnTypeID:
			fn.ReturnTypeID, err = f.int32()
		case fnTypeParameter:
			var p *TypeParameter
			if p, err = decodeMessage(f, NewTypeParameter()); err == nil {
				fn.TypeParameters = append(fn.TypeParameters, p)
			}
		case fnReceiverType:
			fn.ReceiverType, err = decodeMessage(f, NewType())
		case fnReceiverTypeID:
			fn.ReceiverTypeID, err = f.int32()
		case fnValueParameter:
			var p *ValueParameter
			if p, err = decodeMessage(f, NewValueParameter()); err == nil {
				fn.ValueParameters = append(fn.ValueParameters, p)
			}
		}
		return err
	})
}

func (p *Property) appendTo(b []byte) []byte {
	e := encoder{b}
	e.int32(fnFlags, p.Flags)
	e.int32(fnName, p.Name)
	if p.ReturnType != nil {
		e.message(fnReturnType, p.ReturnType)
	}
	e.optInt32(fnReturnTypeID, p.ReturnTypeID)
	messages(&e, fnTypeParameter, p.TypeParameters)
	if p.ReceiverType != nil {
		e.message(fnReceiverType, p.ReceiverType)
	}
	e.optInt32(fnReceiverTypeID, p.ReceiverTypeID)
	if p.GetterFlags != 0 {
		e.int32(propGetterFlags, p.GetterFlags)
	}
	if p.SetterFlags != 0 {
		e.int32(propSetterFlags, p.SetterFlags)
	}
	return e.b
}

func (p *Property) Unmarshal(b []byte) error {
	*p = *NewProperty()
	return forEachField(b, func(f field) (err error) {
		switch f.num {
		case fnFlags:
			p.Flags, err = f.int32()
		case fnName:
			p.Name, err = f.int32()
		case fnReturnType:
			p.ReturnType, err = decodeMessage(f, NewType())
		case fnReturnTypeID:
			p.ReturnTypeID, err = f.int32()
		case fnTypeParameter:
			var tp *TypeParameter
			if tp, err = decodeMessage(f, NewTypeParameter()); err == nil {
				p.TypeParameters = append(p.TypeParameters, tp)
			}
		case fnReceiverType:
			p.ReceiverType, err = decodeMessage(f, NewType())
		case fnReceiverTypeID:
			p.ReceiverTypeID, err = f.int32()
		case propGetterFlags:
			p.GetterFlags, err = f.int32()
		case propSetterFlags:
			p.SetterFlags, err = f.int32()
		}
		return err
	})
}

func (c *Constructor) appendTo(b []byte) []byte {
	e := encoder{b}
	e.int32(ctorFlags, c.Flags)
	messages(&e, ctorValueParameter, c.ValueParameters)
	return e.b
}

func (c *Constructor) Unmarshal(b []byte) error {
	*c = *NewConstructor()
	return forEachField(b, func(f field) (err error) {
		switch f.num {
		case ctorFlags:
			c.Flags, err = f.int32()
		case ctorValueParameter:
			var p *ValueParameter
			if p, err = decodeMessage(f, NewValueParameter()); err == nil {
				c.ValueParameters = append(c.ValueParameters, p)
			}
		}
		return err
	})
}

func (en *EnumEntry) appendTo(b []byte) []byte {
	e := encoder{b}
	e.int32(enumEntryName, en.Name)
	return e.b
}

func (en *EnumEntry) Unmarshal(b []byte) error {
	*en = EnumEntry{}
	return forEachField(b, func(f field) (err error) {
		if f.num == enumEntryName {
			en.Name, err = f.int32()
		}
		return err
	})
}

func (c *Class) appendTo(b []byte) []byte {
	e := encoder{b}
	e.int32(classFlags, c.Flags)
	e.int32(classFqName, c.FqName)
	e.optInt32(classCompanion, c.CompanionObjectName)
	messages(&e, classTypeParameter, c.TypeParameters)
	messages(&e, classSupertype, c.Supertypes)
	e.packed(classSupertypeID, c.SupertypeIDs)
	e.packed(classNestedName, c.NestedClassNames)
	messages(&e, classConstructor, c.Constructors)
	messages(&e, classFunction, c.Functions)
	messages(&e, classProperty, c.Properties)
	messages(&e, classEnumEntry, c.EnumEntries)
	if c.TypeTable != nil {
		e.message(classTypeTable, c.TypeTable)
	}
	e.packed(classSealedSubclass, c.SealedSubclassFqNames)
	return e.b
}

func (c *Class) Marshal() []byte { return c.appendTo(nil) }

func (c *Class) Unmarshal(b []byte) error {
	*c = *NewClass()
	return forEachField(b, func(f field) (err error) {
		switch f.num {
		case classFlags:
			c.Flags, err = f.int32()
		case classFqName:
			c.FqName, err = f.int32()
		case classCompanion:
			c.CompanionObjectName, err = f.int32()
		case classTypeParameter:
			var p *TypeParameter
			if p, err = decodeMessage(f, NewTypeParameter()); err == nil {
				c.TypeParameters = append(c.TypeParameters, p)
			}
		case classSupertype:
			var t *Type
			if t, err = decodeMessage(f, NewType()); err == nil {
				c.Supertypes = append(c.Supertypes, t)
			}
		case classSupertypeID:
			c.SupertypeIDs, err = f.appendInt32s(c.SupertypeIDs)
		case classNestedName:
			c.NestedClassNames, err = f.appendInt32s(c.NestedClassNames)
		case classConstructor:
			var ctor *Constructor
			if ctor, err = decodeMessage(f, NewConstructor()); err == nil {
				c.Constructors = append(c.Constructors, ctor)
			}
		case classFunction:
			var fn *Function
			if fn, err = decodeMessage(f, NewFunction()); err == nil {
				c.Functions = append(c.Functions, fn)
			}
		case classProperty:
			var p *Property
			if p, err = decodeMessage(f, NewProperty()); err == nil {
				c.Properties = append(c.Properties, p)
			}
		case classEnumEntry:
			var en *EnumEntry
			if en, err = decodeMessage(f, &EnumEntry{}); err == nil {
				c.EnumEntries = append(c.EnumEntries, en)
			}
		case classTypeTable:
			c.TypeTable, err = decodeMessage(f, NewTypeTable())
		case classSealedSubclass:
			c.SealedSubclassFqNames, err = f.appendInt32s(c.SealedSubclassFqNames)
		}
		return err
	})
}

func (p *Package) appendTo(b []byte) []byte {
	e := encoder{b}
	messages(&e, pkgFunction, p.Functions)
	messages(&e, pkgProperty, p.Properties)
	if p.TypeTable != nil {
		e.message(pkgTypeTable, p.TypeTable)
	}
	e.optInt32(pkgFqName, p.FqName)
	return e.b
}

func (p *Package) Marshal() []byte { return p.appendTo(nil) }

func (p *Package) Unmarshal(b []byte) error {
	*p = *NewPackage()
	return forEachField(b, func(f field) (err error) {
		switch f.num {
		case pkgFunction:
			var fn *Function
			if fn, err = decodeMessage(f, NewFunction()); err == nil {
				p.Functions = append(p.Functions, fn)
			}
		case pkgProperty:
			var prop *Property
			if prop, err = decodeMessage(f, NewProperty()); err == nil {
				p.Properties = append(p.Properties, prop)
			}
		case pkgTypeTable:
			p.TypeTable, err = decodeMessage(f, NewTypeTable())
		case pkgFqName:
			p.FqName, err = f.int32()
		}
		return err
	})
}

func (st *StringTable) appendTo(b []byte) []byte {
	e := encoder{b}
	for _, s := range st.Strings {
		e.string(stringsString, s)
	}
	return e.b
}

func (st *StringTable) Unmarshal(b []byte) error {
	*st = StringTable{}
	return forEachField(b, func(f field) error {
		if f.num != stringsString {
			return nil
		}
		v, err := f.message()
		if err != nil {
			return err
		}
		st.Strings = append(st.Strings, string(v))
		return nil
	})
}

func (q *QualifiedName) appendTo(b []byte) []byte {
	e := encoder{b}
	e.optInt32(qnameParent, q.Parent)
	e.int32(qnameShortName, q.ShortName)
	if q.Kind != KindPackageName {
		e.int32(qnameKind, int32(q.Kind))
	}
	return e.b
}

func (q *QualifiedName) Unmarshal(b []byte) error {
	*q = QualifiedName{Parent: Absent, Kind: KindPackageName}
	return forEachField(b, func(f field) (err error) {
		switch f.num {
		case qnameParent:
			q.Parent, err = f.int32()
		case qnameShortName:
			q.ShortName, err = f.int32()
		case qnameKind:
			var v int32
			v, err = f.int32()
			q.Kind = QualifiedNameKind(v)
		}
		return err
	})
}

func (qt *QualifiedNameTable) appendTo(b []byte) []byte {
	e := encoder{b}
	for i := range qt.Names {
		e.message(qnamesName, &qt.Names[i])
	}
	return e.b
}

func (qt *QualifiedNameTable) Unmarshal(b []byte) error {
	*qt = QualifiedNameTable{}
	return forEachField(b, func(f field) error {
		if f.num != qnamesName {
			return nil
		}
		q, err := decodeMessage(f, &QualifiedName{})
		if err != nil {
			return err
		}
		qt.Names = append(qt.Names, *q)
		return nil
	})
}
