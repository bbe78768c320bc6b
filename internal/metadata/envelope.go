package metadata

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// Kind tells what an envelope payload holds.
type Kind int32

const (
	KindUnknown Kind = iota
	KindClass
	KindPackage
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindPackage:
		return "package"
	default:
		return "unknown"
	}
}

const (
	envMetadataVersion protowire.Number = 1
	envABIVersion      protowire.Number = 2
	envKind            protowire.Number = 3
	envStrings         protowire.Number = 4
	envQualifiedNames  protowire.Number = 5
	envData            protowire.Number = 6
	envName            protowire.Number = 7
)

// Envelope is one serialized unit: a class or a package part together with
// the tables its indices refer to. Name is the class id or package name in
// plain text so that units can be indexed without decoding the payload.
type Envelope struct {
	MetadataVersion Version
	ABIVersion      Version
	Kind            Kind
	Name            string
	Strings         *StringTable
	QualifiedNames  *QualifiedNameTable
	Data            []byte
}

func (env *Envelope) Marshal() []byte {
	e := encoder{}
	e.packed(envMetadataVersion, env.MetadataVersion.ints())
	e.packed(envABIVersion, env.ABIVersion.ints())
	e.int32(envKind, int32(env.Kind))
	if env.Strings != nil {
		e.message(envStrings, env.Strings)
	}
	if env.QualifiedNames != nil {
		e.message(envQualifiedNames, env.QualifiedNames)
	}
	e.bytes(envData, env.Data)
	e.string(envName, env.Name)
	return e.b
}

func (env *Envelope) Unmarshal(b []byte) error {
	*env = Envelope{}
	var mv, av []int32
	err := forEachField(b, func(f field) (err error) {
		switch f.num {
		case envMetadataVersion:
			mv, err = f.appendInt32s(mv)
		case envABIVersion:
			av, err = f.appendInt32s(av)
		case envKind:
			var k int32
			k, err = f.int32()
			env.Kind = Kind(k)
		case envStrings:
			env.Strings, err = decodeMessage(f, &StringTable{})
		case envQualifiedNames:
			env.QualifiedNames, err = decodeMessage(f, &QualifiedNameTable{})
		case envData:
			env.Data, err = f.message()
		case envName:
			var v []byte
			v, err = f.message()
			env.Name = string(v)
		}
		return err
	})
	env.MetadataVersion = versionOf(mv)
	env.ABIVersion = versionOf(av)
	return err
}

// IsCompatible checks both versions against the current reader.
func (env *Envelope) IsCompatible() bool {
	return env.MetadataVersion.IsCompatible(CurrentVersion) && env.ABIVersion.IsCompatible(CurrentABI)
}

// NameResolver returns the resolver over the envelope tables. A unit
// without a string table cannot be read.
func (env *Envelope) NameResolver() (*NameResolver, error) {
	if env.Strings == nil {
		return nil, malformed("%s %q has no string table", env.Kind, env.Name)
	}
	qn := env.QualifiedNames
	if qn == nil {
		qn = &QualifiedNameTable{}
	}
	return NewNameResolver(env.Strings, qn), nil
}

func (env *Envelope) DecodeClass() (*Class, error) {
	if env.Kind != KindClass {
		return nil, malformed("%q is a %s, not a class", env.Name, env.Kind)
	}
	c := NewClass()
	if err := c.Unmarshal(env.Data); err != nil {
		return nil, fmt.Errorf("class %s: %w", env.Name, err)
	}
	return c, nil
}

func (env *Envelope) DecodePackage() (*Package, error) {
	if env.Kind != KindPackage {
		return nil, malformed("%q is a %s, not a package", env.Name, env.Kind)
	}
	p := NewPackage()
	if err := p.Unmarshal(env.Data); err != nil {
		return nil, fmt.Errorf("package %s: %w", env.Name, err)
	}
	return p, nil
}

// WriteEnvelopes writes envs as a stream of uvarint length-prefixed units.
func WriteEnvelopes(w io.Writer, envs ...*Envelope) error {
	for _, env := range envs {
		data := env.Marshal()
		buf := binary.AppendUvarint(nil, uint64(len(data)))
		buf = append(buf, data...)
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// MaxEnvelopeSize bounds the length prefix ReadEnvelopes accepts.
const MaxEnvelopeSize = 64 << 20

// ReadEnvelopes reads a stream written by WriteEnvelopes.
func ReadEnvelopes(r io.Reader) ([]*Envelope, error) {
	br := bufio.NewReader(r)
	var out []*Envelope
	for {
		n, err := binary.ReadUvarint(br)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, malformed("envelope %d length: %v", len(out), err)
		}
		if n > MaxEnvelopeSize {
			return out, malformed("envelope %d length %d exceeds %d bytes", len(out), n, MaxEnvelopeSize)
		}
		var data bytes.Buffer
		if _, err := io.CopyN(&data, br, int64(n)); err != nil {
			return out, malformed("envelope %d truncated: %v", len(out), err)
		}
		env := &Envelope{}
		if err := env.Unmarshal(data.Bytes()); err != nil {
			return out, fmt.Errorf("envelope %d: %w", len(out), err)
		}
		out = append(out, env)
	}
}

// ParseEnvelopes is ReadEnvelopes over a byte slice.
func ParseEnvelopes(b []byte) ([]*Envelope, error) {
	return ReadEnvelopes(bytes.NewReader(b))
}
