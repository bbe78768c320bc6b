package metadata

import (
	"fmt"
	"io"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
)

const (
	schemaFile    = "semcore/metadata.proto"
	schemaPackage = "semcore.metadata."
)

// DumpFormat selects the rendering of Dump.
type DumpFormat int

const (
	DumpText DumpFormat = iota
	DumpJSON
)

var schema = sync.OnceValues(func() (*desc.FileDescriptor, error) {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{schemaFile: schemaSource}),
	}
	fds, err := parser.ParseFiles(schemaFile)
	if err != nil {
		return nil, fmt.Errorf("metadata schema: %w", err)
	}
	return fds[0], nil
})

// decodeDynamic decodes b as the schema message named msg.
func decodeDynamic(msg string, b []byte) (*dynamic.Message, error) {
	fd, err := schema()
	if err != nil {
		return nil, err
	}
	md := fd.FindMessage(schemaPackage + msg)
	if md == nil {
		return nil, fmt.Errorf("metadata schema has no message %s", msg)
	}
	m := dynamic.NewMessage(md)
	if err := m.Unmarshal(b); err != nil {
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	return m, nil
}

// Dump renders env and its payload through the metadata schema. It does
// not need the Go record types, so it also shows fields they ignore.
func Dump(w io.Writer, env *Envelope, format DumpFormat) error {
	header, err := decodeDynamic("Envelope", env.Marshal())
	if err != nil {
		return err
	}
	header.ClearFieldByNumber(int(envData))

	payloadType := "Class"
	if env.Kind == KindPackage {
		payloadType = "Package"
	}
	payload, err := decodeDynamic(payloadType, env.Data)
	if err != nil {
		return err
	}

	switch format {
	case DumpJSON:
		hj, err := header.MarshalJSONIndent()
		if err != nil {
			return err
		}
		pj, err := payload.MarshalJSONIndent()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "{\"envelope\": %s, \"payload\": %s}\n", hj, pj)
		return err
	default:
		ht, err := header.MarshalTextIndent()
		if err != nil {
			return err
		}
		pt, err := payload.MarshalTextIndent()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "# %s %s (metadata %s, abi %s)\n%s\n# payload\n%s\n",
			env.Kind, env.Name, env.MetadataVersion, env.ABIVersion, ht, pt)
		return err
	}
}
