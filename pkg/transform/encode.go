package transform

import (
	"bytes"
	"encoding/gob"

	"github.com/pkg/errors"
)

// payload indirects staged values through an interface field so that the
// decoded value keeps its concrete type.
type payload struct {
	V any
}

// Register records a concrete payload type with the codec. Callers staging
// values of their own struct types must register them once at startup;
// builtin types need no registration.
func Register(v any) {
	gob.Register(v)
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(payload{V: v}); err != nil {
		return nil, errors.Wrap(err, "encode staged object")
	}
	return buf.Bytes(), nil
}

func decode(b []byte) (any, error) {
	var p payload
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&p); err != nil {
		return nil, errors.Wrap(err, "decode staged object")
	}
	return p.V, nil
}

// ObjectSize reports the serialized size of v in bytes. Strings and byte
// slices are measured directly; everything else pays one encoding pass.
func ObjectSize(v any) int {
	switch x := v.(type) {
	case string:
		return len(x)
	case []byte:
		return len(x)
	}
	b, err := encode(v)
	if err != nil {
		return 0
	}
	return len(b)
}
