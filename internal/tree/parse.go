// internal/tree/parse.go
package tree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrMalformedPayload reports a document that failed to parse even after
// UTF-8 sanitisation.
var ErrMalformedPayload = errors.New("tree: malformed payload")

// Parse sanitises payload and decodes it into a Value, keeping object key order.
// Exactly one document is accepted; trailing data is malformed.
func Parse(payload []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(SanitizeUTF8(payload)))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("%w: trailing data after document", ErrMalformedPayload)
	}
	return v, nil
}

// ParseObject is Parse restricted to a top-level object.
func ParseObject(payload []byte) (*Object, error) {
	v, err := Parse(payload)
	if err != nil {
		return nil, err
	}
	o, ok := v.Obj()
	if !ok {
		return nil, fmt.Errorf("%w: top-level %s, want object", ErrMalformedPayload, v.Kind())
	}
	return o, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}

	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return Value{}, fmt.Errorf("unexpected delimiter %q", t)
	}
	return Value{}, fmt.Errorf("unexpected token %T", tok)
}

func decodeObject(dec *json.Decoder) (Value, error) {
	obj := NewObject()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Value{}, fmt.Errorf("object key is %T", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return Value{}, err
		}
		obj.Set(key, v)
	}
	// closing '}'
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return ObjectValue(obj), nil
}

func decodeArray(dec *json.Decoder) (Value, error) {
	items := []Value{}
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return Value{}, err
		}
		items = append(items, v)
	}
	// closing ']'
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return Array(items...), nil
}
