// internal/decoder/fields.go
package decoder

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/tamzrod/printer-mirror/internal/tree"
)

// fields reads typed values out of one object of a report.
//
// Every reader writes dst only on success. A missing key is silent; a key
// of the wrong shape is logged at debug level and leaves dst alone.
type fields struct {
	obj     *tree.Object
	log     *slog.Logger
	section string
}

func (f fields) has(key string) bool { return f.obj.Has(key) }

func (f fields) value(key string) (tree.Value, bool) {
	return f.obj.Get(key)
}

func (f fields) reject(key string, v tree.Value, want string) {
	f.log.Debug("decoder: field skipped",
		"section", f.section,
		"field", key,
		"kind", v.Kind().String(),
		"want", want,
	)
}

// object descends into a nested object.
func (f fields) object(key string) (fields, bool) {
	v, ok := f.obj.Get(key)
	if !ok {
		return fields{}, false
	}
	o, ok := v.Obj()
	if !ok {
		f.reject(key, v, "object")
		return fields{}, false
	}
	return fields{obj: o, log: f.log, section: f.section + "." + key}, true
}

// float accepts a JSON number or a numeric string.
func (f fields) float(key string, dst *float64) bool {
	v, ok := f.obj.Get(key)
	if !ok {
		return false
	}
	if n, ok := v.FloatValue(); ok {
		*dst = n
		return true
	}
	if s, ok := v.Str(); ok {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*dst = n
			return true
		}
	}
	f.reject(key, v, "number")
	return false
}

// integer accepts a JSON integer or a decimal string.
func (f fields) integer(key string, dst *int) bool {
	v, ok := f.obj.Get(key)
	if !ok {
		return false
	}
	if n, ok := v.IntValue(); ok {
		*dst = int(n)
		return true
	}
	if s, ok := v.Str(); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			*dst = n
			return true
		}
	}
	f.reject(key, v, "integer")
	return false
}

func (f fields) str(key string, dst *string) bool {
	v, ok := f.obj.Get(key)
	if !ok {
		return false
	}
	s, ok := v.Str()
	if !ok {
		f.reject(key, v, "string")
		return false
	}
	*dst = s
	return true
}

func (f fields) boolean(key string, dst *bool) bool {
	v, ok := f.obj.Get(key)
	if !ok {
		return false
	}
	b, ok := v.BoolValue()
	if !ok {
		f.reject(key, v, "bool")
		return false
	}
	*dst = b
	return true
}

// enabled reads the "enable"/"disable" string form used by camera settings.
func (f fields) enabled(key string, dst *bool) bool {
	var s string
	if !f.str(key, &s) {
		return false
	}
	*dst = s == "enable"
	return true
}

// hex reads a hex string such as ams_exist_bits.
func (f fields) hex(key string, dst *uint32) bool {
	var s string
	if !f.str(key, &s) {
		return false
	}
	n, err := strconv.ParseUint(strings.TrimSpace(s), 16, 32)
	if err != nil {
		f.log.Debug("decoder: field skipped", "section", f.section, "field", key, "err", err)
		return false
	}
	*dst = uint32(n)
	return true
}

// packed returns a bitfield value that may be a hex string or an integer.
func (f fields) packed(key string) (tree.Value, bool) {
	v, ok := f.obj.Get(key)
	if !ok {
		return tree.Value{}, false
	}
	if v.Kind() != tree.KindString && !v.IsInteger() {
		f.reject(key, v, "bitfield")
		return tree.Value{}, false
	}
	return v, true
}

func (f fields) array(key string) ([]tree.Value, bool) {
	v, ok := f.obj.Get(key)
	if !ok {
		return nil, false
	}
	arr, ok := v.Arr()
	if !ok {
		f.reject(key, v, "array")
		return nil, false
	}
	return arr, true
}
