// internal/tree/object.go
package tree

// Object is an insertion-ordered string-keyed map of Values.
// The zero Object is empty and ready to use.
type Object struct {
	keys []string
	vals map[string]Value
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

// Len returns the number of keys. A nil object is empty.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Get returns the value stored at k.
func (o *Object) Get(k string) (Value, bool) {
	if o == nil || o.vals == nil {
		return Value{}, false
	}
	v, ok := o.vals[k]
	return v, ok
}

// Has reports whether k is present.
func (o *Object) Has(k string) bool {
	_, ok := o.Get(k)
	return ok
}

// Set stores v at k. New keys are appended; existing keys keep their position.
func (o *Object) Set(k string, v Value) {
	if o.vals == nil {
		o.vals = make(map[string]Value)
	}
	if _, exists := o.vals[k]; !exists {
		o.keys = append(o.keys, k)
	}
	o.vals[k] = v
}

// Delete removes k if present.
func (o *Object) Delete(k string) {
	if o == nil || o.vals == nil {
		return
	}
	if _, ok := o.vals[k]; !ok {
		return
	}
	delete(o.vals, k)
	for i, key := range o.keys {
		if key == k {
			o.keys = append(o.keys[:i:i], o.keys[i+1:]...)
			break
		}
	}
}

// Range calls fn for every entry in insertion order until fn returns false.
func (o *Object) Range(fn func(k string, v Value) bool) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		if !fn(k, o.vals[k]) {
			return
		}
	}
}

// Equal compares two objects by key set and values, ignoring key order.
func (o *Object) Equal(other *Object) bool {
	if o.Len() != other.Len() {
		return false
	}
	eq := true
	o.Range(func(k string, v Value) bool {
		ov, ok := other.Get(k)
		if !ok || !Equal(v, ov) {
			eq = false
		}
		return eq
	})
	return eq
}

// Clone returns a deep copy. Cloning nil yields an empty object.
func (o *Object) Clone() *Object {
	out := &Object{
		keys: make([]string, 0, o.Len()),
		vals: make(map[string]Value, o.Len()),
	}
	o.Range(func(k string, v Value) bool {
		out.keys = append(out.keys, k)
		out.vals[k] = v.Clone()
		return true
	})
	return out
}

// Child returns the nested object at k, if any.
func (o *Object) Child(k string) (*Object, bool) {
	v, ok := o.Get(k)
	if !ok {
		return nil, false
	}
	return v.Obj()
}
