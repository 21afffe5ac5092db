package models

// Kind identifies the concrete variant of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the JSON name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a parsed JSON value. The set of implementations is closed:
// Object, Array, String, Number, Bool and Null.
type Value interface {
	Kind() Kind
	isValue()
}

// Member is a single key/value pair of an Object.
type Member struct {
	Key   string
	Value Value
}

// Object is a JSON object whose members keep document order.
type Object []Member

// Array is a JSON array.
type Array []Value

// String is a JSON string.
type String string

// Number is a JSON number kept in its textual form.
type Number string

// Bool is a JSON boolean.
type Bool bool

// Null is the JSON null literal.
type Null struct{}

func (Object) Kind() Kind { return KindObject }
func (Array) Kind() Kind  { return KindArray }
func (String) Kind() Kind { return KindString }
func (Number) Kind() Kind { return KindNumber }
func (Bool) Kind() Kind   { return KindBool }
func (Null) Kind() Kind   { return KindNull }

func (Object) isValue() {}
func (Array) isValue()  {}
func (String) isValue() {}
func (Number) isValue() {}
func (Bool) isValue()   {}
func (Null) isValue()   {}

// Get returns the value stored under key.
func (o Object) Get(key string) (Value, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Keys returns the member keys in order.
func (o Object) Keys() []string {
	keys := make([]string, len(o))
	for i, m := range o {
		keys[i] = m.Key
	}
	return keys
}

// Set stores value under key. An existing key keeps its position and
// takes the new value; a new key is appended.
func (o *Object) Set(key string, value Value) {
	for i := range *o {
		if (*o)[i].Key == key {
			(*o)[i].Value = value
			return
		}
	}
	*o = append(*o, Member{Key: key, Value: value})
}

// SetIndexed is Set for objects built member by member. index maps each key
// already in o to its position and is updated as keys are appended.
func (o *Object) SetIndexed(index map[string]int, key string, value Value) {
	if at, ok := index[key]; ok {
		(*o)[at].Value = value
		return
	}
	index[key] = len(*o)
	*o = append(*o, Member{Key: key, Value: value})
}

// Document holds a parsed dump along with where it came from.
type Document struct {
	Root   Value
	Source string // file path, "stdin", or a remote host name
}
