package value

import "github.com/vmihailenco/msgpack/v5"

// wireValue is the on-the-wire shape of a Value: a kind discriminator
// plus exactly the field meaningful for that kind. msgpack struct tags
// keep the encoding compact; omitempty drops the fields a given kind
// never uses.
type wireValue struct {
	Kind   uint8             `msgpack:"k"`
	Bool   bool              `msgpack:"b,omitempty"`
	Number float64           `msgpack:"n,omitempty"`
	String string            `msgpack:"s,omitempty"`
	Array  []wireValue       `msgpack:"a,omitempty"`
	Keys   []string          `msgpack:"mk,omitempty"`
	Map    map[string]wireValue `msgpack:"mv,omitempty"`
}

func toWire(v Value) wireValue {
	w := wireValue{Kind: uint8(v.kind)}
	switch v.kind {
	case KindBool:
		w.Bool = v.b
	case KindNumber:
		w.Number = v.n
	case KindString:
		w.String = v.s
	case KindArray:
		w.Array = make([]wireValue, len(v.arr))
		for i, item := range v.arr {
			w.Array[i] = toWire(item)
		}
	case KindMap:
		w.Keys = append([]string(nil), v.keys...)
		w.Map = make(map[string]wireValue, len(v.m))
		for k, val := range v.m {
			w.Map[k] = toWire(val)
		}
	}
	return w
}

func fromWire(w wireValue) Value {
	switch Kind(w.Kind) {
	case KindBool:
		return Bool(w.Bool)
	case KindNumber:
		return Number(w.Number)
	case KindString:
		return String(w.String)
	case KindArray:
		items := make([]Value, len(w.Array))
		for i, item := range w.Array {
			items[i] = fromWire(item)
		}
		return Array(items...)
	case KindMap:
		v := Map()
		for _, k := range w.Keys {
			v = v.WithField(k, fromWire(w.Map[k]))
		}
		return v
	default:
		return Null
	}
}

// MarshalMsgpack implements msgpack.Marshaler so a Value can be
// embedded directly in any boundary envelope struct.
func (v Value) MarshalMsgpack() ([]byte, error) {
	return msgpack.Marshal(toWire(v))
}

// UnmarshalMsgpack implements msgpack.Unmarshaler.
func (v *Value) UnmarshalMsgpack(data []byte) error {
	var w wireValue
	if err := msgpack.Unmarshal(data, &w); err != nil {
		return err
	}
	*v = fromWire(w)
	return nil
}

// Encode returns the canonical binary encoding used at the boundary.
func Encode(v Value) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Decode parses the canonical binary encoding back into a Value.
func Decode(data []byte) (Value, error) {
	var v Value
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return Value{}, err
	}
	return v, nil
}
