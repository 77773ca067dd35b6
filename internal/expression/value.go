package expression

import (
	"fmt"
	"strconv"

	"github.com/jmylchreest/streamfold/internal/models"
)

// Kind identifies the variant held by a Value.
type Kind int

// Value kinds.
const (
	KindBool Kind = iota
	KindNumber
	KindString
	KindStreams
)

// String returns the name of the kind as used in error messages.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindStreams:
		return "stream array"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is the tagged result of evaluating a node.
type Value struct {
	Kind    Kind
	Bool    bool
	Number  float64
	Str     string
	Streams []*models.ParsedStream
}

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{Kind: KindNumber, Number: n} }

// String returns a string value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Streams returns a stream array value. A nil slice is stored as empty.
func Streams(s []*models.ParsedStream) Value {
	if s == nil {
		s = []*models.ParsedStream{}
	}
	return Value{Kind: KindStreams, Streams: s}
}

// Truthy applies the engine's truthiness rules: false, 0, "" and empty
// stream arrays are falsy.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Number != 0
	case KindString:
		return v.Str != ""
	case KindStreams:
		return len(v.Streams) > 0
	default:
		return false
	}
}

// Interface returns the value as a plain Go value for serialisation.
func (v Value) Interface() any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Number
	case KindString:
		return v.Str
	case KindStreams:
		return v.Streams
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindString:
		return strconv.Quote(v.Str)
	case KindStreams:
		return fmt.Sprintf("[%d streams]", len(v.Streams))
	default:
		return "<invalid>"
	}
}

// Env holds the bindings visible to an expression during one evaluation.
type Env map[string]Value
