package models

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Range is an inclusive [Min, Max] bound used for seeders and sizes.
// In configuration it is written as a two element list whose items are either
// numbers or human readable sizes such as "1.5GB".
type Range struct {
	Min int64
	Max int64
}

// NewRange returns the range [lo, hi].
func NewRange(lo, hi int64) *Range {
	return &Range{Min: lo, Max: hi}
}

// Contains reports whether v lies within the range.
func (r *Range) Contains(v int64) bool {
	return r != nil && v >= r.Min && v <= r.Max
}

// Validate checks that the bounds are ordered and non-negative.
func (r *Range) Validate() error {
	if r == nil {
		return nil
	}
	if r.Min < 0 || r.Max < 0 {
		return fmt.Errorf("range bounds must be non-negative, got [%d, %d]", r.Min, r.Max)
	}
	if r.Min > r.Max {
		return fmt.Errorf("range minimum %d exceeds maximum %d", r.Min, r.Max)
	}
	return nil
}

// String renders the range with human readable sizes.
func (r *Range) String() string {
	if r == nil {
		return "[]"
	}
	return fmt.Sprintf("[%s, %s]", humanize.Bytes(uint64(r.Min)), humanize.Bytes(uint64(r.Max)))
}

// MarshalJSON writes the range as a two element array.
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int64{r.Min, r.Max})
}

// UnmarshalJSON reads a two element array of numbers or size strings.
func (r *Range) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("range must be a [min, max] list: %w", err)
	}
	return r.fromList(raw)
}

// MarshalYAML writes the range as a two element sequence.
func (r Range) MarshalYAML() (any, error) {
	return []int64{r.Min, r.Max}, nil
}

// UnmarshalYAML reads a two element sequence of numbers or size strings.
func (r *Range) UnmarshalYAML(value *yaml.Node) error {
	var raw []any
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("range must be a [min, max] list: %w", err)
	}
	return r.fromList(raw)
}

func (r *Range) fromList(raw []any) error {
	if len(raw) != 2 {
		return fmt.Errorf("range must have exactly 2 items, got %d", len(raw))
	}
	lo, err := ParseQuantity(raw[0])
	if err != nil {
		return fmt.Errorf("range minimum: %w", err)
	}
	hi, err := ParseQuantity(raw[1])
	if err != nil {
		return fmt.Errorf("range maximum: %w", err)
	}
	r.Min, r.Max = lo, hi
	return nil
}

// ParseQuantity converts a decoded config value into an integer. Strings are
// parsed as plain integers first and then as human readable byte sizes.
func ParseQuantity(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, nil
		}
		b, err := humanize.ParseBytes(n)
		if err != nil {
			return 0, fmt.Errorf("invalid size %q: %w", n, err)
		}
		return int64(b), nil
	default:
		return 0, fmt.Errorf("unsupported value %v of type %T", v, v)
	}
}
