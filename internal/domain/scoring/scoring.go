// Package scoring defines round values and the total order used to rank them.
//
// A round value is a finite number, one of the two sentinel outcomes
// ("dnc" for did-not-compete, "dsq" for disqualified), or absent. Best to
// worst: numbers (larger first), dnc, dsq, absent.
package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Wire forms of the sentinel outcomes.
const (
	DNC = "dnc"
	DSQ = "dsq"
)

// Kind tags a Value. The declaration order is the ranking order.
type Kind uint8

const (
	// Absent is the zero Kind so that the zero Value means "not played".
	Absent Kind = iota
	Number
	DidNotCompete
	Disqualified
)

// rank maps a kind to its category position, best first.
func (k Kind) rank() int {
	switch k {
	case Number:
		return 0
	case DidNotCompete:
		return 1
	case Disqualified:
		return 2
	default:
		return 3
	}
}

func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case DidNotCompete:
		return DNC
	case Disqualified:
		return DSQ
	default:
		return "absent"
	}
}

// Value is one round result.
type Value struct {
	kind Kind
	num  float64
}

// ErrInvalidValue is returned by Parse for shapes that are not a round result.
var ErrInvalidValue = errors.New("invalid score value")

// Num returns a numeric value. Callers must pass a finite number; use Parse
// for untrusted input.
func Num(x float64) Value { return Value{kind: Number, num: x} }

// DidNotCompeteValue returns the "dnc" sentinel.
func DidNotCompeteValue() Value { return Value{kind: DidNotCompete} }

// DisqualifiedValue returns the "dsq" sentinel.
func DisqualifiedValue() Value { return Value{kind: Disqualified} }

// AbsentValue returns the value of a round with no valid submission.
func AbsentValue() Value { return Value{} }

func (v Value) Kind() Kind         { return v.kind }
func (v Value) IsAbsent() bool     { return v.kind == Absent }
func (v Value) IsNumber() bool     { return v.kind == Number }
func (v Value) Float() float64     { return v.num }
func (v Value) Equal(o Value) bool { return Compare(v, o) == 0 }

func (v Value) String() string {
	if v.kind == Number {
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	}
	return v.kind.String()
}

// Compare orders a before b when it returns a negative number, i.e. when a is
// the better result. Numbers compare by value, larger first.
func Compare(a, b Value) int {
	if ra, rb := a.kind.rank(), b.kind.rank(); ra != rb {
		return ra - rb
	}
	if a.kind != Number {
		return 0
	}
	switch {
	case a.num > b.num:
		return -1
	case a.num < b.num:
		return 1
	default:
		return 0
	}
}

// Best returns the best value of vs, or absent for an empty slice.
func Best(vs []Value) Value {
	best := AbsentValue()
	for _, v := range vs {
		if Compare(v, best) < 0 {
			best = v
		}
	}
	return best
}

// Parse classifies a raw submitted score. Accepted shapes are finite numbers
// of any Go numeric kind, json.Number, and the strings "dnc" and "dsq".
func Parse(raw any) (Value, error) {
	var x float64
	switch s := raw.(type) {
	case float64:
		x = s
	case float32:
		x = float64(s)
	case int:
		x = float64(s)
	case int8:
		x = float64(s)
	case int16:
		x = float64(s)
	case int32:
		x = float64(s)
	case int64:
		x = float64(s)
	case uint:
		x = float64(s)
	case uint8:
		x = float64(s)
	case uint16:
		x = float64(s)
	case uint32:
		x = float64(s)
	case uint64:
		x = float64(s)
	case json.Number:
		f, err := s.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q", ErrInvalidValue, s.String())
		}
		x = f
	case string:
		switch s {
		case DNC:
			return DidNotCompeteValue(), nil
		case DSQ:
			return DisqualifiedValue(), nil
		}
		return Value{}, fmt.Errorf("%w: %q", ErrInvalidValue, s)
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrInvalidValue, raw)
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return Value{}, fmt.Errorf("%w: %v", ErrInvalidValue, x)
	}
	return Num(x), nil
}

// MarshalJSON encodes numbers as JSON numbers, sentinels as strings and
// absent as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Number:
		return json.Marshal(v.num)
	case DidNotCompete:
		return json.Marshal(DNC)
	case Disqualified:
		return json.Marshal(DSQ)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts the forms produced by MarshalJSON.
func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = AbsentValue()
		return nil
	}
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
