package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Value is a single metric entry: either a number or a text label such as a
// unit. Text values are never scaled or interpolated.
type Value struct {
	num    float64
	text   string
	isText bool
}

// Num wraps a numeric value.
func Num(v float64) Value { return Value{num: v} }

// Text wraps a text value.
func Text(s string) Value { return Value{text: s, isText: true} }

// IsText reports whether v holds text.
func (v Value) IsText() bool { return v.isText }

// Float returns the numeric payload and false for text values.
func (v Value) Float() (float64, bool) {
	if v.isText {
		return 0, false
	}
	return v.num, true
}

// Str returns the text payload and false for numeric values.
func (v Value) Str() (string, bool) {
	if !v.isText {
		return "", false
	}
	return v.text, true
}

// Scale multiplies numeric values by f and passes text through.
func (v Value) Scale(f float64) Value {
	if v.isText {
		return v
	}
	return Num(v.num * f)
}

func (v Value) String() string {
	if v.isText {
		return v.text
	}
	return strconv.FormatFloat(v.num, 'g', -1, 64)
}

// MarshalJSON encodes numbers as JSON numbers and text as JSON strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.isText {
		return json.Marshal(v.text)
	}
	return json.Marshal(v.num)
}

// UnmarshalJSON accepts a JSON number or string.
func (v *Value) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = Num(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("value must be a number or string: %s", string(data))
	}
	*v = Text(s)
	return nil
}
