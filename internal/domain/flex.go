package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexString holds values that arrive as either JSON strings or numbers,
// e.g. sets: 4 and reps: "8-12" on the same workout item.
type FlexString string

// UnmarshalJSON accepts a JSON string, a JSON number or null.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// Measure is a numeric anthropometric or financial value. Older profiles
// stored these as strings ("72.5"), so both forms are accepted on decode.
type Measure float64

// UnmarshalJSON accepts 72.5, "72.5", "" and null.
func (m *Measure) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*m = 0
		return nil
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if s == "" {
		*m = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("measure %q: %w", s, err)
	}
	*m = Measure(v)
	return nil
}

// String renders the value without trailing zeros; zero renders as "".
func (m Measure) String() string {
	if m == 0 {
		return ""
	}
	return strconv.FormatFloat(float64(m), 'f', -1, 64)
}

// ParseMeasure converts a remote column value into a Measure, returning 0
// for empty or unparsable input.
func ParseMeasure(s string) Measure {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return Measure(v)
}
