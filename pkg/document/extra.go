package document

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Extra holds JSON members a type does not declare, keyed by member name.
// They are written back on marshal so stored pages round-trip unchanged.
type Extra map[string]json.RawMessage

func (e Extra) clone() Extra {
	if e == nil {
		return nil
	}
	out := make(Extra, len(e))
	for k, v := range e {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// splitExtra returns the members of the JSON object data not named in known.
func splitExtra(data []byte, known ...string) (Extra, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return Extra(all), nil
}

// mergeExtra adds extra members to the encoded object base. Declared
// members win over extras of the same name.
func mergeExtra(base []byte, extra Extra) ([]byte, error) {
	if len(extra) == 0 {
		return base, nil
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(base, &all); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := all[k]; !ok {
			all[k] = v
		}
	}
	return json.Marshal(all)
}

// Scalar is a metadata value kept exactly as stored, whether the JSON
// holds a string, a number or anything else. The zero value is absent.
type Scalar []byte

// ScalarOf encodes v as a Scalar.
func ScalarOf(v any) Scalar {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func (s Scalar) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	return s, nil
}

func (s *Scalar) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = nil
		return nil
	}
	*s = append(Scalar(nil), data...)
	return nil
}

// String returns string values unquoted and any other value as its JSON text.
func (s Scalar) String() string {
	if len(s) == 0 {
		return ""
	}
	var str string
	if err := json.Unmarshal(s, &str); err == nil {
		return str
	}
	return string(s)
}

// Int reads the value as an integer, accepting numeric strings.
func (s Scalar) Int() (int, error) {
	var n int
	if err := json.Unmarshal(s, &n); err == nil {
		return n, nil
	}
	n, err := strconv.Atoi(s.String())
	if err != nil {
		return 0, fmt.Errorf("not an integer: %s", string(s))
	}
	return n, nil
}
