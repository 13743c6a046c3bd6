package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FlexibleID holds an identifier the API may encode as a JSON number or string.
// It is compared by its string form only.
type FlexibleID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = FlexibleID(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("flexible id: unsupported value %s", string(trimmed))
	}
	*f = FlexibleID(n.String())
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f FlexibleID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

func (f FlexibleID) String() string {
	return string(f)
}

// IsZero reports whether the identifier is missing.
func (f FlexibleID) IsZero() bool {
	return strings.TrimSpace(string(f)) == ""
}
