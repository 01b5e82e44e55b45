package utils

import (
	"encoding/json"
	"fmt"
	"time"
)

// Empty is an empty struct, which has 0 bytes.
type Empty struct{}

// Duration is a time.Duration that is encoded as a string ("1.5s") in JSON.
// Plain numbers are accepted on decode and read as nanoseconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case float64:
		*d = Duration(time.Duration(v))
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case nil:
		*d = 0
	default:
		return fmt.Errorf("invalid duration %v", raw)
	}

	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
