package httpx

import (
	"encoding/json"
	"fmt"
	"time"
)

// Date is a request date that accepts either YYYY-MM-DD or an RFC3339 timestamp.
// Plain dates decode to midnight UTC.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if raw == "" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fmt.Errorf("date %q: use YYYY-MM-DD or RFC3339", raw)
	}
	d.Time = t
	return nil
}

// Ptr returns the date as a *time.Time, nil when d is nil or zero.
func (d *Date) Ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}
