// Package timex holds time helpers shared by configuration loading and the
// storage layer: a JSON-friendly Duration and a tolerant timestamp scanner.
package timex

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Duration wraps time.Duration so JSON config can use either "8s" style
// strings or integer nanoseconds.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		return err
	default:
		return errors.New("invalid duration")
	}
}

// layouts accepted when a timestamp arrives as text. SQLite stores
// CURRENT_TIMESTAMP as "2006-01-02 15:04:05"; older exports may carry
// Python's str(datetime) form with fractional seconds.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses s using the layouts above. The result is in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Timestamp is a sql.Scanner that accepts native time values as well as the
// textual forms SQLite hands back. Valid is false for NULL.
type Timestamp struct {
	Time  time.Time
	Valid bool
}

func (ts *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		ts.Time, ts.Valid = time.Time{}, false
		return nil
	case time.Time:
		ts.Time, ts.Valid = v.UTC(), true
		return nil
	case string:
		return ts.scanText(v)
	case []byte:
		return ts.scanText(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Timestamp", src)
	}
}

func (ts *Timestamp) scanText(s string) error {
	if strings.TrimSpace(s) == "" {
		ts.Time, ts.Valid = time.Time{}, false
		return nil
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	ts.Time, ts.Valid = t, true
	return nil
}

func (ts Timestamp) Value() (driver.Value, error) {
	if !ts.Valid {
		return nil, nil
	}
	return ts.Time.UTC(), nil
}
