package store

import (
	"fmt"
	"time"

	"github.com/shamba-dev/shamba/internal/week"
)

// timestampLayout is how timestamps are stored in TEXT columns.
const timestampLayout = time.RFC3339Nano

// timeValue scans DATE, TIMESTAMP and TEXT columns into a time.Time.
type timeValue struct {
	t time.Time
}

func (v *timeValue) Scan(src any) error {
	switch x := src.(type) {
	case time.Time:
		v.t = x
		return nil
	case string:
		return v.parse(x)
	case []byte:
		return v.parse(string(x))
	case nil:
		v.t = time.Time{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into time", src)
}

func (v *timeValue) parse(s string) error {
	for _, layout := range []string{timestampLayout, week.Layout, "2006-01-02 15:04:05.999999999-07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			v.t = t
			return nil
		}
	}
	return fmt.Errorf("cannot parse time %q", s)
}

// dateOnly returns the calendar date of a scanned DATE value.
func dateOnly(t time.Time) time.Time {
	return week.Truncate(t)
}
