package serverdate

import (
	"net/http"
	"time"
)

const (
	dateStringLayout = "Mon Jan 02 2006"
	timeStringLayout = "15:04:05 GMT-0700 (MST)"
	isoStringLayout  = "2006-01-02T15:04:05.000Z07:00"
)

// Date is a read-only calendar view of an instant in a given location.
type Date struct {
	t time.Time
}

// Date returns the clock's current time in the local time zone.
func (c *Clock) Date() Date {
	return c.DateIn(time.Local)
}

func (c *Clock) DateIn(loc *time.Location) Date {
	return Date{t: c.Now().In(loc)}
}

func (d Date) Time() time.Time { return d.t }

func (d Date) UnixMilli() int64 { return d.t.UnixMilli() }

func (d Date) FullYear() int            { return d.t.Year() }
func (d Date) Month() time.Month        { return d.t.Month() }
func (d Date) Day() int                 { return d.t.Day() }
func (d Date) Weekday() time.Weekday    { return d.t.Weekday() }
func (d Date) Hours() int               { return d.t.Hour() }
func (d Date) Minutes() int             { return d.t.Minute() }
func (d Date) Seconds() int             { return d.t.Second() }
func (d Date) Milliseconds() int        { return d.t.Nanosecond() / int(time.Millisecond) }
func (d Date) UTCFullYear() int         { return d.t.UTC().Year() }
func (d Date) UTCMonth() time.Month     { return d.t.UTC().Month() }
func (d Date) UTCDay() int              { return d.t.UTC().Day() }
func (d Date) UTCWeekday() time.Weekday { return d.t.UTC().Weekday() }
func (d Date) UTCHours() int            { return d.t.UTC().Hour() }
func (d Date) UTCMinutes() int          { return d.t.UTC().Minute() }
func (d Date) UTCSeconds() int          { return d.t.UTC().Second() }
func (d Date) UTCMilliseconds() int     { return d.Milliseconds() }

// TimezoneOffset returns the difference between UTC and local time in
// minutes; it is positive west of Greenwich.
func (d Date) TimezoneOffset() int {
	_, secs := d.t.Zone()
	return -secs / 60
}

func (d Date) String() string {
	return d.DateString() + " " + d.TimeString()
}

func (d Date) DateString() string {
	return d.t.Format(dateStringLayout)
}

func (d Date) TimeString() string {
	return d.t.Format(timeStringLayout)
}

func (d Date) UTCString() string {
	return d.t.UTC().Format(http.TimeFormat)
}

func (d Date) ISOString() string {
	return d.t.UTC().Format(isoStringLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.ISOString() + `"`), nil
}
