package calendar

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// A 股交易时段, 以秒计的当日偏移, 边界含端点。
const (
	morningOpen    = 9*3600 + 25*60
	morningClose   = 11*3600 + 30*60
	afternoonOpen  = 13 * 3600
	afternoonClose = 15 * 3600
)

// Options configure the trading calendar.
// ExtraHolidays close additional dates; ExtraWorkdays take precedence
// over the built-in holiday table so shipped data can be corrected
// without a rebuild. Dates use YYYY-MM-DD.
type Options struct {
	Timezone      string
	ExtraHolidays []string
	ExtraWorkdays []string
}

// Calendar answers whether the A-share market is open at a given instant.
type Calendar struct {
	loc      *time.Location
	holidays map[string]string
	workdays map[string]string
}

// New builds a calendar from the built-in 2024-2026 holiday tables plus
// any configured extras.
func New(opts Options) (*Calendar, error) {
	tz := opts.Timezone
	if tz == "" {
		tz = "Asia/Shanghai"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}

	c := &Calendar{
		loc:      loc,
		holidays: make(map[string]string, len(builtinHolidays)+len(opts.ExtraHolidays)),
		workdays: make(map[string]string, len(builtinWorkdays)+len(opts.ExtraWorkdays)),
	}
	for d, name := range builtinHolidays {
		c.holidays[d] = name
	}
	for d, name := range builtinWorkdays {
		c.workdays[d] = name
	}
	for _, d := range opts.ExtraHolidays {
		if err := checkDate(d); err != nil {
			return nil, fmt.Errorf("extra holiday: %w", err)
		}
		c.holidays[d] = "配置假日"
	}
	for _, d := range opts.ExtraWorkdays {
		if err := checkDate(d); err != nil {
			return nil, fmt.Errorf("extra workday: %w", err)
		}
		c.workdays[d] = "配置工作日"
	}
	return c, nil
}

func checkDate(s string) error {
	if _, err := time.Parse(dateLayout, s); err != nil {
		return fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", s)
	}
	return nil
}

// Location returns the calendar timezone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// HolidayName reports the festival closing the market on the given day.
func (c *Calendar) HolidayName(t time.Time) (string, bool) {
	name, ok := c.holidays[t.In(c.loc).Format(dateLayout)]
	return name, ok
}

// IsWorkday reports whether the date is a working day: weekdays minus
// statutory holidays, plus weekend make-up days.
func (c *Calendar) IsWorkday(t time.Time) bool {
	d := t.In(c.loc)
	key := d.Format(dateLayout)
	if _, ok := c.workdays[key]; ok {
		return true
	}
	if _, ok := c.holidays[key]; ok {
		return false
	}
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// IsOpen reports whether the A-share market is trading at t.
// Make-up workdays never open the market: exchanges stay closed on
// weekends even when offices work.
func (c *Calendar) IsOpen(t time.Time) bool {
	d := t.In(c.loc)
	if !c.IsWorkday(d) {
		return false
	}
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	sec := d.Hour()*3600 + d.Minute()*60 + d.Second()
	if sec >= morningOpen && sec <= morningClose {
		return true
	}
	return sec >= afternoonOpen && sec <= afternoonClose
}
