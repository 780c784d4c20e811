package credit

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// DefaultSettlementRule settles once a month on the day the profile was opened
const DefaultSettlementRule = "FREQ=MONTHLY;INTERVAL=1"

// SettlementCalendar computes settlement dates from an RFC 5545 recurrence rule
type SettlementCalendar struct {
	rule   string
	option rrule.ROption
}

func NewSettlementCalendar(rule string) (*SettlementCalendar, error) {
	if rule == "" {
		rule = DefaultSettlementRule
	}
	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return nil, fmt.Errorf("invalid settlement rule %q: %w", rule, err)
	}
	if opt.Count != 0 || !opt.Until.IsZero() {
		return nil, fmt.Errorf("settlement rule %q must not be bounded by COUNT or UNTIL", rule)
	}
	return &SettlementCalendar{rule: rule, option: *opt}, nil
}

func (c *SettlementCalendar) Rule() string {
	return c.rule
}

// Next returns the first occurrence strictly after max(anchor, today) of the
// series that starts at anchor. A late settlement therefore keeps the
// original cadence instead of drifting to the day it actually ran.
func (c *SettlementCalendar) Next(anchor, today time.Time) (time.Time, error) {
	anchor = DateOf(anchor)
	today = DateOf(today)

	opt := c.option
	opt.Dtstart = anchor
	r, err := rrule.NewRRule(opt)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to build settlement rule: %w", err)
	}

	from := anchor
	if today.After(from) {
		from = today
	}
	next := r.After(from, false)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("settlement rule %q has no occurrence after %s", c.rule, from.Format(time.DateOnly))
	}
	return DateOf(next), nil
}
