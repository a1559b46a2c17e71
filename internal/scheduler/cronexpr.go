package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronExpr is a parsed 5-field cron expression (minute hour dom month dow),
// each field either "*" or a comma-separated list of integers. No ranges,
// steps, or named months/days — the command set this drives is small and
// code-declared, so the minimal subset actually used is what's supported.
// No cron-parsing library appears anywhere in the retrieved corpus, so this
// is the one hand-rolled, stdlib-only piece of the scheduler (see DESIGN.md).
type CronExpr struct {
	minute, hour, dom, month, dow fieldSet
}

type fieldSet struct {
	any    bool
	values map[int]struct{}
}

func (f fieldSet) matches(v int) bool {
	if f.any {
		return true
	}
	_, ok := f.values[v]
	return ok
}

// ParseCron parses a 5-field cron expression.
func ParseCron(expr string) (*CronExpr, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron expression %q must have 5 fields, got %d", expr, len(fields))
	}
	parsed := make([]fieldSet, 5)
	for i, f := range fields {
		fs, err := parseField(f)
		if err != nil {
			return nil, fmt.Errorf("cron field %d (%q): %w", i, f, err)
		}
		parsed[i] = fs
	}
	return &CronExpr{minute: parsed[0], hour: parsed[1], dom: parsed[2], month: parsed[3], dow: parsed[4]}, nil
}

func parseField(f string) (fieldSet, error) {
	if f == "*" {
		return fieldSet{any: true}, nil
	}
	values := make(map[int]struct{})
	for _, part := range strings.Split(f, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return fieldSet{}, fmt.Errorf("not an integer: %q", part)
		}
		values[n] = struct{}{}
	}
	return fieldSet{values: values}, nil
}

// Matches reports whether t falls on a minute this expression fires.
func (c *CronExpr) Matches(t time.Time) bool {
	return c.minute.matches(t.Minute()) &&
		c.hour.matches(t.Hour()) &&
		c.dom.matches(t.Day()) &&
		c.month.matches(int(t.Month())) &&
		c.dow.matches(int(t.Weekday()))
}
