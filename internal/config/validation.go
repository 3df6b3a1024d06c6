package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// ParseCronSchedule validates a standard five-field cron expression
// (minute hour day-of-month month day-of-week).
func ParseCronSchedule(schedule string) (cron.Schedule, error) {
	if strings.TrimSpace(schedule) == "" {
		return nil, fmt.Errorf("empty schedule")
	}

	if fields := strings.Fields(schedule); len(fields) != 5 && !strings.HasPrefix(schedule, "@") {
		return nil, fmt.Errorf("invalid number of fields in schedule")
	}

	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", schedule, err)
	}
	return sched, nil
}
