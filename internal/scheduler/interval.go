// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	IntervalHourly = "hourly"
	IntervalDaily  = "daily"
)

// IntervalName names the recurrence for a batch interval in minutes.
func IntervalName(minutes int) string {
	switch minutes {
	case 60:
		return IntervalHourly
	case 1440:
		return IntervalDaily
	default:
		return fmt.Sprintf("custom_%d_minutes", minutes)
	}
}

// IntervalDuration parses a name produced by IntervalName.
func IntervalDuration(name string) (time.Duration, bool) {
	switch name {
	case IntervalHourly:
		return time.Hour, true
	case IntervalDaily:
		return 24 * time.Hour, true
	}
	if !strings.HasPrefix(name, "custom_") || !strings.HasSuffix(name, "_minutes") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "custom_"), "_minutes"))
	if err != nil || n <= 0 {
		return 0, false
	}
	return time.Duration(n) * time.Minute, true
}
