package service

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ParseCron validates a cron expression with 5 fields, 6 fields (leading
// seconds) or an @ descriptor. It reports whether the expression carries
// seconds.
func ParseCron(expr string) (withSeconds bool, err error) {
	e := strings.TrimSpace(expr)
	if e == "" {
		return false, errors.New("empty cron expression")
	}

	// Macros / @every handled by ParseStandard
	if strings.HasPrefix(e, "@") {
		_, err := cron.ParseStandard(e)
		return false, err
	}

	switch n := len(strings.Fields(e)); n {
	case 5:
		_, err := cron.ParseStandard(e)
		return false, err
	case 6:
		parser6 := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		_, err := parser6.Parse(e)
		return err == nil, err
	default:
		return false, fmt.Errorf("invalid field count: got %d (want 5 or 6)", n)
	}
}

var cueDurationRx = regexp.MustCompile(`^(\d+d)?(\d+h)?(\d+m)?(\d+s)?$`)

// ParseCueDuration parses strings matching ^(\d+d)?(\d+h)?(\d+m)?(\d+s)?$ into time.Duration.
// Supports ordered day/hour/minute/second segments. Empty string rejected.
func ParseCueDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, errors.New("empty duration")
	}
	m := cueDurationRx.FindStringSubmatch(s)
	if m == nil {
		return 0, errors.New("invalid duration format")
	}
	var total time.Duration
	for _, seg := range m[1:] {
		if seg == "" {
			continue
		}
		val, err := strconv.ParseInt(seg[:len(seg)-1], 10, 64)
		if err != nil {
			return 0, errors.New("invalid number in " + seg)
		}
		var unit time.Duration
		switch seg[len(seg)-1] {
		case 'd':
			unit = 24 * time.Hour
		case 'h':
			unit = time.Hour
		case 'm':
			unit = time.Minute
		case 's':
			unit = time.Second
		}
		if val > int64(math.MaxInt64/unit) {
			return 0, errors.New("duration overflow")
		}
		add := unit * time.Duration(val)
		if total > time.Duration(math.MaxInt64)-add {
			return 0, errors.New("duration overflow")
		}
		total += add
	}
	return total, nil
}

// ParseDuration accepts the day based form of ParseCueDuration ("1d12h")
// as well as anything time.ParseDuration does ("1.5m", "250ms").
func ParseDuration(s string) (time.Duration, error) {
	if d, err := ParseCueDuration(s); err == nil {
		return d, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}
