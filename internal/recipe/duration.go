package recipe

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ErrMissingDuration = errors.New("blockable step has no time requirement")
var ErrBadDuration = errors.New("unrecognised duration")

var durationPart = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([a-zA-Z]+|小时|分钟|分|秒钟|秒)`)

var unitScale = map[string]time.Duration{
	"h":       time.Hour,
	"hr":      time.Hour,
	"hrs":     time.Hour,
	"hour":    time.Hour,
	"hours":   time.Hour,
	"小时":      time.Hour,
	"m":       time.Minute,
	"min":     time.Minute,
	"mins":    time.Minute,
	"minute":  time.Minute,
	"minutes": time.Minute,
	"分钟":      time.Minute,
	"分":       time.Minute,
	"s":       time.Second,
	"sec":     time.Second,
	"secs":    time.Second,
	"second":  time.Second,
	"seconds": time.Second,
	"秒钟":      time.Second,
	"秒":       time.Second,
}

// ParseDuration accepts Go duration syntax ("1h30m") or a run of
// number+unit pairs in English or Chinese ("1 hour 30 minutes", "40分钟").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMissingDuration
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("%w: %q", ErrBadDuration, s)
		}
		return d, nil
	}

	matches := durationPart.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadDuration, s)
	}

	var total time.Duration
	for _, m := range matches {
		unit, ok := unitScale[strings.ToLower(m[2])]
		if !ok {
			return 0, fmt.Errorf("%w: unit %q in %q", ErrBadDuration, m[2], s)
		}
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadDuration, s)
		}
		total += time.Duration(n * float64(unit))
	}
	if total <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadDuration, s)
	}
	return total, nil
}
