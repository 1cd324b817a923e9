package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/dedidash/internal/domain/window"
)

// Window query parameters.
const (
	paramStart      = "start"
	paramEnd        = "end"
	paramDays       = "days"
	paramWeeksBack  = "weeks_back"
	paramMinRecords = "min_records"
	daysAll         = "all"
)

// ParseWindowQuery reads start, end, days and weeks_back. days is a
// positive number of days or "all".
func ParseWindowQuery(v url.Values) (window.Query, error) {
	q := window.Query{
		Start: strings.TrimSpace(v.Get(paramStart)),
		End:   strings.TrimSpace(v.Get(paramEnd)),
	}
	if days := strings.TrimSpace(v.Get(paramDays)); days != "" {
		if strings.EqualFold(days, daysAll) {
			q.All = true
		} else {
			n, err := positive(paramDays, days)
			if err != nil {
				return window.Query{}, err
			}
			q.Days = n
		}
	}
	if wb := strings.TrimSpace(v.Get(paramWeeksBack)); wb != "" {
		n, err := strconv.Atoi(wb)
		if err != nil || n < 0 {
			return window.Query{}, fmt.Errorf("%w: %s must be a non-negative integer", ErrBadRequest, paramWeeksBack)
		}
		q.WeeksBack = n
	}
	return q, nil
}

// ParseServerArgs reads the optional days and min_records of the server
// reports. Zero means the configured default.
func ParseServerArgs(v url.Values) (days, minRecords int, err error) {
	if s := strings.TrimSpace(v.Get(paramDays)); s != "" {
		if days, err = positive(paramDays, s); err != nil {
			return 0, 0, err
		}
	}
	if s := strings.TrimSpace(v.Get(paramMinRecords)); s != "" {
		if minRecords, err = positive(paramMinRecords, s); err != nil {
			return 0, 0, err
		}
	}
	return days, minRecords, nil
}

func positive(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", ErrBadRequest, name)
	}
	return n, nil
}
