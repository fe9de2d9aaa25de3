package domain

import (
	"strings"
	"time"
)

const (
	orderDateLayout     = "2006-01-02"
	orderDateTimeLayout = "2006-01-02 15:04:05"
)

// ParseOrderDate accepts "YYYY-MM-DD" or "YYYY-MM-DD HH:MM:SS", both in UTC.
func ParseOrderDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)

	layout := orderDateLayout
	if strings.Contains(value, " ") {
		layout = orderDateTimeLayout
	}

	parsed, err := time.ParseInLocation(layout, value, time.UTC)
	if err != nil {
		return time.Time{}, &ValidationError{
			Field:  "order_date",
			Reason: "must use format YYYY-MM-DD or YYYY-MM-DD HH:MM:SS",
		}
	}
	return parsed, nil
}
