package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

var maxAmount = decimal.NewFromInt(10_000_000)

// ValidateAmount checks a money value is positive and below the ceiling.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", amount)
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("amount too large, got %s", amount)
	}
	return nil
}

// ValidateHours checks a time entry duration: positive, at most one day.
func ValidateHours(hours decimal.Decimal) error {
	if !hours.IsPositive() {
		return fmt.Errorf("hours must be positive, got %s", hours)
	}
	if hours.GreaterThan(decimal.NewFromInt(24)) {
		return fmt.Errorf("hours must not exceed 24, got %s", hours)
	}
	return nil
}

// ParseDate parses YYYY-MM-DD in UTC.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %w", err)
	}
	return t, nil
}

// ParseTimestamp accepts RFC 3339 or a bare date.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return ParseDate(s)
}

// ParseMonth parses YYYY-MM and returns the first instant of the month and
// of the following month.
func ParseMonth(s string) (time.Time, time.Time, error) {
	start, err := time.Parse(MonthLayout, s)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month format: %w", err)
	}
	return start, start.AddDate(0, 1, 0), nil
}

// ValidateCategory checks a ledger category name.
func ValidateCategory(category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return fmt.Errorf("category is empty")
	}
	if len([]rune(category)) > 64 {
		return fmt.Errorf("category too long, max 64 characters")
	}
	return nil
}

// ParseID parses a positive numeric path parameter.
func ParseID(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(n), nil
}
