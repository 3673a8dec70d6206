package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Lookback is a history window in the source's period notation:
// "5d", "1mo", "6mo", "1y", "ytd" or "max".
type Lookback string

// Cutoff returns the earliest date inside the window ending at latest.
// "max" returns the zero time.
func (l Lookback) Cutoff(latest time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(string(l)))
	switch s {
	case "", "max":
		return time.Time{}, nil
	case "ytd":
		return time.Date(latest.Year(), 1, 1, 0, 0, 0, 0, latest.Location()), nil
	}

	unit := strings.TrimLeft(s, "0123456789")
	n, err := strconv.Atoi(strings.TrimSuffix(s, unit))
	if err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("invalid lookback %q", string(l))
	}

	switch unit {
	case "d":
		return latest.AddDate(0, 0, -n), nil
	case "wk", "w":
		return latest.AddDate(0, 0, -7*n), nil
	case "mo":
		return latest.AddDate(0, -n, 0), nil
	case "y":
		return latest.AddDate(-n, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("invalid lookback %q", string(l))
	}
}

// Validate checks the window notation.
func (l Lookback) Validate() error {
	_, err := l.Cutoff(time.Now())
	return err
}
