package eod

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidAccountID is returned for account ids that cannot name a directory
var ErrInvalidAccountID = errors.New("eod: invalid account id")

// yesterday's summary runs this long after UTC midnight
const cutoffAfterMidnight = 15 * time.Minute

func logDir() string {
	if v := os.Getenv("JOURNAL_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

func utcDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// ValidateAccountID rejects ids that would escape the summary directory
func ValidateAccountID(accountID string) error {
	if accountID == "" || accountID == "." || accountID == ".." ||
		strings.ContainsAny(accountID, `/\`) || filepath.VolumeName(accountID) != "" {
		return fmt.Errorf("%w: %q", ErrInvalidAccountID, accountID)
	}
	return nil
}

func eodCSVPath(dir, accountID string, day time.Time) (string, error) {
	if err := ValidateAccountID(accountID); err != nil {
		return "", err
	}
	return filepath.Join(dir, "eod", accountID, day.Format("2006-01-02")+".csv"), nil
}

func dayCutoff(now time.Time) time.Time {
	return utcDay(now).Add(cutoffAfterMidnight)
}
