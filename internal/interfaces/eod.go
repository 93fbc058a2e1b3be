package interfaces

import (
	"context"
	"time"
)

type EodSummarizer interface {
	SummarizeDay(ctx context.Context, accountID string, day time.Time) (csvPath string, err error)
	SummarizeDue(ctx context.Context, now time.Time) (csvPaths []string, err error)
	ShouldRunNow(accountID string, now time.Time) (shouldRun bool, csvPath string)
}
