package eodobs

import (
	"context"
	"time"

	"trading-journal/internal/interfaces"
	"trading-journal/internal/logger"
	"trading-journal/internal/trace"
)

type observableEodSummarizer struct {
	summarizer interfaces.EodSummarizer
}

var _ interfaces.EodSummarizer = (*observableEodSummarizer)(nil)

func Wrap(summarizer interfaces.EodSummarizer) interfaces.EodSummarizer {
	return &observableEodSummarizer{
		summarizer: summarizer,
	}
}

func (oes *observableEodSummarizer) SummarizeDay(ctx context.Context, accountID string, day time.Time) (string, error) {
	ctx, span := trace.StartSpan(ctx, "eod.SummarizeDay")
	defer span.End()

	date := day.UTC().Format("2006-01-02")
	logger.InfoSkip(ctx, 1, "Starting EOD summary generation",
		"account_id", accountID,
		"date", date,
	)

	csvPath, err := oes.summarizer.SummarizeDay(ctx, accountID, day)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "EOD summary generation failed", err,
			"account_id", accountID,
			"date", date,
		)
		return "", err
	}

	if csvPath == "" {
		logger.InfoSkip(ctx, 1, "No closed trades for EOD summary",
			"account_id", accountID,
			"date", date,
		)
		return "", nil
	}

	logger.InfoSkip(ctx, 1, "EOD summary generated successfully",
		"account_id", accountID,
		"date", date,
		"csv_path", csvPath,
	)
	return csvPath, nil
}

func (oes *observableEodSummarizer) SummarizeDue(ctx context.Context, now time.Time) ([]string, error) {
	ctx, span := trace.StartSpan(ctx, "eod.SummarizeDue")
	defer span.End()

	paths, err := oes.summarizer.SummarizeDue(ctx, now)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Due EOD summaries failed", err, "written", len(paths))
		return paths, err
	}

	if len(paths) > 0 {
		logger.InfoSkip(ctx, 1, "Due EOD summaries written", "csv_paths", paths)
	}
	return paths, nil
}

func (oes *observableEodSummarizer) ShouldRunNow(accountID string, now time.Time) (bool, string) {
	ctx, span := trace.StartSpan(context.Background(), "eod.ShouldRunNow")
	defer span.End()

	shouldRun, csvPath := oes.summarizer.ShouldRunNow(accountID, now)

	logger.DebugSkip(ctx, 1, "EOD check completed",
		"account_id", accountID,
		"should_run", shouldRun,
		"csv_path", csvPath,
	)
	return shouldRun, csvPath
}
