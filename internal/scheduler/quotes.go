package scheduler

import (
	"context"
	"log/slog"
	"time"

	"epargne/pkg/epargne"
)

const quoteRefreshTimeout = 2 * time.Minute

// QuoteRefresh updates market prices for every stock whose quote has
// gone stale.
type QuoteRefresh struct {
	core   *epargne.Core
	logger *slog.Logger
}

// NewQuoteRefresh creates the periodic quote refresh job.
func NewQuoteRefresh(core *epargne.Core, logger *slog.Logger) *QuoteRefresh {
	return &QuoteRefresh{core: core, logger: logger.With("job", "quote_refresh")}
}

// Name implements Job.
func (j *QuoteRefresh) Name() string { return "quote_refresh" }

// Run implements Job.
func (j *QuoteRefresh) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), quoteRefreshTimeout)
	defer cancel()

	updated, err := j.core.RefreshStaleStocks(ctx)
	if err != nil {
		return err
	}
	if updated > 0 {
		j.logger.Info("quotes refreshed", "updated", updated)
	}
	return nil
}
