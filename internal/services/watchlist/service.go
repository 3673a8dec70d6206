// Package watchlist reports on instruments tracked without quantities
package watchlist

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/pulse/internal/interfaces"
	"github.com/bobmcallan/pulse/internal/models"
	"github.com/bobmcallan/pulse/internal/services/fundamentals"
	"github.com/bobmcallan/pulse/internal/services/portfolio"
	"github.com/bobmcallan/pulse/internal/services/pricetable"
	"github.com/bobmcallan/pulse/internal/signals"
)

// Compile-time interface check
var _ interfaces.WatchlistService = (*Service)(nil)

// Service implements WatchlistService
type Service struct {
	source     interfaces.MarketDataSource
	computer   *signals.Computer
	normalizer *fundamentals.Normalizer
	opts       portfolio.Options
	logger     arbor.ILogger
	now        func() time.Time // injectable clock for testing
}

// NewService creates a new watchlist service. TargetCurrency in opts is
// unused; watchlist prices stay in the instrument's own currency.
func NewService(source interfaces.MarketDataSource, computer *signals.Computer, normalizer *fundamentals.Normalizer, opts portfolio.Options, logger arbor.ILogger) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.InstrumentTimeout <= 0 {
		opts.InstrumentTimeout = 15 * time.Second
	}
	return &Service{
		source:     source,
		computer:   computer,
		normalizer: normalizer,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// Watch returns the day change of every item. Failed items keep their slot
// with Kind and Error set.
func (s *Service) Watch(ctx context.Context, items []models.WatchItem) []models.WatchEntry {
	entries := make([]models.WatchEntry, len(items))

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, item := range items {
		g.Go(func() error {
			entries[i] = s.watchOne(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	return entries
}

func (s *Service) watchOne(ctx context.Context, item models.WatchItem) models.WatchEntry {
	entry := models.WatchEntry{Item: item}

	ctx, cancel := context.WithTimeout(ctx, s.opts.InstrumentTimeout)
	defer cancel()

	series, raw, err := s.load(ctx, item.InstrumentID)
	if err == nil {
		var last, previous models.PricePoint
		last, previous, entry.ChangePct, err = portfolio.DayChange(series)
		if err == nil {
			record := s.normalizer.Extract(raw)
			entry.Price = models.NewMoney(last.Close, record.Currency)
			entry.PreviousClose = previous.Close
			entry.AsOfDate = last.Date
			return entry
		}
	}

	entry.Kind = models.ErrorKind(err)
	entry.Error = err.Error()
	s.logger.Warn().Err(err).Str("instrument", item.InstrumentID).Str("kind", entry.Kind).Msg("Watchlist entry failed")
	return entry
}

// Snapshot returns the full analysis bundle for one instrument
func (s *Service) Snapshot(ctx context.Context, item models.WatchItem) (*models.InstrumentReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.InstrumentTimeout)
	defer cancel()

	series, raw, err := s.load(ctx, item.InstrumentID)
	if err != nil {
		return nil, err
	}

	last, _ := series.Last()
	record, dividend := s.normalizer.Normalize(ctx, raw, last.Close)

	s.logger.Debug().
		Str("instrument", item.InstrumentID).
		Int("points", series.Len()).
		Str("dividend", dividend.String()).
		Msg("Snapshot computed")

	return &models.InstrumentReport{
		Item:         item,
		Price:        models.NewMoney(last.Close, record.Currency),
		Indicators:   s.computer.Compute(series),
		Fundamentals: record,
		Dividend:     dividend,
		ComputedAt:   s.now(),
	}, nil
}

// load fetches the price series and fundamentals. Missing fundamentals are
// tolerated; missing prices are NoDataError.
func (s *Service) load(ctx context.Context, instrumentID string) (models.PriceSeries, *models.RawFundamentals, error) {
	table, err := s.source.GetPriceHistory(ctx, instrumentID, s.opts.Lookback)
	if err != nil {
		return models.PriceSeries{}, nil, &models.NoDataError{Instrument: instrumentID, Cause: err}
	}

	series, err := pricetable.Series(table, instrumentID)
	if err != nil {
		return models.PriceSeries{}, nil, err
	}

	raw, err := s.source.GetFundamentals(ctx, instrumentID)
	if err != nil || raw == nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.PriceSeries{}, nil, &models.NoDataError{Instrument: instrumentID, Cause: fmt.Errorf("fundamentals: %w", ctxErr)}
		}
		s.logger.Debug().Err(err).Str("instrument", instrumentID).Msg("Fundamentals unavailable")
		raw = &models.RawFundamentals{}
	}

	record := *raw
	if record.Symbol == "" {
		record.Symbol = instrumentID
	}
	return series, &record, nil
}
