package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/pulse/internal/interfaces"
	"github.com/bobmcallan/pulse/internal/models"
	"github.com/bobmcallan/pulse/internal/services/pricetable"
)

// Options holds the settings of a valuation pass
type Options struct {
	TargetCurrency    string
	Lookback          models.Lookback
	InstrumentTimeout time.Duration
	Concurrency       int
}

// Service implements PortfolioService. One Evaluate call fetches every
// instrument concurrently, resolves rates once and values each position
// against the same rate table.
type Service struct {
	source    interfaces.MarketDataSource
	converter interfaces.CurrencyConverter
	valuator  *Valuator
	opts      Options
	logger    arbor.ILogger
	now       func() time.Time // injectable clock for testing
}

// NewService creates a new portfolio service
func NewService(source interfaces.MarketDataSource, converter interfaces.CurrencyConverter, valuator *Valuator, opts Options, logger arbor.ILogger) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.InstrumentTimeout <= 0 {
		opts.InstrumentTimeout = 15 * time.Second
	}
	return &Service{
		source:    source,
		converter: converter,
		valuator:  valuator,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// instrumentData is the fetched input of one line item
type instrumentData struct {
	series   models.PriceSeries
	raw      *models.RawFundamentals
	currency string
	err      error
}

// Evaluate runs one valuation pass. Per-item failures are reported in the
// summary's Excluded list; only cancellation of ctx is returned.
func (s *Service) Evaluate(ctx context.Context, items []models.LineItem) (*models.PortfolioSummary, error) {
	runID := uuid.NewString()
	started := s.now()

	s.logger.Info().
		Str("run_id", runID).
		Int("positions", len(items)).
		Str("target", s.opts.TargetCurrency).
		Msg("Valuation pass started")

	data := make([]instrumentData, len(items))

	var fetch errgroup.Group
	fetch.SetLimit(s.opts.Concurrency)
	for i, item := range items {
		fetch.Go(func() error {
			data[i] = s.fetch(ctx, item)
			return nil
		})
	}
	_ = fetch.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("valuation pass %s: %w", runID, err)
	}

	currencies := make([]string, 0, len(items))
	for _, d := range data {
		if d.err == nil {
			currencies = append(currencies, d.currency)
		}
	}
	rates := s.converter.ResolveRates(ctx, currencies, s.opts.TargetCurrency)

	results := make([]models.PositionResult, len(items))

	var value errgroup.Group
	value.SetLimit(s.opts.Concurrency)
	for i, item := range items {
		value.Go(func() error {
			results[i] = s.valuate(ctx, item, data[i], rates)
			return nil
		})
	}
	_ = value.Wait()

	summary := Aggregate(results, s.opts.TargetCurrency, s.now())
	summary.RunID = runID
	summary.Rates = rates

	for _, ex := range summary.Excluded {
		s.logger.Warn().
			Str("run_id", runID).
			Str("instrument", ex.InstrumentID).
			Str("kind", ex.Kind).
			Msg(ex.Reason)
	}

	s.logger.Info().
		Str("run_id", runID).
		Int("valued", len(summary.Positions)).
		Int("excluded", len(summary.Excluded)).
		Str("total", summary.TotalValueDisplay().String()).
		Str("elapsed", s.now().Sub(started).String()).
		Msg("Valuation pass complete")

	return summary, nil
}

// fetch retrieves prices and fundamentals for one item under the
// per-instrument timeout. Any failure to produce prices is NoDataError.
func (s *Service) fetch(ctx context.Context, item models.LineItem) instrumentData {
	if !item.ValidQuantity() {
		return instrumentData{err: fmt.Errorf("%s: %w", item.InstrumentID, models.ErrInvalidQuantity)}
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.InstrumentTimeout)
	defer cancel()

	table, err := s.source.GetPriceHistory(ctx, item.InstrumentID, s.opts.Lookback)
	if err != nil {
		return instrumentData{err: noData(item.InstrumentID, err)}
	}

	series, err := pricetable.Series(table, item.InstrumentID)
	if err != nil {
		return instrumentData{err: err}
	}

	raw, err := s.source.GetFundamentals(ctx, item.InstrumentID)
	if err != nil || raw == nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return instrumentData{err: noData(item.InstrumentID, ctxErr)}
		}
		s.logger.Warn().Err(err).Str("instrument", item.InstrumentID).Msg("Fundamentals unavailable, continuing with prices only")
		raw = &models.RawFundamentals{}
	}
	fundamentals := *raw
	if fundamentals.Symbol == "" {
		fundamentals.Symbol = item.InstrumentID
	}

	return instrumentData{
		series:   series,
		raw:      &fundamentals,
		currency: s.valuator.normalizer.Extract(&fundamentals).Currency,
	}
}

func (s *Service) valuate(ctx context.Context, item models.LineItem, d instrumentData, rates models.RateTable) models.PositionResult {
	result := models.PositionResult{LineItem: item}
	if d.err != nil {
		result.Err = d.err
		return result
	}

	quote, ok := rates.Lookup(d.currency)
	if !ok {
		result.Err = &models.UnsupportedCurrencyError{From: d.currency, To: rates.Target}
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.InstrumentTimeout)
	defer cancel()

	result.Valuation, result.Err = s.valuator.Valuate(ctx, item, d.series, d.raw, quote)
	return result
}

// noData wraps a retrieval failure as missing data for the instrument
func noData(instrumentID string, err error) error {
	var nd *models.NoDataError
	if errors.As(err, &nd) {
		return err
	}
	return &models.NoDataError{Instrument: instrumentID, Cause: err}
}

// Ensure Service implements PortfolioService
var _ interfaces.PortfolioService = (*Service)(nil)
