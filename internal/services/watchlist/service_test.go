package watchlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/pulse/internal/common"
	"github.com/bobmcallan/pulse/internal/models"
	"github.com/bobmcallan/pulse/internal/services/fundamentals"
	"github.com/bobmcallan/pulse/internal/services/portfolio"
	"github.com/bobmcallan/pulse/internal/signals"
)

// --- Mocks ---

type mockSource struct {
	tables       map[string]*models.PriceTable
	fundamentals map[string]*models.RawFundamentals
	dividends    map[string][]models.DividendPayment
}

func (m *mockSource) GetPriceHistory(_ context.Context, id string, _ models.Lookback) (*models.PriceTable, error) {
	t, ok := m.tables[id]
	if !ok {
		return nil, errors.New("404 " + id)
	}
	return t, nil
}

func (m *mockSource) GetFundamentals(_ context.Context, id string) (*models.RawFundamentals, error) {
	if raw, ok := m.fundamentals[id]; ok {
		return raw, nil
	}
	return nil, errors.New("no fundamentals")
}

func (m *mockSource) GetDividendHistory(_ context.Context, id string) ([]models.DividendPayment, error) {
	return m.dividends[id], nil
}

func (m *mockSource) GetExchangeRate(_ context.Context, pair string, _ models.Lookback) (*models.PriceTable, error) {
	return nil, &models.NoDataError{Instrument: pair}
}

func ptr[T any](v T) *T {
	return &v
}

// hierarchical builds a two-level table as returned for a single ticker
func hierarchical(id string, closes ...any) *models.PriceTable {
	base := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	t := &models.PriceTable{Columns: []models.PriceColumn{{Key: models.ColumnKey{Field: "Close", Instrument: id}}}}
	for i, c := range closes {
		t.Index = append(t.Index, base.AddDate(0, 0, i))
		t.Columns[0].Values = append(t.Columns[0].Values, c)
	}
	return t
}

func newTestService(src *mockSource) *Service {
	logger := common.NewSilentLogger()
	svc := NewService(src, signals.NewComputer(), fundamentals.NewNormalizer(src, logger), portfolio.Options{
		Lookback:          "1y",
		InstrumentTimeout: time.Second,
		Concurrency:       3,
	}, logger)
	svc.now = func() time.Time { return time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestWatch(t *testing.T) {
	src := &mockSource{
		tables: map[string]*models.PriceTable{
			"GPW.WA":  hierarchical("GPW.WA", 40.0, 42.0),
			"EUNL.DE": hierarchical("EUNL.DE", 100.0, nil, 98.0),
			"KTY.WA":  hierarchical("KTY.WA", 800.0),
		},
		fundamentals: map[string]*models.RawFundamentals{
			"EUNL.DE": {Symbol: "EUNL.DE", Currency: ptr("EUR")},
		},
	}

	items := []models.WatchItem{
		{InstrumentID: "GPW.WA", DisplayName: "GPW"},
		{InstrumentID: "EUNL.DE", DisplayName: "MSCI World"},
		{InstrumentID: "KTY.WA", DisplayName: "Grupa Kety"},
		{InstrumentID: "NOPE.WA", DisplayName: "Unknown"},
	}

	entries := newTestService(src).Watch(context.Background(), items)
	require.Len(t, entries, 4)

	gpw := entries[0]
	assert.Equal(t, items[0], gpw.Item)
	assert.Equal(t, models.NewMoney(42, "PLN"), gpw.Price)
	assert.Equal(t, 40.0, gpw.PreviousClose)
	assert.InDelta(t, 5.0, gpw.ChangePct, 1e-9)
	assert.Empty(t, gpw.Kind)

	eunl := entries[1]
	assert.Equal(t, models.NewMoney(98, "EUR"), eunl.Price)
	assert.InDelta(t, -2.0, eunl.ChangePct, 1e-9)
	assert.Equal(t, time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC), eunl.AsOfDate)

	assert.Equal(t, models.KindInsufficientHistory, entries[2].Kind)
	assert.NotEmpty(t, entries[2].Error)

	assert.Equal(t, models.KindNoData, entries[3].Kind)
	assert.Contains(t, entries[3].Error, "NOPE.WA")
}

func TestWatch_Empty(t *testing.T) {
	entries := newTestService(&mockSource{}).Watch(context.Background(), nil)
	assert.Empty(t, entries)
}

func TestSnapshot(t *testing.T) {
	closes := make([]any, 60)
	for i := range closes {
		closes[i] = 50.0 + float64(i)
	}

	src := &mockSource{
		tables: map[string]*models.PriceTable{"PEO.WA": hierarchical("PEO.WA", closes...)},
		fundamentals: map[string]*models.RawFundamentals{
			"PEO.WA": {
				Symbol:        "PEO.WA",
				LongName:      "Bank Pekao",
				Currency:      ptr("PLN"),
				QuoteType:     ptr("EQUITY"),
				TrailingPE:    ptr(8.5),
				DividendYield: ptr(12.0),
			},
		},
		dividends: map[string][]models.DividendPayment{
			"PEO.WA": {{Date: time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC), Amount: 10.9}},
		},
	}

	report, err := newTestService(src).Snapshot(context.Background(), models.WatchItem{InstrumentID: "PEO.WA", DisplayName: "Pekao"})
	require.NoError(t, err)

	assert.Equal(t, models.NewMoney(109, "PLN"), report.Price)
	assert.Equal(t, 60, report.Indicators.DataPoints)
	assert.Equal(t, models.TrendUp, report.Indicators.Trend)
	assert.True(t, report.Indicators.MA50.Valid)
	assert.False(t, report.Indicators.MA200.Valid)
	assert.Equal(t, "Bank Pekao", report.Fundamentals.Name)
	assert.Equal(t, models.DividendDerived, report.Dividend.Basis)
	assert.InDelta(t, 10.0, report.Dividend.YieldPct, 1e-9)
	assert.Equal(t, "10.00% (est.)", report.Dividend.String())
	assert.Equal(t, time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC), report.ComputedAt)
}

func TestSnapshot_NoData(t *testing.T) {
	src := &mockSource{
		tables: map[string]*models.PriceTable{"BAD.WA": hierarchical("BAD.WA", "n/a", nil)},
	}
	svc := newTestService(src)

	_, err := svc.Snapshot(context.Background(), models.WatchItem{InstrumentID: "BAD.WA"})
	assert.Equal(t, models.KindNoData, models.ErrorKind(err))

	_, err = svc.Snapshot(context.Background(), models.WatchItem{InstrumentID: "MISSING.WA"})
	assert.Equal(t, models.KindNoData, models.ErrorKind(err))
}
