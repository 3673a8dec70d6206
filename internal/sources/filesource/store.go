// Package filesource serves raw market data from JSON files on disk.
//
// Layout under the root directory:
//
//	prices/<id>.json        price table, pandas "split" orientation
//	prices/<PAIR>=X.json    FX pair table, same format
//	fundamentals/<id>.json  quote summary record
//	dividends/<id>.json     [{"date": "2024-06-20", "amount": 1.2}, ...]
package filesource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/bobmcallan/pulse/internal/interfaces"
	"github.com/bobmcallan/pulse/internal/models"
)

const (
	pricesDir       = "prices"
	fundamentalsDir = "fundamentals"
	dividendsDir    = "dividends"
)

// Store is a MarketDataSource backed by a directory of JSON files.
type Store struct {
	basePath string
	logger   arbor.ILogger
}

// NewStore opens a file store rooted at path.
func NewStore(path string, logger arbor.ILogger) (*Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open market data path %s: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("market data path %s is not a directory", path)
	}

	logger.Debug().Str("path", path).Msg("File market source opened")
	return &Store{basePath: path, logger: logger}, nil
}

// DataPath returns the base data path.
func (s *Store) DataPath() string {
	return s.basePath
}

// splitTable is the on-disk shape of a price table. Each column is either a
// field name or a [field, instrument] pair; data holds one row per index.
type splitTable struct {
	Columns []json.RawMessage `json:"columns"`
	Index   []json.RawMessage `json:"index"`
	Data    [][]any           `json:"data"`
}

type dividendRecord struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// GetPriceHistory reads prices/<id>.json trimmed to the lookback window
func (s *Store) GetPriceHistory(ctx context.Context, instrumentID string, lookback models.Lookback) (*models.PriceTable, error) {
	return s.readTable(ctx, instrumentID, lookback)
}

// GetExchangeRate reads the FX pair table from prices/<pair>.json
func (s *Store) GetExchangeRate(ctx context.Context, pair string, lookback models.Lookback) (*models.PriceTable, error) {
	return s.readTable(ctx, pair, lookback)
}

// GetFundamentals reads fundamentals/<id>.json
func (s *Store) GetFundamentals(ctx context.Context, instrumentID string) (*models.RawFundamentals, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var raw models.RawFundamentals
	if err := readJSON(filepath.Join(s.basePath, fundamentalsDir), instrumentID, &raw); err != nil {
		return nil, err
	}
	if raw.Symbol == "" {
		raw.Symbol = instrumentID
	}
	return &raw, nil
}

// GetDividendHistory reads dividends/<id>.json ordered oldest first. A
// missing file means the instrument has paid no dividends.
func (s *Store) GetDividendHistory(ctx context.Context, instrumentID string) ([]models.DividendPayment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []dividendRecord
	err := readJSON(filepath.Join(s.basePath, dividendsDir), instrumentID, &records)
	if os.IsNotExist(err) {
		return []models.DividendPayment{}, nil
	}
	if err != nil {
		return nil, err
	}

	payments := make([]models.DividendPayment, 0, len(records))
	for _, r := range records {
		date, err := parseDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("dividends for %s: %w", instrumentID, err)
		}
		payments = append(payments, models.DividendPayment{Date: date, Amount: r.Amount})
	}
	sortPayments(payments)
	return payments, nil
}

func (s *Store) readTable(ctx context.Context, key string, lookback models.Lookback) (*models.PriceTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var raw splitTable
	if err := readJSON(filepath.Join(s.basePath, pricesDir), key, &raw); err != nil {
		return nil, &models.NoDataError{Instrument: key, Cause: err}
	}

	table, err := decodeTable(raw)
	if err != nil {
		return nil, &models.NoDataError{Instrument: key, Cause: err}
	}

	trimmed, err := trim(table, lookback)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("key", key).Int("rows", len(trimmed.Index)).Msg("Price table loaded")
	return trimmed, nil
}

func decodeTable(raw splitTable) (*models.PriceTable, error) {
	if len(raw.Data) != len(raw.Index) {
		return nil, fmt.Errorf("index has %d rows, data has %d", len(raw.Index), len(raw.Data))
	}

	table := &models.PriceTable{
		Index:   make([]time.Time, len(raw.Index)),
		Columns: make([]models.PriceColumn, len(raw.Columns)),
	}

	for i, rawCol := range raw.Columns {
		key, err := decodeColumnKey(rawCol)
		if err != nil {
			return nil, err
		}
		table.Columns[i] = models.PriceColumn{Key: key, Values: make([]any, len(raw.Index))}
	}

	for r, rawIdx := range raw.Index {
		ts, err := decodeIndex(rawIdx)
		if err != nil {
			return nil, err
		}
		table.Index[r] = ts

		row := raw.Data[r]
		for c := range table.Columns {
			if c < len(row) {
				table.Columns[c].Values[r] = row[c]
			}
		}
	}

	return table, nil
}

// decodeColumnKey accepts "Close" or ["Close", "PKN.WA"]
func decodeColumnKey(data json.RawMessage) (models.ColumnKey, error) {
	var field string
	if err := json.Unmarshal(data, &field); err == nil {
		return models.ColumnKey{Field: field}, nil
	}

	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil || len(pair) == 0 || len(pair) > 2 {
		return models.ColumnKey{}, fmt.Errorf("invalid column key %s", string(data))
	}
	key := models.ColumnKey{Field: pair[0]}
	if len(pair) == 2 {
		key.Instrument = pair[1]
	}
	return key, nil
}

// decodeIndex accepts a date string or epoch milliseconds
func decodeIndex(data json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return parseDate(s)
	}

	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return time.Time{}, fmt.Errorf("invalid index value %s", string(data))
	}
	return time.UnixMilli(ms).UTC(), nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// trim keeps the rows on or after the lookback cutoff, measured from the
// latest row in the table.
func trim(table *models.PriceTable, lookback models.Lookback) (*models.PriceTable, error) {
	if len(table.Index) == 0 {
		return table, nil
	}

	latest := table.Index[0]
	for _, ts := range table.Index {
		if ts.After(latest) {
			latest = ts
		}
	}

	cutoff, err := lookback.Cutoff(latest)
	if err != nil {
		return nil, err
	}
	if cutoff.IsZero() {
		return table, nil
	}

	out := &models.PriceTable{Columns: make([]models.PriceColumn, len(table.Columns))}
	for c, col := range table.Columns {
		out.Columns[c] = models.PriceColumn{Key: col.Key}
	}
	for r, ts := range table.Index {
		if ts.Before(cutoff) {
			continue
		}
		out.Index = append(out.Index, ts)
		for c, col := range table.Columns {
			out.Columns[c].Values = append(out.Columns[c].Values, col.Values[r])
		}
	}
	return out, nil
}

func sortPayments(payments []models.DividendPayment) {
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].Date.Before(payments[j].Date)
	})
}

// --- helpers ---

func sanitizeKey(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(key)
}

func filePath(dir, key string) string {
	return filepath.Join(dir, sanitizeKey(key)+".json")
}

// readJSON decodes dir/key.json. Numbers are kept as json.Number so price
// cells reach the adapter undistorted. A missing file returns an error
// satisfying os.IsNotExist.
func readJSON(dir, key string, dest any) error {
	path := filePath(dir, key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("'%s' is empty", key)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// Ensure Store implements MarketDataSource
var _ interfaces.MarketDataSource = (*Store)(nil)
