package filesource

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/pulse/internal/common"
	"github.com/bobmcallan/pulse/internal/models"
	"github.com/bobmcallan/pulse/internal/services/pricetable"
)

func writeFile(t *testing.T, root, dir, name, body string) {
	t.Helper()
	path := filepath.Join(root, dir)
	require.NoError(t, os.MkdirAll(path, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(path, name), []byte(body), 0644))
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	store, err := NewStore(root, common.NewSilentLogger())
	require.NoError(t, err)
	return store, root
}

func TestNewStore_MissingPath(t *testing.T) {
	_, err := NewStore(filepath.Join(t.TempDir(), "nope"), common.NewSilentLogger())
	assert.Error(t, err)
}

func TestGetPriceHistory_Flat(t *testing.T) {
	store, root := newTestStore(t)
	writeFile(t, root, "prices", "PKN.WA.json", `{
		"columns": ["Open", "Close", "Volume"],
		"index": ["2025-01-02", "2025-01-03", "2025-01-06"],
		"data": [[59.0, 60.1, 1000], [60.0, null, 1200], [61.0, "61.5", 900]]
	}`)

	table, err := store.GetPriceHistory(context.Background(), "PKN.WA", "max")
	require.NoError(t, err)
	assert.False(t, table.IsHierarchical())
	require.Len(t, table.Index, 3)
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), table.Index[0])
	assert.Equal(t, json.Number("60.1"), table.Columns[1].Values[0])
	assert.Nil(t, table.Columns[1].Values[1])

	series, err := pricetable.Series(table, "PKN.WA")
	require.NoError(t, err)
	assert.Equal(t, []float64{60.1, 61.5}, series.Closes())
}

func TestGetPriceHistory_Hierarchical(t *testing.T) {
	store, root := newTestStore(t)
	writeFile(t, root, "prices", "EUNL.DE.json", `{
		"columns": [["Close", "EUNL.DE"], ["Volume", "EUNL.DE"]],
		"index": [1735776000000, 1735862400000],
		"data": [[95.2, 10], [96.4, 12]]
	}`)

	table, err := store.GetPriceHistory(context.Background(), "EUNL.DE", "1y")
	require.NoError(t, err)
	assert.True(t, table.IsHierarchical())
	assert.Equal(t, models.ColumnKey{Field: "Close", Instrument: "EUNL.DE"}, table.Columns[0].Key)
	assert.Equal(t, time.UnixMilli(1735776000000).UTC(), table.Index[0])

	last, err := pricetable.LastClose(table, "EUNL.DE")
	require.NoError(t, err)
	assert.Equal(t, 96.4, last)
}

func TestGetPriceHistory_LookbackTrim(t *testing.T) {
	store, root := newTestStore(t)
	writeFile(t, root, "prices", "KRU.WA.json", `{
		"columns": ["Close"],
		"index": ["2024-12-20", "2025-01-01", "2025-01-05", "2025-01-10"],
		"data": [[1], [2], [3], [4]]
	}`)

	tests := []struct {
		lookback models.Lookback
		rows     int
	}{
		{"max", 4},
		{"", 4},
		{"5d", 2},
		{"9d", 3},
		{"1mo", 4},
		{"ytd", 3},
	}
	for _, tt := range tests {
		t.Run(string(tt.lookback), func(t *testing.T) {
			table, err := store.GetPriceHistory(context.Background(), "KRU.WA", tt.lookback)
			require.NoError(t, err)
			assert.Len(t, table.Index, tt.rows)
			assert.Len(t, table.Columns[0].Values, tt.rows)
		})
	}

	_, err := store.GetPriceHistory(context.Background(), "KRU.WA", "forever")
	assert.Error(t, err)
}

func TestGetPriceHistory_Errors(t *testing.T) {
	store, root := newTestStore(t)
	writeFile(t, root, "prices", "EMPTY.WA.json", "  ")
	writeFile(t, root, "prices", "RAGGED.WA.json", `{"columns": ["Close"], "index": ["2025-01-01"], "data": []}`)
	writeFile(t, root, "prices", "BADDATE.WA.json", `{"columns": ["Close"], "index": ["yesterday"], "data": [[1]]}`)

	for _, id := range []string{"MISSING.WA", "EMPTY.WA", "RAGGED.WA", "BADDATE.WA"} {
		_, err := store.GetPriceHistory(context.Background(), id, "max")
		var noData *models.NoDataError
		require.True(t, errors.As(err, &noData), id)
		assert.Equal(t, id, noData.Instrument)
	}
}

func TestGetExchangeRate(t *testing.T) {
	store, root := newTestStore(t)
	writeFile(t, root, "prices", "EURPLN=X.json", `{
		"columns": [["Close", "EURPLN=X"]],
		"index": ["2025-05-01", "2025-05-02"],
		"data": [[4.27], [4.26]]
	}`)

	table, err := store.GetExchangeRate(context.Background(), "EURPLN=X", "5d")
	require.NoError(t, err)

	last, err := pricetable.LastClose(table, "EURPLN=X")
	require.NoError(t, err)
	assert.Equal(t, 4.26, last)
}

func TestGetFundamentals(t *testing.T) {
	store, root := newTestStore(t)
	writeFile(t, root, "fundamentals", "PEO.WA.json", `{
		"longName": "Bank Pekao",
		"currency": "PLN",
		"quoteType": "EQUITY",
		"trailingPE": 8.4,
		"dividendYield": 0.11
	}`)

	raw, err := store.GetFundamentals(context.Background(), "PEO.WA")
	require.NoError(t, err)
	assert.Equal(t, "PEO.WA", raw.Symbol)
	assert.Equal(t, "Bank Pekao", raw.LongName)
	require.NotNil(t, raw.TrailingPE)
	assert.Equal(t, 8.4, *raw.TrailingPE)
	assert.Nil(t, raw.PriceToBook)

	_, err = store.GetFundamentals(context.Background(), "NOPE.WA")
	assert.Error(t, err)
}

func TestGetDividendHistory(t *testing.T) {
	store, root := newTestStore(t)
	writeFile(t, root, "dividends", "KTY.WA.json", `[
		{"date": "2024-06-20", "amount": 41.9},
		{"date": "2022-06-21", "amount": 32.6},
		{"date": "2023-06-20", "amount": 38.0}
	]`)
	writeFile(t, root, "dividends", "BAD.WA.json", `[{"date": "soon", "amount": 1}]`)

	payments, err := store.GetDividendHistory(context.Background(), "KTY.WA")
	require.NoError(t, err)
	require.Len(t, payments, 3)
	assert.Equal(t, 32.6, payments[0].Amount)
	assert.Equal(t, 41.9, payments[2].Amount)

	payments, err = store.GetDividendHistory(context.Background(), "EUNL.DE")
	require.NoError(t, err)
	assert.Empty(t, payments)

	_, err = store.GetDividendHistory(context.Background(), "BAD.WA")
	assert.Error(t, err)
}

func TestStore_CancelledContext(t *testing.T) {
	store, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.GetPriceHistory(ctx, "PKN.WA", "max")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = store.GetDividendHistory(ctx, "PKN.WA")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSanitizeKey(t *testing.T) {
	assert.Equal(t, "_etc_passwd", sanitizeKey("/etc/passwd"))
	assert.Equal(t, "__secret", sanitizeKey("../secret"))
	assert.Equal(t, "EURPLN=X", sanitizeKey("EURPLN=X"))
}
