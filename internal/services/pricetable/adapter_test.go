package pricetable

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/pulse/internal/models"
)

func day(n int) time.Time {
	return time.Date(2025, 3, n, 0, 0, 0, 0, time.UTC)
}

func flatTable(values ...any) *models.PriceTable {
	index := make([]time.Time, len(values))
	for i := range values {
		index[i] = day(i + 1)
	}
	return &models.PriceTable{
		Index: index,
		Columns: []models.PriceColumn{
			{Key: models.ColumnKey{Field: "Open"}, Values: values},
			{Key: models.ColumnKey{Field: "Close"}, Values: values},
		},
	}
}

func TestSeries_Shapes(t *testing.T) {
	index := []time.Time{day(1), day(2), day(3)}

	tests := []struct {
		name     string
		table    *models.PriceTable
		id       string
		expected []float64
	}{
		{
			name:     "flat table",
			table:    flatTable(10.0, 11.0, 12.0),
			id:       "PKN.WA",
			expected: []float64{10, 11, 12},
		},
		{
			name: "two-level table picks requested instrument",
			table: &models.PriceTable{
				Index: index,
				Columns: []models.PriceColumn{
					{Key: models.ColumnKey{Field: "Close", Instrument: "AAA"}, Values: []any{1.0, 2.0, 3.0}},
					{Key: models.ColumnKey{Field: "Close", Instrument: "BBB"}, Values: []any{7.0, 8.0, 9.0}},
				},
			},
			id:       "BBB",
			expected: []float64{7, 8, 9},
		},
		{
			name: "two-level lookup misses and falls back to flat close",
			table: &models.PriceTable{
				Index: index,
				Columns: []models.PriceColumn{
					{Key: models.ColumnKey{Field: "Close", Instrument: "AAA"}, Values: []any{1.0, 2.0, 3.0}},
					{Key: models.ColumnKey{Field: "Close"}, Values: []any{4.0, 5.0, 6.0}},
				},
			},
			id:       "ZZZ",
			expected: []float64{4, 5, 6},
		},
		{
			name: "single instrument two-level table with implicit key",
			table: &models.PriceTable{
				Index: index,
				Columns: []models.PriceColumn{
					{Key: models.ColumnKey{Field: "Open", Instrument: "EURPLN=X"}, Values: []any{4.2, 4.3, 4.4}},
					{Key: models.ColumnKey{Field: "Close", Instrument: "EURPLN=X"}, Values: []any{4.25, 4.31, 4.28}},
				},
			},
			id:       "EURPLN",
			expected: []float64{4.25, 4.31, 4.28},
		},
		{
			name: "field and instrument match case-insensitively",
			table: &models.PriceTable{
				Index: index,
				Columns: []models.PriceColumn{
					{Key: models.ColumnKey{Field: "close", Instrument: "pkn.wa"}, Values: []any{1.0, 2.0, 3.0}},
					{Key: models.ColumnKey{Field: "close", Instrument: "cdr.wa"}, Values: []any{5.0, 6.0, 7.0}},
				},
			},
			id:       "PKN.WA",
			expected: []float64{1, 2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series, err := Series(tt.table, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.id, series.Instrument)
			assert.Equal(t, tt.expected, series.Closes())
		})
	}
}

func TestSeries_CoercesAndExcludesBadValues(t *testing.T) {
	table := flatTable(
		10.0,
		nil,
		"11.5",
		"n/a",
		json.Number("12"),
		math.NaN(),
		0.0,
		int64(13),
		math.Inf(1),
		-1.0,
		14,
	)

	series, err := Series(table, "X")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 11.5, 12, 13, 14}, series.Closes())
}

func TestSeries_SortsAndDeduplicates(t *testing.T) {
	table := &models.PriceTable{
		Index: []time.Time{day(3), day(1), day(2), day(1)},
		Columns: []models.PriceColumn{
			{Key: models.ColumnKey{Field: "Close"}, Values: []any{30.0, 10.0, 20.0, 11.0}},
		},
	}

	series, err := Series(table, "X")
	require.NoError(t, err)
	require.Equal(t, 3, series.Len())
	assert.Equal(t, []float64{11, 20, 30}, series.Closes())
	for i := 1; i < series.Len(); i++ {
		assert.True(t, series.Points[i-1].Date.Before(series.Points[i].Date))
	}
}

func TestSeries_ShortColumnIgnoresTrailingIndex(t *testing.T) {
	table := &models.PriceTable{
		Index: []time.Time{day(1), day(2), day(3)},
		Columns: []models.PriceColumn{
			{Key: models.ColumnKey{Field: "Close"}, Values: []any{1.0}},
		},
	}

	series, err := Series(table, "X")
	require.NoError(t, err)
	assert.Equal(t, 1, series.Len())
}

func TestSeries_NoData(t *testing.T) {
	tests := []struct {
		name  string
		table *models.PriceTable
	}{
		{name: "nil table", table: nil},
		{name: "empty index", table: &models.PriceTable{}},
		{
			name: "no close column",
			table: &models.PriceTable{
				Index:   []time.Time{day(1)},
				Columns: []models.PriceColumn{{Key: models.ColumnKey{Field: "Open"}, Values: []any{1.0}}},
			},
		},
		{
			name: "several instruments none requested",
			table: &models.PriceTable{
				Index: []time.Time{day(1)},
				Columns: []models.PriceColumn{
					{Key: models.ColumnKey{Field: "Close", Instrument: "AAA"}, Values: []any{1.0}},
					{Key: models.ColumnKey{Field: "Close", Instrument: "BBB"}, Values: []any{2.0}},
				},
			},
		},
		{
			name: "single instrument keyed by another symbol",
			table: &models.PriceTable{
				Index: []time.Time{day(1), day(2)},
				Columns: []models.PriceColumn{
					{Key: models.ColumnKey{Field: "Close", Instrument: "PKO.WA"}, Values: []any{100.0, 101.0}},
				},
			},
		},
		{name: "only unusable values", table: flatTable(nil, "x", math.NaN(), 0.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Series(tt.table, "CDR.WA")
			require.Error(t, err)

			var noData *models.NoDataError
			require.True(t, errors.As(err, &noData))
			assert.Equal(t, "CDR.WA", noData.Instrument)
			assert.Contains(t, err.Error(), "CDR.WA")
		})
	}
}

func TestLastClose(t *testing.T) {
	last, err := LastClose(flatTable(4.1, 4.2, 4.3), "EURPLN=X")
	require.NoError(t, err)
	assert.Equal(t, 4.3, last)

	_, err = LastClose(nil, "EURPLN=X")
	assert.Error(t, err)
}
