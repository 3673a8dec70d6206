// Package pricetable normalizes raw source price tables into price series
package pricetable

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/pulse/internal/models"
)

// CloseField is the column carrying closing prices
const CloseField = "Close"

// Series extracts the closing price series for instrumentID from a raw
// table. Lookup order: a two-level (Close, instrumentID) column, a flat Close
// column, then the Close column of a two-level table holding one instrument
// whose key differs from instrumentID only by an FX "=X" suffix.
// Unusable cells are dropped; an empty result is a NoDataError.
func Series(table *models.PriceTable, instrumentID string) (models.PriceSeries, error) {
	series := models.PriceSeries{Instrument: instrumentID}
	if table == nil || len(table.Index) == 0 {
		return series, &models.NoDataError{Instrument: instrumentID, Cause: fmt.Errorf("empty price table")}
	}

	col := closeColumn(table, instrumentID)
	if col == nil {
		return series, &models.NoDataError{Instrument: instrumentID, Cause: fmt.Errorf("no %s column", CloseField)}
	}

	// last value wins for duplicate dates
	byDate := make(map[time.Time]float64, len(table.Index))
	for i, ts := range table.Index {
		if i >= len(col.Values) {
			break
		}
		v, ok := toPrice(col.Values[i])
		if !ok {
			continue
		}
		byDate[ts] = v
	}

	if len(byDate) == 0 {
		return series, &models.NoDataError{Instrument: instrumentID, Cause: fmt.Errorf("no usable closes")}
	}

	points := make([]models.PricePoint, 0, len(byDate))
	for ts, v := range byDate {
		points = append(points, models.PricePoint{Date: ts, Close: v})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	series.Points = points
	return series, nil
}

// LastClose returns the most recent close for instrumentID.
func LastClose(table *models.PriceTable, instrumentID string) (float64, error) {
	series, err := Series(table, instrumentID)
	if err != nil {
		return 0, err
	}
	last, _ := series.Last()
	return last.Close, nil
}

func closeColumn(table *models.PriceTable, instrumentID string) *models.PriceColumn {
	var flat *models.PriceColumn
	var closes []*models.PriceColumn

	for i := range table.Columns {
		c := &table.Columns[i]
		if !strings.EqualFold(c.Key.Field, CloseField) {
			continue
		}
		if c.Key.Instrument == "" {
			if flat == nil {
				flat = c
			}
			continue
		}
		if strings.EqualFold(c.Key.Instrument, instrumentID) {
			return c
		}
		closes = append(closes, c)
	}

	if flat != nil {
		return flat
	}
	if len(closes) == 1 && sameSymbol(closes[0].Key.Instrument, instrumentID) {
		return closes[0]
	}
	return nil
}

// sameSymbol compares instrument keys ignoring case and the "=X" suffix
// some sources append to FX pairs. A sole column keyed by a different
// instrument is never used.
func sameSymbol(key, instrumentID string) bool {
	trim := func(s string) string {
		s = strings.ToUpper(strings.TrimSpace(s))
		return strings.TrimSuffix(s, "=X")
	}
	return trim(key) == trim(instrumentID)
}

// toPrice coerces a raw cell into a usable close. Missing, non-numeric,
// non-finite and non-positive values are unusable.
func toPrice(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	return f, true
}
