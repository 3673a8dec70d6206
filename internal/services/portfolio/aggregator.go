package portfolio

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/pulse/internal/models"
)

// Aggregate sums the successful valuations into a summary. Every failed
// result, and any valuation that is not a finite number, is listed in
// Excluded with its error kind, in input order.
func Aggregate(results []models.PositionResult, target string, asOf time.Time) *models.PortfolioSummary {
	summary := &models.PortfolioSummary{
		TargetCurrency: target,
		AsOf:           asOf,
		Positions:      []models.PositionValuation{},
		Excluded:       []models.Exclusion{},
	}

	total := decimal.Zero
	income := decimal.Zero

	for _, r := range results {
		if r.Err == nil && r.Valuation != nil &&
			(!finite(r.Valuation.ValueInTargetCurrency) || !finite(r.Valuation.EstimatedAnnualIncomeInTargetCurrency)) {
			r.Err = fmt.Errorf("%s: %w", r.LineItem.InstrumentID, models.ErrNonFiniteValue)
		}
		if r.Err != nil || r.Valuation == nil {
			summary.Excluded = append(summary.Excluded, exclusion(r))
			continue
		}
		total = total.Add(decimal.NewFromFloat(r.Valuation.ValueInTargetCurrency))
		income = income.Add(decimal.NewFromFloat(r.Valuation.EstimatedAnnualIncomeInTargetCurrency))
		summary.Positions = append(summary.Positions, *r.Valuation)
	}

	summary.TotalValue = total.InexactFloat64()
	summary.TotalEstimatedIncome = income.InexactFloat64()
	if total.IsPositive() {
		summary.PortfolioYieldPct = models.Some(income.Div(total).Mul(decimal.NewFromInt(100)).InexactFloat64())
	}

	return summary
}

func exclusion(r models.PositionResult) models.Exclusion {
	ex := models.Exclusion{
		InstrumentID: r.LineItem.InstrumentID,
		DisplayName:  r.LineItem.DisplayName,
		Kind:         models.ErrorKind(r.Err),
	}
	if r.Err != nil {
		ex.Reason = r.Err.Error()
	} else {
		ex.Kind = models.KindError
		ex.Reason = "no valuation produced"
	}
	return ex
}
