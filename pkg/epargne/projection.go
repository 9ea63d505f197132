package epargne

import (
	"time"

	"github.com/shopspring/decimal"
)

// StartYearWindow bounds how far a simulation's start year may lie from
// the current year: [current-5, current+1].
const (
	startYearBack    = 5
	startYearForward = 1
	minPeriodYears   = 1
	maxPeriodYears   = 50
)

var nowYear = func() int { return time.Now().Year() }

// ValidateSimulationRequest checks the projection parameter ranges.
func ValidateSimulationRequest(req SimulationRequest) error {
	if req.AccountName == "" {
		return NewError(ErrCodeInvalidParameters, "account name is required")
	}
	if req.RatePercent < -100 || req.RatePercent > 100 {
		return Errorf(ErrCodeInvalidParameters, "rate %.2f%% outside [-100, 100]", req.RatePercent)
	}
	if req.PeriodYears < minPeriodYears || req.PeriodYears > maxPeriodYears {
		return Errorf(ErrCodeInvalidParameters, "period %d outside [%d, %d] years", req.PeriodYears, minPeriodYears, maxPeriodYears)
	}
	year := nowYear()
	if req.StartYear < year-startYearBack || req.StartYear > year+startYearForward {
		return Errorf(ErrCodeInvalidParameters, "start year %d outside [%d, %d]", req.StartYear, year-startYearBack, year+startYearForward)
	}
	if req.InitialAmount.IsNegative() {
		return NewError(ErrCodeInvalidParameters, "initial amount must not be negative")
	}
	if req.AnnualContribution.IsNegative() {
		return NewError(ErrCodeInvalidParameters, "annual contribution must not be negative")
	}
	if !isValidCurrency(currencyOrDefault(req.Currency)) {
		return Errorf(ErrCodeInvalidParameters, "unsupported currency: %s", req.Currency)
	}
	return nil
}

// ProjectionSeries computes the year-by-year compound-growth series for
// the given parameters: period+1 points, the first being the initial
// amount at the start year. Each following year applies the return rate
// first and adds the fixed contribution after.
func ProjectionSeries(req SimulationRequest) ([]YearAmount, error) {
	if err := ValidateSimulationRequest(req); err != nil {
		return nil, err
	}

	growth := decimal.NewFromInt(1).Add(
		decimal.NewFromFloat(req.RatePercent).Div(decimal.NewFromInt(100)))

	series := make([]YearAmount, 0, req.PeriodYears+1)
	current := req.InitialAmount.Decimal
	series = append(series, YearAmount{Year: req.StartYear, Amount: Amount{current}})

	for year := req.StartYear + 1; year <= req.StartYear+req.PeriodYears; year++ {
		current = current.Mul(growth).Add(req.AnnualContribution.Decimal)
		series = append(series, YearAmount{Year: year, Amount: Amount{current}})
	}
	return series, nil
}
