package epargne

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// UpsertInflationRate stores or replaces the global inflation rate for a
// year. Existing real-data entries are left alone: propagation only
// happens through an explicit RecalculateRealData call.
func (c *Core) UpsertInflationRate(year int, rate Amount, comment string) error {
	if year < 1900 || year > 2100 {
		return Errorf(ErrCodeInvalidParameters, "year %d outside [1900, 2100]", year)
	}
	if err := validateInflationRate(rate); err != nil {
		return err
	}
	_, err := c.db.Exec(`
		INSERT INTO annual_inflation_rates (year, rate, comment)
		VALUES (?, ?, ?)
		ON CONFLICT(year) DO UPDATE SET
			rate = excluded.rate,
			comment = excluded.comment,
			updated_at = CURRENT_TIMESTAMP`,
		year, rate, comment)
	if err != nil {
		return WrapError(ErrCodeDatabase, "upsert inflation rate", err)
	}
	return nil
}

// validateInflationRate bounds a rate to (-100, 100]. Exactly -100 is
// excluded: the adjustment divisor 1+rate/100 would be zero.
func validateInflationRate(rate Amount) error {
	hundred := decimal.NewFromInt(100)
	if rate.LessThanOrEqual(hundred.Neg()) || rate.GreaterThan(hundred) {
		return Errorf(ErrCodeInvalidParameters, "inflation rate %s%% outside (-100, 100]", rate)
	}
	return nil
}

// ListInflationRates returns all rates, most recent year first.
func (c *Core) ListInflationRates() ([]AnnualInflationRate, error) {
	rows, err := c.db.Query(`
		SELECT id, year, rate, comment, updated_at
		FROM annual_inflation_rates ORDER BY year DESC`)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "list inflation rates", err)
	}
	defer rows.Close()

	var rates []AnnualInflationRate
	for rows.Next() {
		var r AnnualInflationRate
		var updatedAt sql.NullString
		if err := rows.Scan(&r.ID, &r.Year, &r.Rate, &r.Comment, &updatedAt); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan inflation rate", err)
		}
		r.UpdatedAt = nullStringPtr(updatedAt)
		rates = append(rates, r)
	}
	return rates, rows.Err()
}

// DeleteInflationRate removes the rate row for a year.
func (c *Core) DeleteInflationRate(year int) error {
	result, err := c.db.Exec("DELETE FROM annual_inflation_rates WHERE year = ?", year)
	if err != nil {
		return WrapError(ErrCodeDatabase, "delete inflation rate", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return Errorf(ErrCodeNotFound, "no inflation rate for %d", year)
	}
	return nil
}

// inflationRateForYear looks up the current global rate for a year,
// defaulting to zero when no row exists.
func inflationRateForYear(q interface {
	QueryRow(query string, args ...any) *sql.Row
}, year int) (Amount, error) {
	var rate Amount
	err := q.QueryRow("SELECT rate FROM annual_inflation_rates WHERE year = ?", year).Scan(&rate)
	if err == sql.ErrNoRows {
		return Amount{decimal.Zero}, nil
	}
	if err != nil {
		return Amount{}, WrapError(ErrCodeDatabase, "lookup inflation rate", err)
	}
	return rate, nil
}
