package epargne

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

// adjustForInflation converts a nominal amount into comparable real
// terms: nominal / (1 + rate/100).
func adjustForInflation(nominal, rate Amount) Amount {
	divisor := decimal.NewFromInt(1).Add(rate.Div(decimal.NewFromInt(100)))
	return Amount{nominal.DivRound(divisor, 6)}
}

// UpsertRealData records an observed balance for (simulation, year). The
// current global inflation rate for that year is captured (0 when
// absent) and the adjusted amount derived from it; a prior entry for the
// same pair is overwritten.
func (c *Core) UpsertRealData(userID string, simulationID int64, year int, nominal Amount) (*RealAccountData, error) {
	if _, err := c.ownedSimulation(userID, simulationID); err != nil {
		return nil, err
	}
	if year < 1900 || year > 2100 {
		return nil, Errorf(ErrCodeInvalidParameters, "year %d outside [1900, 2100]", year)
	}

	tx, err := c.db.Begin()
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "begin", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rate, err := inflationRateForYear(tx, year)
	if err != nil {
		return nil, err
	}
	adjusted := adjustForInflation(nominal, rate)

	if _, err := tx.Exec(`
		INSERT INTO real_account_data (simulation_id, year, nominal_amount, inflation_rate, adjusted_amount)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(simulation_id, year) DO UPDATE SET
			nominal_amount = excluded.nominal_amount,
			inflation_rate = excluded.inflation_rate,
			adjusted_amount = excluded.adjusted_amount,
			updated_at = CURRENT_TIMESTAMP`,
		simulationID, year, nominal, rate, adjusted,
	); err != nil {
		return nil, WrapError(ErrCodeDatabase, "upsert real data", err)
	}

	entry := &RealAccountData{SimulationID: simulationID, Year: year}
	if err := tx.QueryRow(`
		SELECT id, nominal_amount, inflation_rate, adjusted_amount
		FROM real_account_data WHERE simulation_id = ? AND year = ?`,
		simulationID, year,
	).Scan(&entry.ID, &entry.NominalAmount, &entry.InflationRate, &entry.AdjustedAmount); err != nil {
		return nil, WrapError(ErrCodeDatabase, "reload real data", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, WrapError(ErrCodeDatabase, "commit", err)
	}
	return entry, nil
}

// RecalculateRealData re-derives the captured rate and adjusted amount of
// every entry of the simulation from the current global inflation table.
// This is the only propagation path after the table changes.
func (c *Core) RecalculateRealData(userID string, simulationID int64) (int, error) {
	if _, err := c.ownedSimulation(userID, simulationID); err != nil {
		return 0, err
	}

	tx, err := c.db.Begin()
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "begin", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.Query(`
		SELECT id, year, nominal_amount
		FROM real_account_data WHERE simulation_id = ?`, simulationID)
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "load real data", err)
	}

	type pending struct {
		id      int64
		rate    Amount
		updated Amount
	}
	var updates []pending
	for rows.Next() {
		var id int64
		var year int
		var nominal Amount
		if err := rows.Scan(&id, &year, &nominal); err != nil {
			rows.Close()
			return 0, WrapError(ErrCodeDatabase, "scan real data", err)
		}
		rate, err := inflationRateForYear(tx, year)
		if err != nil {
			rows.Close()
			return 0, err
		}
		updates = append(updates, pending{id: id, rate: rate, updated: adjustForInflation(nominal, rate)})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, WrapError(ErrCodeDatabase, "iterate real data", err)
	}

	for _, u := range updates {
		if _, err := tx.Exec(`
			UPDATE real_account_data
			SET inflation_rate = ?, adjusted_amount = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`, u.rate, u.updated, u.id); err != nil {
			return 0, WrapError(ErrCodeDatabase, "update real data", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, WrapError(ErrCodeDatabase, "commit", err)
	}
	c.logOperation("REAL_DATA_RECALCULATE", "simulation", &simulationID,
		stringPtr(fmt.Sprintf("%d entries", len(updates))))
	return len(updates), nil
}

// ListRealData returns a simulation's observed entries in year order.
func (c *Core) ListRealData(userID string, simulationID int64) ([]RealAccountData, error) {
	if _, err := c.ownedSimulation(userID, simulationID); err != nil {
		return nil, err
	}
	rows, err := c.db.Query(`
		SELECT id, simulation_id, year, nominal_amount, inflation_rate, adjusted_amount, updated_at
		FROM real_account_data WHERE simulation_id = ? ORDER BY year`, simulationID)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "list real data", err)
	}
	defer rows.Close()

	var entries []RealAccountData
	for rows.Next() {
		var e RealAccountData
		var updatedAt sql.NullString
		if err := rows.Scan(&e.ID, &e.SimulationID, &e.Year, &e.NominalAmount,
			&e.InflationRate, &e.AdjustedAmount, &updatedAt); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan real data", err)
		}
		e.UpdatedAt = nullStringPtr(updatedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteRealData removes one observed entry. No derived state elsewhere
// depends on it.
func (c *Core) DeleteRealData(userID string, id int64) error {
	var simulationID int64
	err := c.db.QueryRow("SELECT simulation_id FROM real_account_data WHERE id = ?", id).Scan(&simulationID)
	if err == sql.ErrNoRows {
		return Errorf(ErrCodeNotFound, "real data entry %d not found", id)
	}
	if err != nil {
		return WrapError(ErrCodeDatabase, "lookup real data", err)
	}
	if _, err := c.ownedSimulation(userID, simulationID); err != nil {
		return err
	}
	if _, err := c.db.Exec("DELETE FROM real_account_data WHERE id = ?", id); err != nil {
		return WrapError(ErrCodeDatabase, "delete real data", err)
	}
	return nil
}
