package epargne

import (
	"database/sql"
	"fmt"
	"strings"
)

const simulationColumns = `
	s.id, s.user_id, s.category_id, c.name, s.account_name,
	s.initial_amount, s.currency, s.rate_percent, s.period_years,
	s.start_year, s.annual_contribution, s.created_at, s.updated_at`

// CreateSimulation validates the request, persists the simulation and
// computes its full result series in one transaction. A calculation
// failure rolls back the simulation row as well, so a simulation never
// exists without a complete series.
func (c *Core) CreateSimulation(userID string, req SimulationRequest) (*Simulation, error) {
	if userID == "" {
		return nil, NewError(ErrCodeInvalidParameters, "user is required")
	}
	if err := ValidateSimulationRequest(req); err != nil {
		return nil, err
	}

	tx, err := c.db.Begin()
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "begin", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	id, err := c.insertSimulationTx(tx, userID, req)
	if err != nil {
		return nil, err
	}

	sim, err := c.getSimulationTx(tx, id)
	if err != nil {
		return nil, err
	}
	if err := regenerateResults(tx, sim); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, WrapError(ErrCodeDatabase, "commit", err)
	}
	return sim, nil
}

func (c *Core) insertSimulationTx(tx *sql.Tx, userID string, req SimulationRequest) (int64, error) {
	categoryID, err := c.categoryIDByName(tx, req.Category)
	if err != nil {
		return 0, err
	}
	result, err := tx.Exec(`
		INSERT INTO simulations (
			user_id, category_id, account_name, initial_amount, currency,
			rate_percent, period_years, start_year, annual_contribution
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, categoryID, strings.TrimSpace(req.AccountName), req.InitialAmount,
		currencyOrDefault(req.Currency), req.RatePercent, req.PeriodYears,
		req.StartYear, req.AnnualContribution,
	)
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "insert simulation", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "simulation id", err)
	}
	return id, nil
}

// UpdateSimulation replaces the simulation's parameters and atomically
// regenerates its whole result series. The series is never patched in
// place: a shorter period must not leave stale future-year rows behind.
func (c *Core) UpdateSimulation(userID string, id int64, req SimulationRequest) (*Simulation, error) {
	if err := ValidateSimulationRequest(req); err != nil {
		return nil, err
	}
	if _, err := c.ownedSimulation(userID, id); err != nil {
		return nil, err
	}

	tx, err := c.db.Begin()
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "begin", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	categoryID, err := c.categoryIDByName(tx, req.Category)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(`
		UPDATE simulations SET
			category_id = ?, account_name = ?, initial_amount = ?, currency = ?,
			rate_percent = ?, period_years = ?, start_year = ?,
			annual_contribution = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		categoryID, strings.TrimSpace(req.AccountName), req.InitialAmount,
		currencyOrDefault(req.Currency), req.RatePercent, req.PeriodYears,
		req.StartYear, req.AnnualContribution, id,
	); err != nil {
		return nil, WrapError(ErrCodeDatabase, "update simulation", err)
	}

	sim, err := c.getSimulationTx(tx, id)
	if err != nil {
		return nil, err
	}
	if err := regenerateResults(tx, sim); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, WrapError(ErrCodeDatabase, "commit", err)
	}
	return sim, nil
}

// regenerateResults rebuilds the consolidated result series for sim
// inside tx: delete everything, recompute, bulk insert. The series for
// one simulation is therefore always internally consistent with the
// current parameters.
func regenerateResults(tx *sql.Tx, sim *Simulation) error {
	series, err := ProjectionSeries(SimulationRequest{
		Category:           sim.Category,
		AccountName:        sim.AccountName,
		InitialAmount:      sim.InitialAmount,
		Currency:           sim.Currency,
		RatePercent:        sim.RatePercent,
		PeriodYears:        sim.PeriodYears,
		StartYear:          sim.StartYear,
		AnnualContribution: sim.AnnualContribution,
	})
	if err != nil {
		return err
	}

	if _, err := tx.Exec("DELETE FROM consolidated_results WHERE simulation_id = ?", sim.ID); err != nil {
		return WrapError(ErrCodeDatabase, "clear results", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO consolidated_results (simulation_id, year, amount, account_name)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return WrapError(ErrCodeDatabase, "prepare results insert", err)
	}
	defer stmt.Close()

	for _, point := range series {
		if _, err := stmt.Exec(sim.ID, point.Year, point.Amount, sim.AccountName); err != nil {
			return WrapError(ErrCodeDatabase, "insert result row", err)
		}
	}
	return nil
}

// GetSimulation returns one of the user's simulations.
func (c *Core) GetSimulation(userID string, id int64) (*Simulation, error) {
	return c.ownedSimulation(userID, id)
}

// ListSimulations returns the user's simulations ordered by account name.
func (c *Core) ListSimulations(userID string) ([]Simulation, error) {
	rows, err := c.db.Query(`
		SELECT `+simulationColumns+`
		FROM simulations s JOIN categories c ON c.id = s.category_id
		WHERE s.user_id = ?
		ORDER BY s.account_name, s.id`, userID)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "list simulations", err)
	}
	defer rows.Close()

	var sims []Simulation
	for rows.Next() {
		sim, err := scanSimulation(rows)
		if err != nil {
			return nil, err
		}
		sims = append(sims, *sim)
	}
	return sims, rows.Err()
}

// ListResults returns the derived series of one simulation in year order.
func (c *Core) ListResults(userID string, simulationID int64) ([]ConsolidatedResult, error) {
	if _, err := c.ownedSimulation(userID, simulationID); err != nil {
		return nil, err
	}
	return c.queryResults(`
		SELECT id, simulation_id, year, amount, account_name
		FROM consolidated_results WHERE simulation_id = ? ORDER BY year`, simulationID)
}

// ListAllResults returns every result row of the user's simulations,
// with category attached for grouping.
func (c *Core) ListAllResults(userID string) ([]GroupedResult, error) {
	rows, err := c.db.Query(`
		SELECT r.id, r.simulation_id, r.year, r.amount, r.account_name, c.name
		FROM consolidated_results r
		JOIN simulations s ON s.id = r.simulation_id
		JOIN categories c ON c.id = s.category_id
		WHERE s.user_id = ?
		ORDER BY r.year, c.name, r.account_name`, userID)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "list results", err)
	}
	defer rows.Close()

	var results []GroupedResult
	for rows.Next() {
		var r GroupedResult
		if err := rows.Scan(&r.ID, &r.SimulationID, &r.Year, &r.Amount, &r.AccountName, &r.Category); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan result", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ListResultsByCategory returns the user's result rows for one category,
// or all rows when category is empty.
func (c *Core) ListResultsByCategory(userID, category string) ([]GroupedResult, error) {
	all, err := c.ListAllResults(userID)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return all, nil
	}
	var filtered []GroupedResult
	for _, r := range all {
		if r.Category == category {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// ListResultsByAccount returns the user's result rows for one account
// name, or all rows when name is empty.
func (c *Core) ListResultsByAccount(userID, accountName string) ([]GroupedResult, error) {
	all, err := c.ListAllResults(userID)
	if err != nil {
		return nil, err
	}
	if accountName == "" {
		return all, nil
	}
	var filtered []GroupedResult
	for _, r := range all {
		if r.AccountName == accountName {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// DeleteSimulation removes a simulation after an ownership check. The
// result series and real-data entries go with it.
func (c *Core) DeleteSimulation(userID string, id int64) error {
	sim, err := c.ownedSimulation(userID, id)
	if err != nil {
		return err
	}
	if _, err := c.db.Exec("DELETE FROM simulations WHERE id = ?", id); err != nil {
		return WrapError(ErrCodeDatabase, "delete simulation", err)
	}
	c.logOperation("SIMULATION_DELETE", "simulation", &id, stringPtr(sim.AccountName))
	return nil
}

// DeleteAccountSimulations removes every simulation of the user sharing
// the given account name. Refused when simulations with that name also
// belong to other users.
func (c *Core) DeleteAccountSimulations(userID, accountName string) (int, error) {
	var total, owned int
	err := c.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN user_id = ? THEN 1 ELSE 0 END), 0)
		FROM simulations WHERE account_name = ?`, userID, accountName).Scan(&total, &owned)
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "count account simulations", err)
	}
	if total == 0 {
		return 0, Errorf(ErrCodeNotFound, "account %q not found", accountName)
	}
	if owned == 0 {
		return 0, NewError(ErrCodePermissionDenied, "account belongs to another user")
	}
	if owned != total {
		return 0, NewError(ErrCodePermissionDenied,
			"account has simulations owned by other users; only yours can be deleted")
	}

	result, err := c.db.Exec(
		"DELETE FROM simulations WHERE account_name = ? AND user_id = ?", accountName, userID)
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "delete account simulations", err)
	}
	n, _ := result.RowsAffected()
	c.logOperation("ACCOUNT_DELETE", "account", nil,
		stringPtr(fmt.Sprintf("%s (%d simulation(s))", accountName, n)))
	return int(n), nil
}

func (c *Core) queryResults(query string, args ...any) ([]ConsolidatedResult, error) {
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query results", err)
	}
	defer rows.Close()

	var results []ConsolidatedResult
	for rows.Next() {
		var r ConsolidatedResult
		if err := rows.Scan(&r.ID, &r.SimulationID, &r.Year, &r.Amount, &r.AccountName); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan result", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ownedSimulation loads a simulation and verifies ownership.
func (c *Core) ownedSimulation(userID string, id int64) (*Simulation, error) {
	row := c.db.QueryRow(`
		SELECT `+simulationColumns+`
		FROM simulations s JOIN categories c ON c.id = s.category_id
		WHERE s.id = ?`, id)
	sim, err := scanSimulation(row)
	if err == sql.ErrNoRows {
		return nil, Errorf(ErrCodeNotFound, "simulation %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	if sim.UserID != userID {
		return nil, NewError(ErrCodePermissionDenied, "simulation belongs to another user")
	}
	return sim, nil
}

func (c *Core) getSimulationTx(tx *sql.Tx, id int64) (*Simulation, error) {
	row := tx.QueryRow(`
		SELECT `+simulationColumns+`
		FROM simulations s JOIN categories c ON c.id = s.category_id
		WHERE s.id = ?`, id)
	sim, err := scanSimulation(row)
	if err == sql.ErrNoRows {
		return nil, Errorf(ErrCodeNotFound, "simulation %d not found", id)
	}
	return sim, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSimulation(row rowScanner) (*Simulation, error) {
	var sim Simulation
	var createdAt, updatedAt sql.NullString
	err := row.Scan(
		&sim.ID, &sim.UserID, &sim.CategoryID, &sim.Category, &sim.AccountName,
		&sim.InitialAmount, &sim.Currency, &sim.RatePercent, &sim.PeriodYears,
		&sim.StartYear, &sim.AnnualContribution, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "scan simulation", err)
	}
	sim.CreatedAt = nullStringPtr(createdAt)
	sim.UpdatedAt = nullStringPtr(updatedAt)
	return &sim, nil
}
