package epargne

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSV layouts follow the French convention: semicolon-delimited fields
// and a comma as the decimal separator.

var simulationCSVHeader = []string{
	"categorie", "nom_compte", "montant_initial", "currency",
	"taux_rentabilite", "periode", "annee_depart", "montant_fixe_annuel",
}

var realDataCSVHeader = []string{"nom_compte", "annee", "montant_reel", "taux_inflation"}

// ExportSimulations writes the user's simulations (optionally filtered
// by category or account name, empty = all) in the import-compatible
// layout, one row per simulation.
func (c *Core) ExportSimulations(w io.Writer, userID, category, accountName string) error {
	sims, err := c.ListSimulations(userID)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	writer.Comma = ';'
	if err := writer.Write(simulationCSVHeader); err != nil {
		return WrapError(ErrCodeInternal, "write csv header", err)
	}
	for _, sim := range sims {
		if category != "" && sim.Category != category {
			continue
		}
		if accountName != "" && sim.AccountName != accountName {
			continue
		}
		record := []string{
			sim.Category,
			sim.AccountName,
			frenchDecimal(sim.InitialAmount.String()),
			sim.Currency,
			frenchDecimal(strconv.FormatFloat(sim.RatePercent, 'f', -1, 64)),
			strconv.Itoa(sim.PeriodYears),
			strconv.Itoa(sim.StartYear),
			frenchDecimal(sim.AnnualContribution.String()),
		}
		if err := writer.Write(record); err != nil {
			return WrapError(ErrCodeInternal, "write csv row", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return WrapError(ErrCodeInternal, "flush csv", err)
	}
	return nil
}

// ImportSimulations reads simulation rows and creates them for the user,
// computing each result series. The whole file is validated before the
// first write; any bad row aborts with its 1-based data row number and
// nothing is applied. The inserts and series calculations then run in a
// single transaction.
func (c *Core) ImportSimulations(userID string, r io.Reader) (int, error) {
	if userID == "" {
		return 0, NewError(ErrCodeInvalidParameters, "user is required")
	}

	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return 0, NewError(ErrCodeImportRow, "empty file")
	}
	if err != nil {
		return 0, WrapError(ErrCodeImportRow, "read csv header", err)
	}
	if err := checkCSVHeader(header, simulationCSVHeader); err != nil {
		return 0, err
	}

	var requests []SimulationRequest
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return 0, RowError(row, fmt.Sprintf("malformed csv: %v", err))
		}
		req, err := parseSimulationRecord(row, record)
		if err != nil {
			return 0, err
		}
		requests = append(requests, req)
	}
	if len(requests) == 0 {
		return 0, NewError(ErrCodeImportRow, "no data rows")
	}

	// Semantic validation still before any write.
	for i, req := range requests {
		if err := ValidateSimulationRequest(req); err != nil {
			return 0, RowError(i+1, err.Error())
		}
		if !isValidCurrency(currencyOrDefault(req.Currency)) {
			return 0, RowError(i+1, "unsupported currency: "+req.Currency)
		}
		if exists, err := c.categoryExists(req.Category); err != nil {
			return 0, err
		} else if !exists {
			return 0, RowError(i+1, "unknown category: "+req.Category)
		}
	}

	tx, err := c.db.Begin()
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "begin", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, req := range requests {
		id, err := c.insertSimulationTx(tx, userID, req)
		if err != nil {
			return 0, RowError(i+1, err.Error())
		}
		sim, err := c.getSimulationTx(tx, id)
		if err != nil {
			return 0, err
		}
		if err := regenerateResults(tx, sim); err != nil {
			return 0, RowError(i+1, fmt.Sprintf("calculation failed for %s: %v", req.AccountName, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, WrapError(ErrCodeDatabase, "commit", err)
	}
	c.logOperation("SIMULATIONS_IMPORT", "simulation", nil,
		stringPtr(fmt.Sprintf("%d row(s)", len(requests))))
	return len(requests), nil
}

func parseSimulationRecord(row int, record []string) (SimulationRequest, error) {
	var req SimulationRequest
	if len(record) != len(simulationCSVHeader) {
		return req, RowError(row, fmt.Sprintf("expected %d fields, got %d", len(simulationCSVHeader), len(record)))
	}
	req.Category = strings.TrimSpace(record[0])
	req.AccountName = strings.TrimSpace(record[1])

	initial, err := ParseAmount(record[2])
	if err != nil {
		return req, RowError(row, "invalid montant_initial: "+record[2])
	}
	req.InitialAmount = initial
	req.Currency = strings.TrimSpace(record[3])

	rate, err := strconv.ParseFloat(normalizeDecimalString(record[4]), 64)
	if err != nil {
		return req, RowError(row, "invalid taux_rentabilite: "+record[4])
	}
	req.RatePercent = rate

	period, err := strconv.Atoi(strings.TrimSpace(record[5]))
	if err != nil {
		return req, RowError(row, "invalid periode: "+record[5])
	}
	req.PeriodYears = period

	startYear, err := strconv.Atoi(strings.TrimSpace(record[6]))
	if err != nil {
		return req, RowError(row, "invalid annee_depart: "+record[6])
	}
	req.StartYear = startYear

	contribution, err := ParseAmount(record[7])
	if err != nil {
		return req, RowError(row, "invalid montant_fixe_annuel: "+record[7])
	}
	req.AnnualContribution = contribution
	return req, nil
}

// ExportRealData writes all the user's observed entries.
func (c *Core) ExportRealData(w io.Writer, userID string) error {
	rows, err := c.db.Query(`
		SELECT s.account_name, r.year, r.nominal_amount, r.inflation_rate
		FROM real_account_data r
		JOIN simulations s ON s.id = r.simulation_id
		WHERE s.user_id = ?
		ORDER BY s.account_name, r.year`, userID)
	if err != nil {
		return WrapError(ErrCodeDatabase, "export real data", err)
	}
	defer rows.Close()

	writer := csv.NewWriter(w)
	writer.Comma = ';'
	if err := writer.Write(realDataCSVHeader); err != nil {
		return WrapError(ErrCodeInternal, "write csv header", err)
	}
	for rows.Next() {
		var accountName string
		var year int
		var nominal, rate Amount
		if err := rows.Scan(&accountName, &year, &nominal, &rate); err != nil {
			return WrapError(ErrCodeDatabase, "scan real data", err)
		}
		record := []string{
			accountName,
			strconv.Itoa(year),
			frenchDecimal(nominal.String()),
			frenchDecimal(rate.String()),
		}
		if err := writer.Write(record); err != nil {
			return WrapError(ErrCodeInternal, "write csv row", err)
		}
	}
	if err := rows.Err(); err != nil {
		return WrapError(ErrCodeDatabase, "iterate real data", err)
	}
	writer.Flush()
	return writer.Error()
}

// ImportRealData reads observed entries and upserts them against the
// user's simulations, matched by account name. Unmatched rows are
// skipped with a warning; malformed rows abort the whole import. The
// captured inflation rate comes from the file, not the global table.
func (c *Core) ImportRealData(userID string, r io.Reader) (int, []string, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return 0, nil, NewError(ErrCodeImportRow, "empty file")
	}
	if err != nil {
		return 0, nil, WrapError(ErrCodeImportRow, "read csv header", err)
	}
	if err := checkCSVHeader(header, realDataCSVHeader); err != nil {
		return 0, nil, err
	}

	type entry struct {
		simulationID int64
		year         int
		nominal      Amount
		rate         Amount
	}
	var entries []entry
	var warnings []string
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return 0, nil, RowError(row, fmt.Sprintf("malformed csv: %v", err))
		}
		if len(record) != len(realDataCSVHeader) {
			return 0, nil, RowError(row, fmt.Sprintf("expected %d fields, got %d", len(realDataCSVHeader), len(record)))
		}

		accountName := strings.TrimSpace(record[0])
		var simulationID int64
		err = c.db.QueryRow(
			"SELECT id FROM simulations WHERE account_name = ? AND user_id = ? ORDER BY id LIMIT 1",
			accountName, userID).Scan(&simulationID)
		if err == sql.ErrNoRows {
			warnings = append(warnings, fmt.Sprintf("row %d: account not found: %s", row, accountName))
			continue
		}
		if err != nil {
			return 0, nil, WrapError(ErrCodeDatabase, "lookup simulation", err)
		}

		year, err := strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil {
			return 0, nil, RowError(row, "invalid annee: "+record[1])
		}
		nominal, err := ParseAmount(record[2])
		if err != nil {
			return 0, nil, RowError(row, "invalid montant_reel: "+record[2])
		}
		rate, err := ParseAmount(record[3])
		if err != nil {
			return 0, nil, RowError(row, "invalid taux_inflation: "+record[3])
		}
		if err := validateInflationRate(rate); err != nil {
			return 0, nil, RowError(row, err.Error())
		}
		entries = append(entries, entry{simulationID: simulationID, year: year, nominal: nominal, rate: rate})
	}

	tx, err := c.db.Begin()
	if err != nil {
		return 0, nil, WrapError(ErrCodeDatabase, "begin", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, e := range entries {
		adjusted := adjustForInflation(e.nominal, e.rate)
		if _, err := tx.Exec(`
			INSERT INTO real_account_data (simulation_id, year, nominal_amount, inflation_rate, adjusted_amount)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(simulation_id, year) DO UPDATE SET
				nominal_amount = excluded.nominal_amount,
				inflation_rate = excluded.inflation_rate,
				adjusted_amount = excluded.adjusted_amount,
				updated_at = CURRENT_TIMESTAMP`,
			e.simulationID, e.year, e.nominal, e.rate, adjusted,
		); err != nil {
			return 0, nil, WrapError(ErrCodeDatabase, "upsert real data", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, WrapError(ErrCodeDatabase, "commit", err)
	}
	c.logOperation("REAL_DATA_IMPORT", "real_data", nil,
		stringPtr(fmt.Sprintf("%d row(s), %d skipped", len(entries), len(warnings))))
	return len(entries), warnings, nil
}

func (c *Core) categoryExists(name string) (bool, error) {
	var id int64
	err := c.db.QueryRow("SELECT id FROM categories WHERE name = ?", strings.TrimSpace(name)).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, WrapError(ErrCodeDatabase, "lookup category", err)
	}
	return true, nil
}

func checkCSVHeader(got, want []string) error {
	if len(got) != len(want) {
		return Errorf(ErrCodeImportRow, "expected header %s", strings.Join(want, ";"))
	}
	for i := range want {
		if !strings.EqualFold(strings.TrimSpace(got[i]), want[i]) {
			return Errorf(ErrCodeImportRow, "expected header %s", strings.Join(want, ";"))
		}
	}
	return nil
}

func frenchDecimal(s string) string {
	return strings.ReplaceAll(s, ".", ",")
}
