package epargne

import (
	"database/sql"
	"fmt"
)

func initDatabase(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS categories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS simulations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			category_id INTEGER NOT NULL REFERENCES categories(id),
			account_name TEXT NOT NULL,
			initial_amount REAL NOT NULL,
			currency TEXT NOT NULL DEFAULT 'EUR',
			rate_percent REAL NOT NULL,
			period_years INTEGER NOT NULL,
			start_year INTEGER NOT NULL,
			annual_contribution REAL NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS consolidated_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			simulation_id INTEGER NOT NULL REFERENCES simulations(id) ON DELETE CASCADE,
			year INTEGER NOT NULL,
			amount REAL NOT NULL,
			account_name TEXT NOT NULL
		)
	`); err != nil {
		return err
	}
	if err := exec(tx, `
		CREATE INDEX IF NOT EXISTS idx_results_simulation_year
		ON consolidated_results(simulation_id, year)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS real_account_data (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			simulation_id INTEGER NOT NULL REFERENCES simulations(id) ON DELETE CASCADE,
			year INTEGER NOT NULL,
			nominal_amount REAL NOT NULL,
			inflation_rate REAL NOT NULL DEFAULT 0,
			adjusted_amount REAL NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(simulation_id, year)
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS annual_inflation_rates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			year INTEGER NOT NULL UNIQUE,
			rate REAL NOT NULL,
			comment TEXT NOT NULL DEFAULT '',
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS stocks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			asset_type TEXT NOT NULL DEFAULT 'STOCK',
			sector TEXT,
			currency TEXT NOT NULL DEFAULT 'EUR',
			current_price REAL,
			price_change REAL,
			price_change_percent REAL,
			volume INTEGER,
			last_update DATETIME
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS portfolios (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, name)
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS positions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			portfolio_id INTEGER NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
			stock_id INTEGER NOT NULL REFERENCES stocks(id),
			quantity REAL NOT NULL,
			average_price REAL NOT NULL,
			opened_at TEXT NOT NULL,
			UNIQUE(portfolio_id, stock_id)
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			portfolio_id INTEGER NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
			stock_id INTEGER NOT NULL REFERENCES stocks(id),
			type TEXT NOT NULL,
			quantity REAL NOT NULL,
			price REAL NOT NULL,
			trade_date TEXT NOT NULL,
			fees REAL NOT NULL DEFAULT 0,
			notes TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}
	if err := exec(tx, `
		CREATE INDEX IF NOT EXISTS idx_transactions_portfolio_stock
		ON transactions(portfolio_id, stock_id, trade_date)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS operation_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			operation TEXT NOT NULL,
			entity TEXT,
			entity_id INTEGER,
			detail TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	if err := seedCategories(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// seedCategories inserts the default account classes once; user-added
// categories survive restarts untouched.
func seedCategories(tx *sql.Tx) error {
	var count int
	if err := tx.QueryRow("SELECT COUNT(*) FROM categories").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, name := range DefaultCategories {
		if _, err := tx.Exec("INSERT INTO categories (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
	}
	return nil
}

func exec(tx *sql.Tx, stmt string) error {
	if _, err := tx.Exec(stmt); err != nil {
		return fmt.Errorf("schema statement failed: %w", err)
	}
	return nil
}
