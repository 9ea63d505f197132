package epargne

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setupTestDB creates a temporary database for testing and returns a
// Core instance. The caller should defer cleanup() to remove the temp
// file.
func setupTestDB(t *testing.T) (*Core, func()) {
	t.Helper()
	return setupTestDBWithOptions(t, Options{})
}

func setupTestDBWithOptions(t *testing.T, opts Options) (*Core, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "epargne-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	opts.DBPath = filepath.Join(tmpDir, "test.db")
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	core, err := OpenWithOptions(opts)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to open test db: %v", err)
	}

	cleanup := func() {
		core.Close()
		os.RemoveAll(tmpDir)
	}
	return core, cleanup
}

// currentYear keeps test fixtures inside the start-year window.
func currentYear() int {
	return time.Now().Year()
}

// testSimulationRequest builds a valid request for the given account.
func testSimulationRequest(account string, initial, rate float64, period int, contribution float64) SimulationRequest {
	return SimulationRequest{
		Category:           DefaultCategories[0],
		AccountName:        account,
		InitialAmount:      NewAmount(initial),
		RatePercent:        rate,
		PeriodYears:        period,
		StartYear:          currentYear(),
		AnnualContribution: NewAmount(contribution),
	}
}

// testSimulation creates a simulation for testing.
func testSimulation(t *testing.T, core *Core, user, account string, initial, rate float64, period int, contribution float64) *Simulation {
	t.Helper()
	sim, err := core.CreateSimulation(user, testSimulationRequest(account, initial, rate, period, contribution))
	if err != nil {
		t.Fatalf("failed to create test simulation: %v", err)
	}
	return sim
}

// testStock registers a STOCK instrument for testing.
func testStock(t *testing.T, core *Core, symbol, name string) *Stock {
	t.Helper()
	stock, err := core.AddStock(StockRequest{Symbol: symbol, Name: name, AssetType: "STOCK"})
	if err != nil {
		t.Fatalf("failed to create test stock: %v", err)
	}
	return stock
}

// testPortfolio creates a portfolio for testing.
func testPortfolio(t *testing.T, core *Core, user, name string) *Portfolio {
	t.Helper()
	portfolio, err := core.CreatePortfolio(user, name, "")
	if err != nil {
		t.Fatalf("failed to create test portfolio: %v", err)
	}
	return portfolio
}

// testBuy records a BUY transaction for testing.
func testBuy(t *testing.T, core *Core, user string, portfolioID int64, symbol string, qty, price float64) *Transaction {
	t.Helper()
	txn, err := core.AddTransaction(user, portfolioID, TransactionRequest{
		Symbol:   symbol,
		Type:     "BUY",
		Quantity: NewAmount(qty),
		Price:    NewAmount(price),
	})
	if err != nil {
		t.Fatalf("failed to create test BUY transaction: %v", err)
	}
	return txn
}

// testSell records a SELL transaction for testing.
func testSell(t *testing.T, core *Core, user string, portfolioID int64, symbol string, qty, price float64) *Transaction {
	t.Helper()
	txn, err := core.AddTransaction(user, portfolioID, TransactionRequest{
		Symbol:   symbol,
		Type:     "SELL",
		Quantity: NewAmount(qty),
		Price:    NewAmount(price),
	})
	if err != nil {
		t.Fatalf("failed to create test SELL transaction: %v", err)
	}
	return txn
}

// assertAmount fails the test if the amount does not match the expected
// value within a small tolerance.
func assertAmount(t *testing.T, got Amount, want float64, msg string) {
	t.Helper()
	f, _ := got.Float64()
	diff := f - want
	if diff < 0 {
		diff = -diff
	}
	if diff > 0.001 {
		t.Errorf("%s: got %.4f, want %.4f", msg, f, want)
	}
}

// assertNoError fails the test if err is not nil.
func assertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", msg, err)
	}
}

// assertError fails the test if err is nil.
func assertError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected error but got nil", msg)
	}
}

// assertErrorCode fails the test if err does not carry the given code.
func assertErrorCode(t *testing.T, err error, code ErrorCode, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected %s error but got nil", msg, code)
	}
	if !IsErrorCode(err, code) {
		t.Fatalf("%s: expected %s, got: %v", msg, code, err)
	}
}
