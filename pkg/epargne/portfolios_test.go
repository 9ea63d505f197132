package epargne

import (
	"context"
	"testing"
)

func TestCreatePortfolio(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	portfolio, err := core.CreatePortfolio("alice", "PEA", "plan d'épargne en actions")
	assertNoError(t, err, "CreatePortfolio")
	if portfolio.Name != "PEA" || portfolio.UserID != "alice" {
		t.Fatalf("unexpected portfolio: %+v", portfolio)
	}

	_, err = core.CreatePortfolio("alice", "PEA", "")
	assertErrorCode(t, err, ErrCodeDuplicate, "duplicate name")

	// Same name is fine for another user.
	_, err = core.CreatePortfolio("bob", "PEA", "")
	assertNoError(t, err, "same name other user")

	_, err = core.CreatePortfolio("alice", "  ", "")
	assertErrorCode(t, err, ErrCodeInvalidParameters, "blank name")

	_, err = core.CreatePortfolio("", "X", "")
	assertErrorCode(t, err, ErrCodeInvalidParameters, "missing user")
}

func TestListPortfoliosValuation(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	testStock(t, core, "TTE", "TotalEnergies")
	portfolio := testPortfolio(t, core, "alice", "PEA")
	testBuy(t, core, "alice", portfolio.ID, "TTE", 10, 50)

	summaries, err := core.ListPortfolios("alice")
	assertNoError(t, err, "ListPortfolios")
	if len(summaries) != 1 {
		t.Fatalf("expected 1 portfolio, got %d", len(summaries))
	}
	if summaries[0].PositionCount != 1 {
		t.Errorf("position count: got %d", summaries[0].PositionCount)
	}
	assertAmount(t, summaries[0].TotalCost, 500, "total cost")
	// No quote stored yet.
	if summaries[0].TotalMarketValue != nil {
		t.Errorf("expected nil market value without price, got %v", summaries[0].TotalMarketValue)
	}

	// Once a price exists the market value appears.
	_, err = core.db.Exec("UPDATE stocks SET current_price = 60, last_update = datetime('now') WHERE symbol = 'TTE'")
	assertNoError(t, err, "seed price")
	summaries, err = core.ListPortfolios("alice")
	assertNoError(t, err, "ListPortfolios with price")
	if summaries[0].TotalMarketValue == nil {
		t.Fatal("expected market value with price")
	}
	assertAmount(t, *summaries[0].TotalMarketValue, 600, "market value")
}

func TestGetPortfolioDetail(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	testStock(t, core, "TTE", "TotalEnergies")
	portfolio := testPortfolio(t, core, "alice", "PEA")
	testBuy(t, core, "alice", portfolio.ID, "TTE", 10, 50)
	_, err := core.db.Exec("UPDATE stocks SET current_price = 55, last_update = datetime('now') WHERE symbol = 'TTE'")
	assertNoError(t, err, "seed price")

	detail, err := core.GetPortfolioDetail(context.Background(), "alice", portfolio.ID)
	assertNoError(t, err, "GetPortfolioDetail")
	if len(detail.Positions) != 1 || len(detail.Transactions) != 1 {
		t.Fatalf("expected 1 position and 1 transaction, got %d/%d",
			len(detail.Positions), len(detail.Transactions))
	}

	pos := detail.Positions[0]
	assertAmount(t, pos.CostBasis, 500, "cost basis")
	if pos.CurrentValue == nil || pos.GainLoss == nil || pos.GainLossPercent == nil {
		t.Fatal("expected valuation fields with a price")
	}
	assertAmount(t, *pos.CurrentValue, 550, "current value")
	assertAmount(t, *pos.GainLoss, 50, "gain")
	assertAmount(t, *pos.GainLossPercent, 10, "gain percent")

	assertAmount(t, detail.TotalCost, 500, "total cost")
	if detail.TotalMarketValue == nil || detail.TotalGainLoss == nil {
		t.Fatal("expected portfolio totals with a price")
	}
	assertAmount(t, *detail.TotalMarketValue, 550, "total market value")
	assertAmount(t, *detail.TotalGainLoss, 50, "total gain")
}

func TestPortfolioOwnership(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	portfolio := testPortfolio(t, core, "alice", "PEA")

	_, err := core.GetPortfolioDetail(context.Background(), "bob", portfolio.ID)
	assertErrorCode(t, err, ErrCodePermissionDenied, "foreign detail")

	assertErrorCode(t, core.DeletePortfolio("bob", portfolio.ID), ErrCodePermissionDenied, "foreign delete")

	_, err = core.ListPositions("bob", portfolio.ID)
	assertErrorCode(t, err, ErrCodePermissionDenied, "foreign positions")

	_, err = core.GetPortfolioDetail(context.Background(), "alice", 9999)
	assertErrorCode(t, err, ErrCodeNotFound, "missing portfolio")
}

func TestDeletePortfolioCascades(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	testStock(t, core, "TTE", "TotalEnergies")
	portfolio := testPortfolio(t, core, "alice", "PEA")
	testBuy(t, core, "alice", portfolio.ID, "TTE", 10, 50)

	assertNoError(t, core.DeletePortfolio("alice", portfolio.ID), "DeletePortfolio")

	var positions, transactions int
	assertNoError(t, core.db.QueryRow(
		"SELECT COUNT(*) FROM positions WHERE portfolio_id = ?", portfolio.ID).Scan(&positions), "count positions")
	assertNoError(t, core.db.QueryRow(
		"SELECT COUNT(*) FROM transactions WHERE portfolio_id = ?", portfolio.ID).Scan(&transactions), "count transactions")
	if positions != 0 || transactions != 0 {
		t.Fatalf("expected cascade delete, got %d positions and %d transactions", positions, transactions)
	}
}
