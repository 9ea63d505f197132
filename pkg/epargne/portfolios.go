package epargne

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CreatePortfolio creates a named container for positions and
// transactions. Names are unique per user.
func (c *Core) CreatePortfolio(userID, name, description string) (*Portfolio, error) {
	if userID == "" {
		return nil, NewError(ErrCodeInvalidParameters, "user is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewError(ErrCodeInvalidParameters, "portfolio name is required")
	}

	var existing int64
	err := c.db.QueryRow(
		"SELECT id FROM portfolios WHERE user_id = ? AND name = ?", userID, name).Scan(&existing)
	if err == nil {
		return nil, Errorf(ErrCodeDuplicate, "portfolio %q already exists", name)
	}
	if err != sql.ErrNoRows {
		return nil, WrapError(ErrCodeDatabase, "lookup portfolio", err)
	}

	result, err := c.db.Exec(
		"INSERT INTO portfolios (user_id, name, description) VALUES (?, ?, ?)",
		userID, name, description)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "insert portfolio", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "portfolio id", err)
	}
	return c.ownedPortfolio(userID, id)
}

// ListPortfolios returns the user's portfolios with aggregate valuation.
// Market value is nil when any held stock lacks a price.
func (c *Core) ListPortfolios(userID string) ([]PortfolioSummary, error) {
	rows, err := c.db.Query(`
		SELECT id, user_id, name, description, created_at, updated_at
		FROM portfolios WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "list portfolios", err)
	}
	defer rows.Close()

	var summaries []PortfolioSummary
	for rows.Next() {
		var s PortfolioSummary
		var createdAt, updatedAt sql.NullString
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.Description, &createdAt, &updatedAt); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan portfolio", err)
		}
		s.CreatedAt = nullStringPtr(createdAt)
		s.UpdatedAt = nullStringPtr(updatedAt)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(ErrCodeDatabase, "iterate portfolios", err)
	}

	for i := range summaries {
		positions, err := c.listPositions(summaries[i].ID)
		if err != nil {
			return nil, err
		}
		summaries[i].PositionCount = len(positions)
		cost, value, complete := sumValuation(positions)
		summaries[i].TotalCost = cost
		if complete {
			summaries[i].TotalMarketValue = amountPtr(value)
		}
	}
	return summaries, nil
}

// GetPortfolioDetail returns a portfolio with valued positions and the
// transaction history. Stale stock snapshots are refreshed best-effort
// first; a failed refresh keeps the stale price and never fails the
// read. No SQL transaction is held across the network calls.
func (c *Core) GetPortfolioDetail(ctx context.Context, userID string, id int64) (*PortfolioDetail, error) {
	portfolio, err := c.ownedPortfolio(userID, id)
	if err != nil {
		return nil, err
	}

	positions, err := c.listPositions(id)
	if err != nil {
		return nil, err
	}
	for i := range positions {
		stock, err := c.GetStock(positions[i].StockID)
		if err != nil {
			return nil, err
		}
		if c.stockNeedsRefresh(stock, time.Now()) {
			if refreshed, err := c.RefreshStock(ctx, stock.ID, false); err == nil {
				stock = refreshed
			}
		}
		positions[i].CurrentPrice = stock.CurrentPrice
		positionValuation(&positions[i])
	}

	transactions, err := c.ListTransactions(userID, id)
	if err != nil {
		return nil, err
	}

	detail := &PortfolioDetail{
		Portfolio:    *portfolio,
		Positions:    positions,
		Transactions: transactions,
	}
	cost, value, complete := sumValuation(positions)
	detail.TotalCost = cost
	if complete {
		detail.TotalMarketValue = amountPtr(value)
		detail.TotalGainLoss = amountPtr(Amount{value.Sub(cost.Decimal)})
	}
	return detail, nil
}

// DeletePortfolio removes a portfolio; positions and transactions go
// with it.
func (c *Core) DeletePortfolio(userID string, id int64) error {
	portfolio, err := c.ownedPortfolio(userID, id)
	if err != nil {
		return err
	}
	if _, err := c.db.Exec("DELETE FROM portfolios WHERE id = ?", id); err != nil {
		return WrapError(ErrCodeDatabase, "delete portfolio", err)
	}
	c.logOperation("PORTFOLIO_DELETE", "portfolio", &id, stringPtr(portfolio.Name))
	return nil
}

// ListPositions returns a portfolio's positions with valuation from the
// stored snapshots (no refresh).
func (c *Core) ListPositions(userID string, portfolioID int64) ([]Position, error) {
	if _, err := c.ownedPortfolio(userID, portfolioID); err != nil {
		return nil, err
	}
	positions, err := c.listPositions(portfolioID)
	if err != nil {
		return nil, err
	}
	for i := range positions {
		positionValuation(&positions[i])
	}
	return positions, nil
}

func (c *Core) listPositions(portfolioID int64) ([]Position, error) {
	rows, err := c.db.Query(`
		SELECT p.id, p.portfolio_id, p.stock_id, s.symbol, s.name, s.asset_type,
			p.quantity, p.average_price, p.opened_at, s.current_price
		FROM positions p JOIN stocks s ON s.id = p.stock_id
		WHERE p.portfolio_id = ?
		ORDER BY s.symbol`, portfolioID)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "list positions", err)
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		var p Position
		var price any
		if err := rows.Scan(&p.ID, &p.PortfolioID, &p.StockID, &p.Symbol, &p.StockName,
			&p.AssetType, &p.Quantity, &p.AveragePrice, &p.OpenedAt, &price); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan position", err)
		}
		if p.CurrentPrice, err = scanNullAmount(price); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan position price", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

func sumValuation(positions []Position) (cost Amount, value Amount, complete bool) {
	costTotal := decimal.Zero
	valueTotal := decimal.Zero
	complete = true
	for _, p := range positions {
		costTotal = costTotal.Add(p.Quantity.Mul(p.AveragePrice.Decimal))
		if p.CurrentPrice == nil {
			complete = false
			continue
		}
		valueTotal = valueTotal.Add(p.Quantity.Mul(p.CurrentPrice.Decimal))
	}
	return Amount{costTotal}, Amount{valueTotal}, complete
}

func (c *Core) ownedPortfolio(userID string, id int64) (*Portfolio, error) {
	var p Portfolio
	var createdAt, updatedAt sql.NullString
	err := c.db.QueryRow(`
		SELECT id, user_id, name, description, created_at, updated_at
		FROM portfolios WHERE id = ?`, id).Scan(
		&p.ID, &p.UserID, &p.Name, &p.Description, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, Errorf(ErrCodeNotFound, "portfolio %d not found", id)
	}
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "load portfolio", err)
	}
	if p.UserID != userID {
		return nil, NewError(ErrCodePermissionDenied, "portfolio belongs to another user")
	}
	p.CreatedAt = nullStringPtr(createdAt)
	p.UpdatedAt = nullStringPtr(updatedAt)
	return &p, nil
}
