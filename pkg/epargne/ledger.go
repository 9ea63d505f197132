package epargne

import (
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// The ledger is the only writer of position state: applying a
// transaction on create and reversing it on delete, always in the same
// SQL transaction as the transaction-row mutation. A position must at
// any time equal the replay of its remaining transaction history.

// AddTransaction records a buy/sell event and applies it to the
// (portfolio, stock) position atomically.
//
// BUY folds the trade into the weighted-average cost; SELL reduces
// quantity only (average cost basis is perturbed exclusively by buys)
// and fails with INSUFFICIENT_QUANTITY when it would overdraw the
// position. A position that reaches zero quantity is removed.
func (c *Core) AddTransaction(userID string, portfolioID int64, req TransactionRequest) (*Transaction, error) {
	if _, err := c.ownedPortfolio(userID, portfolioID); err != nil {
		return nil, err
	}
	if !isValidTransactionType(req.Type) {
		return nil, Errorf(ErrCodeInvalidParameters, "invalid transaction type: %s", req.Type)
	}
	if !req.Quantity.IsPositive() {
		return nil, NewError(ErrCodeInvalidParameters, "quantity must be positive")
	}
	if req.Price.IsNegative() {
		return nil, NewError(ErrCodeInvalidParameters, "price must not be negative")
	}
	if req.Fees.IsNegative() {
		return nil, NewError(ErrCodeInvalidParameters, "fees must not be negative")
	}
	tradeDate := strings.TrimSpace(req.TradeDate)
	if tradeDate == "" {
		tradeDate = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", tradeDate); err != nil {
		return nil, Errorf(ErrCodeInvalidParameters, "invalid trade date: %s", req.TradeDate)
	}

	stock, err := c.GetStockBySymbol(req.Symbol)
	if err != nil {
		return nil, err
	}

	tx, err := c.db.Begin()
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "begin", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.Exec(`
		INSERT INTO transactions (portfolio_id, stock_id, type, quantity, price, trade_date, fees, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		portfolioID, stock.ID, req.Type, req.Quantity, req.Price, tradeDate, req.Fees, req.Notes)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "insert transaction", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "transaction id", err)
	}

	if req.Type == "BUY" {
		err = applyBuy(tx, portfolioID, stock.ID, req.Quantity, req.Price, tradeDate)
	} else {
		err = applySell(tx, portfolioID, stock.ID, req.Quantity)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, WrapError(ErrCodeDatabase, "commit", err)
	}
	return c.GetTransaction(userID, id)
}

// DeleteTransaction removes a recorded event and reverses its effect on
// the position in the same SQL transaction.
//
// Reversing a BUY backs out exactly that trade's weighted contribution
// and fails with NEGATIVE_QUANTITY when later sells already consumed the
// shares. Reversing a SELL restores quantity only: the pre-sale average
// price is not reconstructible, and this unwind-by-quantity model is the
// documented approximation, not an oversight.
func (c *Core) DeleteTransaction(userID string, id int64) error {
	txn, err := c.GetTransaction(userID, id)
	if err != nil {
		return err
	}

	tx, err := c.db.Begin()
	if err != nil {
		return WrapError(ErrCodeDatabase, "begin", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if txn.Type == "BUY" {
		err = reverseBuy(tx, txn.PortfolioID, txn.StockID, txn.Quantity, txn.Price)
	} else {
		err = reverseSell(tx, txn.PortfolioID, txn.StockID, txn.Quantity)
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec("DELETE FROM transactions WHERE id = ?", id); err != nil {
		return WrapError(ErrCodeDatabase, "delete transaction", err)
	}

	if err := tx.Commit(); err != nil {
		return WrapError(ErrCodeDatabase, "commit", err)
	}
	c.logOperation("TRANSACTION_DELETE", "transaction", &id,
		stringPtr(txn.Type+" "+txn.Symbol))
	return nil
}

func applyBuy(tx *sql.Tx, portfolioID, stockID int64, quantity, price Amount, tradeDate string) error {
	pos, err := positionForPair(tx, portfolioID, stockID)
	if err != nil {
		return err
	}
	if pos == nil {
		if _, err := tx.Exec(`
			INSERT INTO positions (portfolio_id, stock_id, quantity, average_price, opened_at)
			VALUES (?, ?, ?, ?, ?)`,
			portfolioID, stockID, quantity, price, tradeDate); err != nil {
			return WrapError(ErrCodeDatabase, "create position", err)
		}
		return nil
	}

	// new_avg = (old_qty*old_avg + q*p) / (old_qty+q)
	newQuantity := pos.Quantity.Add(quantity.Decimal)
	totalCost := pos.Quantity.Mul(pos.AveragePrice.Decimal).Add(quantity.Mul(price.Decimal))
	newAverage := totalCost.DivRound(newQuantity, 6)
	return storePosition(tx, pos.ID, Amount{newQuantity}, Amount{newAverage})
}

func applySell(tx *sql.Tx, portfolioID, stockID int64, quantity Amount) error {
	pos, err := positionForPair(tx, portfolioID, stockID)
	if err != nil {
		return err
	}
	if pos == nil || quantity.GreaterThan(pos.Quantity.Decimal) {
		return NewError(ErrCodeInsufficientQuantity, "sell quantity exceeds held position")
	}
	remaining := pos.Quantity.Sub(quantity.Decimal)
	if remaining.IsZero() {
		return removePosition(tx, pos.ID)
	}
	// Average price is untouched by sells.
	return storePosition(tx, pos.ID, Amount{remaining}, pos.AveragePrice)
}

func reverseBuy(tx *sql.Tx, portfolioID, stockID int64, quantity, price Amount) error {
	pos, err := positionForPair(tx, portfolioID, stockID)
	if err != nil {
		return err
	}
	if pos == nil {
		return NewError(ErrCodeNotFound, "no position for this transaction")
	}
	remaining := pos.Quantity.Sub(quantity.Decimal)
	if remaining.IsNegative() {
		return NewError(ErrCodeNegativeQuantity, "removing this purchase would make the position negative")
	}
	if remaining.IsZero() {
		return removePosition(tx, pos.ID)
	}
	// new_avg = (old_qty*old_avg - q*p) / (old_qty-q)
	totalCost := pos.Quantity.Mul(pos.AveragePrice.Decimal).Sub(quantity.Mul(price.Decimal))
	newAverage := totalCost.DivRound(remaining, 6)
	return storePosition(tx, pos.ID, Amount{remaining}, Amount{newAverage})
}

func reverseSell(tx *sql.Tx, portfolioID, stockID int64, quantity Amount) error {
	pos, err := positionForPair(tx, portfolioID, stockID)
	if err != nil {
		return err
	}
	if pos == nil {
		// The sell closed the position. Its pre-sale average is gone,
		// so reopening would invent an average price; refuse instead.
		return NewError(ErrCodeNotFound, "no position for this transaction")
	}
	return storePosition(tx, pos.ID, Amount{pos.Quantity.Add(quantity.Decimal)}, pos.AveragePrice)
}

type ledgerPosition struct {
	ID           int64
	Quantity     Amount
	AveragePrice Amount
}

func positionForPair(tx *sql.Tx, portfolioID, stockID int64) (*ledgerPosition, error) {
	var pos ledgerPosition
	err := tx.QueryRow(`
		SELECT id, quantity, average_price FROM positions
		WHERE portfolio_id = ? AND stock_id = ?`,
		portfolioID, stockID).Scan(&pos.ID, &pos.Quantity, &pos.AveragePrice)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "load position", err)
	}
	return &pos, nil
}

func storePosition(tx *sql.Tx, id int64, quantity, averagePrice Amount) error {
	if _, err := tx.Exec(
		"UPDATE positions SET quantity = ?, average_price = ? WHERE id = ?",
		quantity, averagePrice, id); err != nil {
		return WrapError(ErrCodeDatabase, "update position", err)
	}
	return nil
}

func removePosition(tx *sql.Tx, id int64) error {
	if _, err := tx.Exec("DELETE FROM positions WHERE id = ?", id); err != nil {
		return WrapError(ErrCodeDatabase, "remove position", err)
	}
	return nil
}

// GetTransaction returns one transaction after an ownership check on its
// portfolio.
func (c *Core) GetTransaction(userID string, id int64) (*Transaction, error) {
	row := c.db.QueryRow(`
		SELECT t.id, t.portfolio_id, t.stock_id, s.symbol, t.type, t.quantity,
			t.price, t.trade_date, t.fees, t.notes, t.created_at
		FROM transactions t JOIN stocks s ON s.id = t.stock_id
		WHERE t.id = ?`, id)
	txn, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, Errorf(ErrCodeNotFound, "transaction %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	if _, err := c.ownedPortfolio(userID, txn.PortfolioID); err != nil {
		return nil, err
	}
	return txn, nil
}

// ListTransactions returns a portfolio's transactions, newest trade
// first.
func (c *Core) ListTransactions(userID string, portfolioID int64) ([]Transaction, error) {
	if _, err := c.ownedPortfolio(userID, portfolioID); err != nil {
		return nil, err
	}
	rows, err := c.db.Query(`
		SELECT t.id, t.portfolio_id, t.stock_id, s.symbol, t.type, t.quantity,
			t.price, t.trade_date, t.fees, t.notes, t.created_at
		FROM transactions t JOIN stocks s ON s.id = t.stock_id
		WHERE t.portfolio_id = ?
		ORDER BY t.trade_date DESC, t.id DESC`, portfolioID)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "list transactions", err)
	}
	defer rows.Close()

	var txns []Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

func scanTransaction(row rowScanner) (*Transaction, error) {
	var t Transaction
	var notes, createdAt sql.NullString
	err := row.Scan(&t.ID, &t.PortfolioID, &t.StockID, &t.Symbol, &t.Type,
		&t.Quantity, &t.Price, &t.TradeDate, &t.Fees, &notes, &createdAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "scan transaction", err)
	}
	t.Notes = nullStringPtr(notes)
	t.CreatedAt = nullStringPtr(createdAt)
	return &t, nil
}

// positionValuation fills the derived read-only fields of a position
// from the stock's latest price. CurrentValue and GainLoss stay nil when
// no price is known; the percent is zero at zero cost basis.
func positionValuation(pos *Position) {
	pos.CostBasis = Amount{pos.Quantity.Mul(pos.AveragePrice.Decimal)}
	if pos.CurrentPrice == nil {
		return
	}
	value := Amount{pos.Quantity.Mul(pos.CurrentPrice.Decimal)}
	pos.CurrentValue = &value
	gain := Amount{value.Sub(pos.CostBasis.Decimal)}
	pos.GainLoss = &gain
	if pos.CostBasis.IsZero() {
		pos.GainLossPercent = &Amount{decimal.Zero}
		return
	}
	percent := Amount{gain.Mul(decimal.NewFromInt(100)).DivRound(pos.CostBasis.Decimal, 6)}
	pos.GainLossPercent = &percent
}
