package epargne

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// AddStock registers a tradable instrument.
func (c *Core) AddStock(req StockRequest) (*Stock, error) {
	symbol := normalizeSymbol(req.Symbol)
	if symbol == "" {
		return nil, NewError(ErrCodeInvalidParameters, "symbol is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, NewError(ErrCodeInvalidParameters, "name is required")
	}
	assetType := normalizeAssetType(req.AssetType)
	if !isValidAssetType(assetType) {
		return nil, Errorf(ErrCodeInvalidParameters, "invalid asset type: %s", req.AssetType)
	}

	var existing int64
	err := c.db.QueryRow("SELECT id FROM stocks WHERE symbol = ?", symbol).Scan(&existing)
	if err == nil {
		return nil, Errorf(ErrCodeDuplicate, "stock %s already exists", symbol)
	}
	if err != sql.ErrNoRows {
		return nil, WrapError(ErrCodeDatabase, "lookup stock", err)
	}

	currency := req.Currency
	if strings.TrimSpace(currency) == "" {
		currency = DefaultCurrency
	}
	result, err := c.db.Exec(`
		INSERT INTO stocks (symbol, name, asset_type, sector, currency)
		VALUES (?, ?, ?, ?, ?)`,
		symbol, strings.TrimSpace(req.Name), assetType, req.Sector, normalizeCurrency(currency))
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "insert stock", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "stock id", err)
	}
	return c.GetStock(id)
}

// GetStock returns one instrument.
func (c *Core) GetStock(id int64) (*Stock, error) {
	row := c.db.QueryRow(stockSelect+" WHERE id = ?", id)
	stock, err := scanStock(row)
	if err == sql.ErrNoRows {
		return nil, Errorf(ErrCodeNotFound, "stock %d not found", id)
	}
	return stock, err
}

// GetStockBySymbol returns one instrument by its unique symbol.
func (c *Core) GetStockBySymbol(symbol string) (*Stock, error) {
	row := c.db.QueryRow(stockSelect+" WHERE symbol = ?", normalizeSymbol(symbol))
	stock, err := scanStock(row)
	if err == sql.ErrNoRows {
		return nil, Errorf(ErrCodeNotFound, "stock %s not found", symbol)
	}
	return stock, err
}

// ListStocks returns all instruments ordered by symbol.
func (c *Core) ListStocks() ([]Stock, error) {
	rows, err := c.db.Query(stockSelect + " ORDER BY symbol")
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "list stocks", err)
	}
	defer rows.Close()

	var stocks []Stock
	for rows.Next() {
		stock, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		stocks = append(stocks, *stock)
	}
	return stocks, rows.Err()
}

// DeleteStock removes an instrument. Refused while any position or
// transaction still references it.
func (c *Core) DeleteStock(id int64) error {
	var held int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM positions WHERE stock_id = ?", id).Scan(&held); err != nil {
		return WrapError(ErrCodeDatabase, "count stock references", err)
	}
	if held > 0 {
		return Errorf(ErrCodeInvalidParameters, "stock is held in %d position(s)", held)
	}
	var traded int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM transactions WHERE stock_id = ?", id).Scan(&traded); err != nil {
		return WrapError(ErrCodeDatabase, "count stock references", err)
	}
	if traded > 0 {
		return Errorf(ErrCodeInvalidParameters, "stock is referenced by %d transaction(s)", traded)
	}
	result, err := c.db.Exec("DELETE FROM stocks WHERE id = ?", id)
	if err != nil {
		return WrapError(ErrCodeDatabase, "delete stock", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return Errorf(ErrCodeNotFound, "stock %d not found", id)
	}
	return nil
}

// stockNeedsRefresh reports whether the snapshot is older than the
// configured maximum age (or missing entirely).
func (c *Core) stockNeedsRefresh(stock *Stock, now time.Time) bool {
	if stock.LastUpdate == nil {
		return true
	}
	last, err := time.Parse(time.RFC3339, *stock.LastUpdate)
	if err != nil {
		return true
	}
	return now.Sub(last) > c.quoteAge
}

// RefreshStock fetches and stores a fresh market snapshot for one
// instrument. Unless forced, a snapshot younger than the staleness
// window is kept as-is. On source failure the stale snapshot survives
// and the miss is recorded in the audit log; there is no synchronous
// retry.
func (c *Core) RefreshStock(ctx context.Context, id int64, force bool) (*Stock, error) {
	stock, err := c.GetStock(id)
	if err != nil {
		return nil, err
	}
	if !force && !c.stockNeedsRefresh(stock, time.Now()) {
		return stock, nil
	}

	quote, err := c.quotes.GetQuote(ctx, stock.Symbol)
	if err != nil {
		c.logger.Warn("quote refresh failed", "symbol", stock.Symbol, "err", err)
		c.logOperation("QUOTE_REFRESH_FAILED", "stock", &stock.ID, stringPtr(err.Error()))
		return stock, WrapError(ErrCodeInternal, fmt.Sprintf("refresh %s", stock.Symbol), err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := c.db.Exec(`
		UPDATE stocks SET
			current_price = ?, price_change = ?, price_change_percent = ?,
			volume = ?, last_update = ?
		WHERE id = ?`,
		quote.Price, quote.Change, quote.ChangePercent, quote.Volume, now, id,
	); err != nil {
		return nil, WrapError(ErrCodeDatabase, "store quote", err)
	}
	c.logOperation("QUOTE_REFRESH", "stock", &stock.ID, stringPtr(stock.Symbol))
	return c.GetStock(id)
}

// RefreshStaleStocks refreshes every instrument whose snapshot is older
// than the staleness window, skipping duplicate symbols within the run.
// Failures are counted, not fatal. Returns the updated count.
func (c *Core) RefreshStaleStocks(ctx context.Context) (int, error) {
	stocks, err := c.ListStocks()
	if err != nil {
		return 0, err
	}

	now := time.Now()
	updated := 0
	inFlight := make(map[string]bool)
	for i := range stocks {
		stock := &stocks[i]
		if inFlight[stock.Symbol] {
			continue
		}
		inFlight[stock.Symbol] = true
		if !c.stockNeedsRefresh(stock, now) {
			continue
		}
		if _, err := c.RefreshStock(ctx, stock.ID, false); err != nil {
			continue
		}
		updated++
	}
	c.logger.Info("stale quote refresh finished", "checked", len(stocks), "updated", updated)
	return updated, nil
}

const stockSelect = `
	SELECT id, symbol, name, asset_type, sector, currency,
		current_price, price_change, price_change_percent, volume, last_update
	FROM stocks`

func scanStock(row rowScanner) (*Stock, error) {
	var s Stock
	var sector, lastUpdate sql.NullString
	var price, change, changePercent any
	var volume sql.NullInt64
	err := row.Scan(&s.ID, &s.Symbol, &s.Name, &s.AssetType, &sector, &s.Currency,
		&price, &change, &changePercent, &volume, &lastUpdate)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "scan stock", err)
	}
	s.Sector = nullStringPtr(sector)
	s.LastUpdate = nullStringPtr(lastUpdate)
	s.Volume = nullInt64Ptr(volume)
	if s.CurrentPrice, err = scanNullAmount(price); err != nil {
		return nil, WrapError(ErrCodeDatabase, "scan price", err)
	}
	if s.PriceChange, err = scanNullAmount(change); err != nil {
		return nil, WrapError(ErrCodeDatabase, "scan price change", err)
	}
	if s.PriceChangePercent, err = scanNullAmount(changePercent); err != nil {
		return nil, WrapError(ErrCodeDatabase, "scan price change percent", err)
	}
	return &s, nil
}
