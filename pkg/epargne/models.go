package epargne

// Currencies lists the supported simulation currencies. The projection
// module is single-currency today; membership is still validated so CSV
// imports fail loudly instead of storing junk.
var Currencies = []string{"EUR"}

// DefaultCurrency is applied when a request leaves the currency empty.
const DefaultCurrency = "EUR"

// DefaultCategories seeds the category table on first start.
var DefaultCategories = []string{
	"Courant",
	"Epargne Financière",
	"Assurance Vie",
	"Epargne Entreprise",
	"Immobilier",
}

// TransactionTypes lists the supported portfolio transaction types.
var TransactionTypes = []string{"BUY", "SELL"}

// AssetTypes lists the supported instrument classes.
var AssetTypes = []string{"STOCK", "ETF"}

// Category is an account class referenced by simulations.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Simulation is a user-owned compound-growth projection definition.
type Simulation struct {
	ID                 int64   `json:"id"`
	UserID             string  `json:"user_id"`
	CategoryID         int64   `json:"category_id"`
	Category           string  `json:"category"`
	AccountName        string  `json:"account_name"`
	InitialAmount      Amount  `json:"initial_amount"`
	Currency           string  `json:"currency"`
	RatePercent        float64 `json:"rate_percent"`
	PeriodYears        int     `json:"period_years"`
	StartYear          int     `json:"start_year"`
	AnnualContribution Amount  `json:"annual_contribution"`
	CreatedAt          *string `json:"created_at"`
	UpdatedAt          *string `json:"updated_at"`
}

// SimulationRequest defines inputs to create or update a simulation.
type SimulationRequest struct {
	Category           string
	AccountName        string
	InitialAmount      Amount
	Currency           string
	RatePercent        float64
	PeriodYears        int
	StartYear          int
	AnnualContribution Amount
}

// ConsolidatedResult is one derived year/amount point of a projection.
// Rows are a cache of the owning simulation's parameters, regenerated
// wholesale on every change and never edited directly.
type ConsolidatedResult struct {
	ID           int64  `json:"id"`
	SimulationID int64  `json:"simulation_id"`
	Year         int    `json:"year"`
	Amount       Amount `json:"amount"`
	AccountName  string `json:"account_name"`
}

// RealAccountData is an observed balance for one (simulation, year),
// with the inflation rate captured at save time and the derived
// inflation-adjusted amount.
type RealAccountData struct {
	ID             int64   `json:"id"`
	SimulationID   int64   `json:"simulation_id"`
	Year           int     `json:"year"`
	NominalAmount  Amount  `json:"nominal_amount"`
	InflationRate  Amount  `json:"inflation_rate"`
	AdjustedAmount Amount  `json:"adjusted_amount"`
	UpdatedAt      *string `json:"updated_at"`
}

// AnnualInflationRate is a globally maintained year → percentage row.
type AnnualInflationRate struct {
	ID        int64   `json:"id"`
	Year      int     `json:"year"`
	Rate      Amount  `json:"rate"`
	Comment   string  `json:"comment"`
	UpdatedAt *string `json:"updated_at"`
}

// Stock is a tradable instrument with its latest market snapshot.
type Stock struct {
	ID                 int64   `json:"id"`
	Symbol             string  `json:"symbol"`
	Name               string  `json:"name"`
	AssetType          string  `json:"asset_type"`
	Sector             *string `json:"sector"`
	Currency           string  `json:"currency"`
	CurrentPrice       *Amount `json:"current_price"`
	PriceChange        *Amount `json:"price_change"`
	PriceChangePercent *Amount `json:"price_change_percent"`
	Volume             *int64  `json:"volume"`
	LastUpdate         *string `json:"last_update"`
}

// Portfolio is a user-owned named container for positions and
// transactions.
type Portfolio struct {
	ID          int64   `json:"id"`
	UserID      string  `json:"user_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	CreatedAt   *string `json:"created_at"`
	UpdatedAt   *string `json:"updated_at"`
}

// Position is the running reduction of a (portfolio, stock) pair's
// transaction history: quantity held and weighted-average cost.
type Position struct {
	ID           int64   `json:"id"`
	PortfolioID  int64   `json:"portfolio_id"`
	StockID      int64   `json:"stock_id"`
	Symbol       string  `json:"symbol"`
	StockName    string  `json:"stock_name"`
	AssetType    string  `json:"asset_type"`
	Quantity     Amount  `json:"quantity"`
	AveragePrice Amount  `json:"average_price"`
	OpenedAt     string  `json:"opened_at"`
	CurrentPrice *Amount `json:"current_price"`

	// Derived valuation; CurrentValue and GainLoss are nil when the
	// stock has no known price.
	CostBasis       Amount  `json:"cost_basis"`
	CurrentValue    *Amount `json:"current_value"`
	GainLoss        *Amount `json:"gain_loss"`
	GainLossPercent *Amount `json:"gain_loss_percent"`
}

// Transaction is an immutable buy/sell event applied to a position.
type Transaction struct {
	ID          int64   `json:"id"`
	PortfolioID int64   `json:"portfolio_id"`
	StockID     int64   `json:"stock_id"`
	Symbol      string  `json:"symbol"`
	Type        string  `json:"type"`
	Quantity    Amount  `json:"quantity"`
	Price       Amount  `json:"price"`
	TradeDate   string  `json:"trade_date"`
	Fees        Amount  `json:"fees"`
	Notes       *string `json:"notes"`
	CreatedAt   *string `json:"created_at"`
}

// TransactionRequest defines inputs to record a transaction.
type TransactionRequest struct {
	Symbol    string
	Type      string
	Quantity  Amount
	Price     Amount
	TradeDate string
	Fees      Amount
	Notes     *string
}

// StockRequest defines inputs to register an instrument.
type StockRequest struct {
	Symbol    string
	Name      string
	AssetType string
	Sector    *string
	Currency  string
}

// PortfolioSummary is a portfolio row with aggregate valuation.
type PortfolioSummary struct {
	Portfolio
	PositionCount    int     `json:"position_count"`
	TotalCost        Amount  `json:"total_cost"`
	TotalMarketValue *Amount `json:"total_market_value"`
}

// PortfolioDetail is a portfolio with its positions and transactions.
type PortfolioDetail struct {
	Portfolio        Portfolio     `json:"portfolio"`
	Positions        []Position    `json:"positions"`
	Transactions     []Transaction `json:"transactions"`
	TotalCost        Amount        `json:"total_cost"`
	TotalMarketValue *Amount       `json:"total_market_value"`
	TotalGainLoss    *Amount       `json:"total_gain_loss"`
}

// OperationLog is an append-only audit record.
type OperationLog struct {
	ID        int64   `json:"id"`
	Operation string  `json:"operation"`
	Entity    *string `json:"entity"`
	EntityID  *int64  `json:"entity_id"`
	Detail    *string `json:"detail"`
	CreatedAt *string `json:"created_at"`
}

// YearAmount is one point of a projection series.
type YearAmount struct {
	Year   int    `json:"year"`
	Amount Amount `json:"amount"`
}
