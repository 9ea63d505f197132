package api

import "epargne/pkg/epargne"

type categoryPayload struct {
	Name string `json:"name"`
}

type simulationPayload struct {
	Category           string         `json:"category"`
	AccountName        string         `json:"account_name"`
	InitialAmount      epargne.Amount `json:"initial_amount"`
	Currency           string         `json:"currency"`
	RatePercent        float64        `json:"rate_percent"`
	PeriodYears        int            `json:"period_years"`
	StartYear          int            `json:"start_year"`
	AnnualContribution epargne.Amount `json:"annual_contribution"`
}

func (p simulationPayload) toRequest() epargne.SimulationRequest {
	return epargne.SimulationRequest{
		Category:           p.Category,
		AccountName:        p.AccountName,
		InitialAmount:      p.InitialAmount,
		Currency:           p.Currency,
		RatePercent:        p.RatePercent,
		PeriodYears:        p.PeriodYears,
		StartYear:          p.StartYear,
		AnnualContribution: p.AnnualContribution,
	}
}

type inflationRatePayload struct {
	Year    int            `json:"year"`
	Rate    epargne.Amount `json:"rate"`
	Comment string         `json:"comment"`
}

type realDataPayload struct {
	Year          int            `json:"year"`
	NominalAmount epargne.Amount `json:"nominal_amount"`
}

type stockPayload struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	AssetType string  `json:"asset_type"`
	Sector    *string `json:"sector"`
	Currency  string  `json:"currency"`
}

type portfolioPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type transactionPayload struct {
	Symbol    string         `json:"symbol"`
	Type      string         `json:"type"`
	Quantity  epargne.Amount `json:"quantity"`
	Price     epargne.Amount `json:"price"`
	TradeDate string         `json:"trade_date"`
	Fees      epargne.Amount `json:"fees"`
	Notes     *string        `json:"notes"`
}

type importResponse struct {
	Imported int      `json:"imported"`
	Warnings []string `json:"warnings,omitempty"`
}
