package epargne

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// GroupedResult is a consolidated result row with its simulation's
// category attached, the unit the comparison engine works on.
type GroupedResult struct {
	ID           int64  `json:"id"`
	SimulationID int64  `json:"simulation_id"`
	Year         int    `json:"year"`
	Amount       Amount `json:"amount"`
	AccountName  string `json:"account_name"`
	Category     string `json:"category"`
}

// GroupBy selects the grouping key for chart aggregation.
type GroupBy string

const (
	GroupByCategory GroupBy = "category"
	GroupByAccount  GroupBy = "account"
)

// ChartDataset is one named series of a chart payload. Data entries are
// nil where a year has no value, so gaps render as gaps.
type ChartDataset struct {
	Label           string     `json:"label"`
	Data            []*float64 `json:"data"`
	BackgroundColor string     `json:"backgroundColor"`
	BorderColor     string     `json:"borderColor"`
	BorderWidth     int        `json:"borderWidth"`
	BorderDash      []int      `json:"borderDash,omitempty"`
	Fill            bool       `json:"fill,omitempty"`
}

// ChartData is the chart-ready payload: year labels plus named series.
type ChartData struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

// chartPalette is assigned cyclically; the colors carry no meaning.
var chartPalette = []struct{ background, border string }{
	{"rgba(54, 162, 235, 0.2)", "rgb(54, 162, 235)"},
	{"rgba(255, 99, 132, 0.2)", "rgb(255, 99, 132)"},
	{"rgba(255, 206, 86, 0.2)", "rgb(255, 206, 86)"},
	{"rgba(75, 192, 192, 0.2)", "rgb(75, 192, 192)"},
	{"rgba(153, 102, 255, 0.2)", "rgb(153, 102, 255)"},
	{"rgba(255, 159, 64, 0.2)", "rgb(255, 159, 64)"},
}

// ResultsChart merges projected result rows into chart series over the
// deduplicated union of years.
//
// Non-cumulative: one dataset per distinct group value, each year being
// the sum of that group's rows. Cumulative: a single total series where
// each simulation first carries its last non-zero value forward into
// years it has no row for (a balance persists, it does not drop to
// zero), then all simulations are summed per year.
func ResultsChart(results []GroupedResult, groupBy GroupBy, cumulative bool) ChartData {
	if len(results) == 0 {
		return ChartData{Labels: []string{}, Datasets: []ChartDataset{}}
	}

	years := collectYears(results)
	labels := yearLabels(years)

	if cumulative {
		return ChartData{Labels: labels, Datasets: cumulativeDatasets(results, years, groupBy)}
	}
	return ChartData{Labels: labels, Datasets: groupedDatasets(results, years, groupBy)}
}

func groupedDatasets(results []GroupedResult, years []int, groupBy GroupBy) []ChartDataset {
	sums := make(map[string]map[int]decimal.Decimal)
	for _, r := range results {
		key := groupKey(r, groupBy)
		if sums[key] == nil {
			sums[key] = make(map[int]decimal.Decimal)
		}
		sums[key][r.Year] = sums[key][r.Year].Add(r.Amount.Decimal)
	}

	groups := make([]string, 0, len(sums))
	for key := range sums {
		groups = append(groups, key)
	}
	sort.Strings(groups)

	datasets := make([]ChartDataset, 0, len(groups))
	for i, key := range groups {
		color := chartPalette[i%len(chartPalette)]
		data := make([]*float64, len(years))
		for j, year := range years {
			f, _ := sums[key][year].Float64()
			data[j] = &f
		}
		datasets = append(datasets, ChartDataset{
			Label:           key,
			Data:            data,
			BackgroundColor: color.background,
			BorderColor:     color.border,
			BorderWidth:     2,
		})
	}
	return datasets
}

func cumulativeDatasets(results []GroupedResult, years []int, groupBy GroupBy) []ChartDataset {
	perSimulation := make(map[int64]map[int]decimal.Decimal)
	for _, r := range results {
		if perSimulation[r.SimulationID] == nil {
			perSimulation[r.SimulationID] = make(map[int]decimal.Decimal)
		}
		perSimulation[r.SimulationID][r.Year] = r.Amount.Decimal
	}

	totals := make(map[int]decimal.Decimal, len(years))
	for _, values := range perSimulation {
		running := decimal.Zero
		for _, year := range years {
			if v, ok := values[year]; ok && v.IsPositive() {
				running = v
			}
			totals[year] = totals[year].Add(running)
		}
	}

	label := "Total toutes catégories"
	if groupBy == GroupByAccount {
		label = "Total tous comptes"
	}
	data := make([]*float64, len(years))
	for i, year := range years {
		f, _ := totals[year].Float64()
		data[i] = &f
	}
	color := chartPalette[0]
	return []ChartDataset{{
		Label:           label,
		Data:            data,
		BackgroundColor: color.background,
		BorderColor:     color.border,
		BorderWidth:     2,
		Fill:            true,
	}}
}

func groupKey(r GroupedResult, groupBy GroupBy) string {
	if groupBy == GroupByAccount {
		return r.AccountName
	}
	return r.Category
}

func collectYears(results []GroupedResult) []int {
	seen := make(map[int]bool)
	var years []int
	for _, r := range results {
		if !seen[r.Year] {
			seen[r.Year] = true
			years = append(years, r.Year)
		}
	}
	sort.Ints(years)
	return years
}

func yearLabels(years []int) []string {
	labels := make([]string, len(years))
	for i, y := range years {
		labels[i] = strconv.Itoa(y)
	}
	return labels
}

// CompareRealDataChart builds the per-simulation chart of projected vs
// observed (and optionally inflation-adjusted) values over the union of
// both series' years. Missing points stay nil.
func (c *Core) CompareRealDataChart(userID string, simulationID int64, withInflation bool) (*ChartData, error) {
	projected, err := c.ListResults(userID, simulationID)
	if err != nil {
		return nil, err
	}
	observed, err := c.ListRealData(userID, simulationID)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool)
	var years []int
	for _, r := range projected {
		if !seen[r.Year] {
			seen[r.Year] = true
			years = append(years, r.Year)
		}
	}
	for _, r := range observed {
		if !seen[r.Year] {
			seen[r.Year] = true
			years = append(years, r.Year)
		}
	}
	sort.Ints(years)

	projectedByYear := make(map[int]Amount, len(projected))
	for _, r := range projected {
		projectedByYear[r.Year] = r.Amount
	}
	observedByYear := make(map[int]RealAccountData, len(observed))
	for _, r := range observed {
		observedByYear[r.Year] = r
	}

	simData := make([]*float64, len(years))
	nominalData := make([]*float64, len(years))
	adjustedData := make([]*float64, len(years))
	for i, year := range years {
		if v, ok := projectedByYear[year]; ok {
			f, _ := v.Float64()
			simData[i] = &f
		}
		if e, ok := observedByYear[year]; ok {
			nf, _ := e.NominalAmount.Float64()
			nominalData[i] = &nf
			af, _ := e.AdjustedAmount.Float64()
			adjustedData[i] = &af
		}
	}

	chart := &ChartData{
		Labels: yearLabels(years),
		Datasets: []ChartDataset{
			{
				Label:           "Simulation",
				Data:            simData,
				BorderColor:     "rgb(54, 162, 235)",
				BackgroundColor: "rgba(54, 162, 235, 0.2)",
				BorderWidth:     2,
			},
			{
				Label:           "Données réelles nominales",
				Data:            nominalData,
				BorderColor:     "rgb(255, 99, 132)",
				BackgroundColor: "rgba(255, 99, 132, 0.2)",
				BorderWidth:     2,
			},
		},
	}
	if withInflation {
		chart.Datasets = append(chart.Datasets, ChartDataset{
			Label:           "Données réelles (ajustées inflation)",
			Data:            adjustedData,
			BorderColor:     "rgb(75, 192, 192)",
			BackgroundColor: "rgba(75, 192, 192, 0.2)",
			BorderWidth:     2,
			BorderDash:      []int{5, 5},
		})
	}
	return chart, nil
}

// YearComparison is one year of projected-versus-observed totals.
type YearComparison struct {
	Year                      int    `json:"year"`
	HasRealData               bool   `json:"has_real_data"`
	Simulated                 Amount `json:"simulated"`
	Real                      Amount `json:"real"`
	RealAdjusted              Amount `json:"real_adjusted"`
	InflationRate             Amount `json:"inflation_rate"`
	Difference                Amount `json:"difference"`
	DifferenceAdjusted        Amount `json:"difference_adjusted"`
	DifferencePercent         Amount `json:"difference_percent"`
	DifferencePercentAdjusted Amount `json:"difference_percent_adjusted"`
}

// AccountComparison is the per-account breakdown of a summary.
type AccountComparison struct {
	AccountName string           `json:"account_name"`
	Category    string           `json:"category"`
	Years       []YearComparison `json:"years"`
}

// Summary is the cross-account comparison of projections against
// observed balances.
type Summary struct {
	Years    []int               `json:"years"`
	Totals   []YearComparison    `json:"totals"`
	Accounts []AccountComparison `json:"accounts"`
	Chart    ChartData           `json:"chart"`
}

// SummaryComparison merges all of the user's projected and observed
// series into per-year totals, difference/percentage tables and a totals
// chart. The inflation rate per year is the nominal-amount-weighted
// average of the captured rates.
func (c *Core) SummaryComparison(userID string, withInflation bool) (*Summary, error) {
	simulations, err := c.ListSimulations(userID)
	if err != nil {
		return nil, err
	}
	results, err := c.ListAllResults(userID)
	if err != nil {
		return nil, err
	}
	observed, err := c.listAllRealData(userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool)
	var years []int
	for _, r := range results {
		if !seen[r.Year] {
			seen[r.Year] = true
			years = append(years, r.Year)
		}
	}
	for _, e := range observed {
		if !seen[e.Year] {
			seen[e.Year] = true
			years = append(years, e.Year)
		}
	}
	sort.Ints(years)

	summary := &Summary{Years: years}
	if len(years) == 0 {
		summary.Totals = []YearComparison{}
		summary.Accounts = []AccountComparison{}
		summary.Chart = ChartData{Labels: []string{}, Datasets: []ChartDataset{}}
		return summary, nil
	}

	for _, year := range years {
		summary.Totals = append(summary.Totals, totalsForYear(year, results, observed))
	}

	for _, sim := range simulations {
		account := AccountComparison{AccountName: sim.AccountName, Category: sim.Category}
		for _, year := range years {
			account.Years = append(account.Years, accountYear(sim.ID, year, results, observed))
		}
		summary.Accounts = append(summary.Accounts, account)
	}

	summary.Chart = summaryChart(years, summary.Totals, withInflation)
	return summary, nil
}

func totalsForYear(year int, results []GroupedResult, observed []RealAccountData) YearComparison {
	cmp := YearComparison{Year: year}
	simulated := decimal.Zero
	for _, r := range results {
		if r.Year == year {
			simulated = simulated.Add(r.Amount.Decimal)
		}
	}

	real := decimal.Zero
	adjusted := decimal.Zero
	weightedRate := decimal.Zero
	for _, e := range observed {
		if e.Year != year {
			continue
		}
		cmp.HasRealData = true
		real = real.Add(e.NominalAmount.Decimal)
		adjusted = adjusted.Add(e.AdjustedAmount.Decimal)
		weightedRate = weightedRate.Add(e.InflationRate.Mul(e.NominalAmount.Decimal))
	}

	cmp.Simulated = Amount{simulated}
	cmp.Real = Amount{real}
	cmp.RealAdjusted = Amount{adjusted}
	if !real.IsZero() {
		cmp.InflationRate = Amount{weightedRate.DivRound(real, 6)}
	}
	cmp.Difference = Amount{real.Sub(simulated)}
	cmp.DifferenceAdjusted = Amount{adjusted.Sub(simulated)}
	if !simulated.IsZero() {
		hundred := decimal.NewFromInt(100)
		cmp.DifferencePercent = Amount{real.Sub(simulated).Mul(hundred).DivRound(simulated, 6)}
		cmp.DifferencePercentAdjusted = Amount{adjusted.Sub(simulated).Mul(hundred).DivRound(simulated, 6)}
	}
	return cmp
}

func accountYear(simulationID int64, year int, results []GroupedResult, observed []RealAccountData) YearComparison {
	cmp := YearComparison{Year: year}
	for _, r := range results {
		if r.SimulationID == simulationID && r.Year == year {
			cmp.Simulated = r.Amount
			break
		}
	}
	for _, e := range observed {
		if e.SimulationID != simulationID || e.Year != year {
			continue
		}
		cmp.HasRealData = true
		cmp.Real = e.NominalAmount
		cmp.RealAdjusted = e.AdjustedAmount
		cmp.InflationRate = e.InflationRate
		cmp.Difference = Amount{e.NominalAmount.Sub(cmp.Simulated.Decimal)}
		cmp.DifferenceAdjusted = Amount{e.AdjustedAmount.Sub(cmp.Simulated.Decimal)}
		if !cmp.Simulated.IsZero() {
			hundred := decimal.NewFromInt(100)
			cmp.DifferencePercent = Amount{cmp.Difference.Mul(hundred).DivRound(cmp.Simulated.Decimal, 6)}
			cmp.DifferencePercentAdjusted = Amount{cmp.DifferenceAdjusted.Mul(hundred).DivRound(cmp.Simulated.Decimal, 6)}
		}
		break
	}
	return cmp
}

func summaryChart(years []int, totals []YearComparison, withInflation bool) ChartData {
	simulated := make([]*float64, len(totals))
	real := make([]*float64, len(totals))
	adjusted := make([]*float64, len(totals))
	for i, t := range totals {
		sf, _ := t.Simulated.Float64()
		simulated[i] = &sf
		rf, _ := t.Real.Float64()
		real[i] = &rf
		af, _ := t.RealAdjusted.Float64()
		adjusted[i] = &af
	}

	chart := ChartData{
		Labels: yearLabels(years),
		Datasets: []ChartDataset{
			{
				Label:           "Total Simulé",
				Data:            simulated,
				BorderColor:     "rgb(54, 162, 235)",
				BackgroundColor: "rgba(54, 162, 235, 0.2)",
				BorderWidth:     2,
			},
			{
				Label:           "Total Réel Nominal",
				Data:            real,
				BorderColor:     "rgb(255, 99, 132)",
				BackgroundColor: "rgba(255, 99, 132, 0.2)",
				BorderWidth:     2,
			},
		},
	}
	if withInflation {
		chart.Datasets = append(chart.Datasets, ChartDataset{
			Label:           "Total Réel (Ajusté Inflation)",
			Data:            adjusted,
			BorderColor:     "rgb(75, 192, 192)",
			BackgroundColor: "rgba(75, 192, 192, 0.2)",
			BorderWidth:     2,
			BorderDash:      []int{5, 5},
		})
	}
	return chart
}

func (c *Core) listAllRealData(userID string) ([]RealAccountData, error) {
	rows, err := c.db.Query(`
		SELECT r.id, r.simulation_id, r.year, r.nominal_amount, r.inflation_rate, r.adjusted_amount
		FROM real_account_data r
		JOIN simulations s ON s.id = r.simulation_id
		WHERE s.user_id = ?
		ORDER BY r.simulation_id, r.year`, userID)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "list real data", err)
	}
	defer rows.Close()

	var entries []RealAccountData
	for rows.Next() {
		var e RealAccountData
		if err := rows.Scan(&e.ID, &e.SimulationID, &e.Year, &e.NominalAmount,
			&e.InflationRate, &e.AdjustedAmount); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan real data", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
