package epargne

import "testing"

func TestUpsertInflationRate(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	assertNoError(t, core.UpsertInflationRate(2023, NewAmount(4.9), "INSEE"), "insert")
	assertNoError(t, core.UpsertInflationRate(2024, NewAmount(2.5), ""), "insert second")
	// Same year replaces, no duplicate row.
	assertNoError(t, core.UpsertInflationRate(2023, NewAmount(5.2), "révisé"), "upsert")

	rates, err := core.ListInflationRates()
	assertNoError(t, err, "ListInflationRates")
	if len(rates) != 2 {
		t.Fatalf("expected 2 rates, got %d", len(rates))
	}
	// Most recent year first.
	if rates[0].Year != 2024 || rates[1].Year != 2023 {
		t.Fatalf("expected descending year order, got %d, %d", rates[0].Year, rates[1].Year)
	}
	assertAmount(t, rates[1].Rate, 5.2, "replaced rate")
	if rates[1].Comment != "révisé" {
		t.Errorf("comment: got %q", rates[1].Comment)
	}
}

func TestUpsertInflationRateValidation(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	assertErrorCode(t, core.UpsertInflationRate(1899, NewAmount(2), ""), ErrCodeInvalidParameters, "year too early")
	assertErrorCode(t, core.UpsertInflationRate(2101, NewAmount(2), ""), ErrCodeInvalidParameters, "year too late")
	assertErrorCode(t, core.UpsertInflationRate(2024, NewAmount(101), ""), ErrCodeInvalidParameters, "rate above 100")
	assertErrorCode(t, core.UpsertInflationRate(2024, NewAmount(-101), ""), ErrCodeInvalidParameters, "rate below -100")
	// Exactly -100 would make the adjustment divisor zero.
	assertErrorCode(t, core.UpsertInflationRate(2024, NewAmount(-100), ""), ErrCodeInvalidParameters, "rate of exactly -100")
	assertNoError(t, core.UpsertInflationRate(2024, NewAmount(100), ""), "rate of exactly 100")
}

func TestDeflationRateNearFloorAdjusts(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	assertNoError(t, core.UpsertInflationRate(currentYear(), NewAmount(-99.9), ""), "steep deflation")
	sim := testSimulation(t, core, "alice", "Livret A", 1000, 3, 2, 0)
	entry, err := core.UpsertRealData("alice", sim.ID, currentYear(), NewAmount(1))
	assertNoError(t, err, "UpsertRealData under steep deflation")
	// adjusted = 1 / (1 - 0.999) = 1000
	assertAmount(t, entry.AdjustedAmount, 1000, "adjusted amount")
}

func TestDeleteInflationRate(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	assertNoError(t, core.UpsertInflationRate(2023, NewAmount(4.9), ""), "insert")
	assertNoError(t, core.DeleteInflationRate(2023), "delete")
	assertErrorCode(t, core.DeleteInflationRate(2023), ErrCodeNotFound, "delete missing")
}
