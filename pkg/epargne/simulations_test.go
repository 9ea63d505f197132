package epargne

import "testing"

func TestCreateSimulationGeneratesResults(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	sim := testSimulation(t, core, "alice", "Livret A", 10000, 5, 3, 1000)
	if sim.Category != DefaultCategories[0] {
		t.Errorf("category: got %q", sim.Category)
	}
	if sim.Currency != DefaultCurrency {
		t.Errorf("currency: got %q, want %q", sim.Currency, DefaultCurrency)
	}

	results, err := core.ListResults("alice", sim.ID)
	assertNoError(t, err, "ListResults")
	if len(results) != 4 {
		t.Fatalf("expected 4 result rows, got %d", len(results))
	}
	if results[0].Year != sim.StartYear {
		t.Errorf("first year: got %d, want %d", results[0].Year, sim.StartYear)
	}
	assertAmount(t, results[0].Amount, 10000, "initial point")
	assertAmount(t, results[1].Amount, 11500, "year 1")
	if results[0].AccountName != "Livret A" {
		t.Errorf("account name: got %q", results[0].AccountName)
	}
}

func TestCreateSimulationValidation(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := core.CreateSimulation("", testSimulationRequest("Compte", 100, 5, 2, 0))
	assertErrorCode(t, err, ErrCodeInvalidParameters, "empty user")

	req := testSimulationRequest("Compte", 100, 200, 2, 0)
	_, err = core.CreateSimulation("alice", req)
	assertErrorCode(t, err, ErrCodeInvalidParameters, "bad rate")

	req = testSimulationRequest("Compte", 100, 5, 2, 0)
	req.Category = "Inconnue"
	_, err = core.CreateSimulation("alice", req)
	assertErrorCode(t, err, ErrCodeInvalidParameters, "unknown category")

	// Nothing should have been stored.
	sims, err := core.ListSimulations("alice")
	assertNoError(t, err, "ListSimulations")
	if len(sims) != 0 {
		t.Fatalf("expected no simulations, got %d", len(sims))
	}
}

func TestUpdateSimulationRegeneratesSeries(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	sim := testSimulation(t, core, "alice", "Livret A", 10000, 5, 10, 0)
	results, err := core.ListResults("alice", sim.ID)
	assertNoError(t, err, "ListResults before update")
	if len(results) != 11 {
		t.Fatalf("expected 11 rows, got %d", len(results))
	}

	// Shrinking the period must not leave stale future rows behind.
	req := testSimulationRequest("Livret A", 20000, 2, 3, 500)
	updated, err := core.UpdateSimulation("alice", sim.ID, req)
	assertNoError(t, err, "UpdateSimulation")
	assertAmount(t, updated.InitialAmount, 20000, "updated initial")

	results, err = core.ListResults("alice", sim.ID)
	assertNoError(t, err, "ListResults after update")
	if len(results) != 4 {
		t.Fatalf("expected 4 rows after update, got %d", len(results))
	}
	assertAmount(t, results[0].Amount, 20000, "regenerated initial point")
	assertAmount(t, results[1].Amount, 20900, "regenerated year 1")
}

func TestSimulationOwnership(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	sim := testSimulation(t, core, "alice", "Livret A", 1000, 5, 2, 0)

	_, err := core.GetSimulation("bob", sim.ID)
	assertErrorCode(t, err, ErrCodePermissionDenied, "foreign read")

	_, err = core.UpdateSimulation("bob", sim.ID, testSimulationRequest("Livret A", 1, 1, 1, 0))
	assertErrorCode(t, err, ErrCodePermissionDenied, "foreign update")

	err = core.DeleteSimulation("bob", sim.ID)
	assertErrorCode(t, err, ErrCodePermissionDenied, "foreign delete")

	_, err = core.ListResults("bob", sim.ID)
	assertErrorCode(t, err, ErrCodePermissionDenied, "foreign results")

	_, err = core.GetSimulation("alice", 9999)
	assertErrorCode(t, err, ErrCodeNotFound, "missing simulation")
}

func TestDeleteSimulationCascades(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	sim := testSimulation(t, core, "alice", "Livret A", 1000, 5, 2, 0)
	_, err := core.UpsertRealData("alice", sim.ID, sim.StartYear, NewAmount(950))
	assertNoError(t, err, "UpsertRealData")

	assertNoError(t, core.DeleteSimulation("alice", sim.ID), "DeleteSimulation")

	var results, realData int
	assertNoError(t, core.db.QueryRow(
		"SELECT COUNT(*) FROM consolidated_results WHERE simulation_id = ?", sim.ID).Scan(&results), "count results")
	assertNoError(t, core.db.QueryRow(
		"SELECT COUNT(*) FROM real_account_data WHERE simulation_id = ?", sim.ID).Scan(&realData), "count real data")
	if results != 0 || realData != 0 {
		t.Fatalf("expected cascade delete, got %d results and %d real data rows", results, realData)
	}

	logs, err := core.ListOperationLogs(10)
	assertNoError(t, err, "ListOperationLogs")
	if len(logs) == 0 || logs[0].Operation != "SIMULATION_DELETE" {
		t.Fatalf("expected SIMULATION_DELETE audit entry, got %+v", logs)
	}
}

func TestDeleteAccountSimulations(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	testSimulation(t, core, "alice", "Livret A", 1000, 5, 2, 0)
	testSimulation(t, core, "alice", "Livret A", 2000, 3, 2, 0)
	testSimulation(t, core, "alice", "PEL", 3000, 2, 2, 0)

	deleted, err := core.DeleteAccountSimulations("alice", "Livret A")
	assertNoError(t, err, "DeleteAccountSimulations")
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}

	sims, err := core.ListSimulations("alice")
	assertNoError(t, err, "ListSimulations")
	if len(sims) != 1 || sims[0].AccountName != "PEL" {
		t.Fatalf("expected only PEL to remain, got %+v", sims)
	}

	_, err = core.DeleteAccountSimulations("alice", "Livret A")
	assertErrorCode(t, err, ErrCodeNotFound, "already deleted account")
}

func TestDeleteAccountSimulationsMixedOwnership(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	testSimulation(t, core, "alice", "Livret A", 1000, 5, 2, 0)
	testSimulation(t, core, "bob", "Livret A", 2000, 3, 2, 0)

	_, err := core.DeleteAccountSimulations("alice", "Livret A")
	assertErrorCode(t, err, ErrCodePermissionDenied, "mixed ownership")

	_, err = core.DeleteAccountSimulations("carol", "Livret A")
	assertErrorCode(t, err, ErrCodePermissionDenied, "no owned simulations")

	// Nothing deleted either way.
	sims, err := core.ListSimulations("alice")
	assertNoError(t, err, "ListSimulations")
	if len(sims) != 1 {
		t.Fatalf("expected alice's simulation to survive, got %d", len(sims))
	}
}

func TestListResultsFilters(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	simA := testSimulation(t, core, "alice", "Livret A", 1000, 5, 2, 0)
	reqB := testSimulationRequest("PEL", 2000, 3, 2, 0)
	reqB.Category = DefaultCategories[1]
	_, err := core.CreateSimulation("alice", reqB)
	assertNoError(t, err, "CreateSimulation PEL")
	testSimulation(t, core, "bob", "Autre", 5000, 1, 2, 0)

	all, err := core.ListAllResults("alice")
	assertNoError(t, err, "ListAllResults")
	if len(all) != 6 {
		t.Fatalf("expected 6 rows (2 simulations x 3 years), got %d", len(all))
	}
	for _, r := range all {
		if r.AccountName == "Autre" {
			t.Fatalf("foreign user's results leaked: %+v", r)
		}
	}

	byCategory, err := core.ListResultsByCategory("alice", DefaultCategories[1])
	assertNoError(t, err, "ListResultsByCategory")
	if len(byCategory) != 3 {
		t.Fatalf("expected 3 rows for category, got %d", len(byCategory))
	}

	byAccount, err := core.ListResultsByAccount("alice", "Livret A")
	assertNoError(t, err, "ListResultsByAccount")
	if len(byAccount) != 3 {
		t.Fatalf("expected 3 rows for account, got %d", len(byAccount))
	}
	for _, r := range byAccount {
		if r.SimulationID != simA.ID {
			t.Fatalf("unexpected simulation in account filter: %+v", r)
		}
	}
}
