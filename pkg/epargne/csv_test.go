package epargne

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestExportSimulations(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	testSimulation(t, core, "alice", "Livret A", 1000.5, 3, 10, 100)
	testSimulation(t, core, "alice", "PEA", 5000, 7, 20, 0)
	testSimulation(t, core, "bob", "Livret bob", 10, 1, 1, 0)

	var buf bytes.Buffer
	assertNoError(t, core.ExportSimulations(&buf, "alice", "", ""), "ExportSimulations")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if lines[0] != strings.Join(simulationCSVHeader, ";") {
		t.Errorf("header: got %q", lines[0])
	}
	// French layout: semicolons between fields, comma decimals.
	if !strings.Contains(lines[1], "1000,5") {
		t.Errorf("expected comma decimal in %q", lines[1])
	}
	if strings.Contains(buf.String(), "Livret bob") {
		t.Error("export leaked another user's simulation")
	}
}

func TestExportSimulationsFiltered(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	testSimulation(t, core, "alice", "Livret A", 1000, 3, 10, 0)
	testSimulation(t, core, "alice", "PEA", 5000, 7, 20, 0)

	var buf bytes.Buffer
	assertNoError(t, core.ExportSimulations(&buf, "alice", "", "PEA"), "filtered export")
	if strings.Contains(buf.String(), "Livret A") {
		t.Error("account filter not applied")
	}
	if !strings.Contains(buf.String(), "PEA") {
		t.Error("filtered account missing")
	}
}

func TestImportSimulationsRoundTrip(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	testSimulation(t, core, "alice", "Livret A", 1000.5, 3, 10, 100)
	var buf bytes.Buffer
	assertNoError(t, core.ExportSimulations(&buf, "alice", "", ""), "export")

	n, err := core.ImportSimulations("carol", &buf)
	assertNoError(t, err, "ImportSimulations")
	if n != 1 {
		t.Fatalf("imported: got %d", n)
	}

	sims, err := core.ListSimulations("carol")
	assertNoError(t, err, "ListSimulations")
	if len(sims) != 1 {
		t.Fatalf("expected 1 simulation, got %d", len(sims))
	}
	sim := sims[0]
	if sim.AccountName != "Livret A" || sim.PeriodYears != 10 {
		t.Fatalf("unexpected simulation: %+v", sim)
	}
	assertAmount(t, sim.InitialAmount, 1000.5, "initial amount")

	// The result series is computed as part of the import.
	results, err := core.ListResults("carol", sim.ID)
	assertNoError(t, err, "ListResults")
	if len(results) != 11 {
		t.Fatalf("expected 11 result rows, got %d", len(results))
	}
}

func TestImportSimulationsBadRowAbortsAll(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	year := currentYear()
	body := strings.Join(simulationCSVHeader, ";") + "\n" +
		fmt.Sprintf("Courant;Livret A;1000,0;EUR;3,0;10;%d;0\n", year) +
		fmt.Sprintf("Courant;Broken;1000,0;EUR;250;10;%d;0\n", year)

	_, err := core.ImportSimulations("alice", strings.NewReader(body))
	assertErrorCode(t, err, ErrCodeImportRow, "out-of-range rate")
	var coreErr *Error
	if !errors.As(err, &coreErr) || coreErr.Row != 2 {
		t.Fatalf("expected row 2 in error, got %v", err)
	}

	// The valid first row must not have been applied.
	sims, err := core.ListSimulations("alice")
	assertNoError(t, err, "ListSimulations")
	if len(sims) != 0 {
		t.Fatalf("expected no simulations after failed import, got %d", len(sims))
	}
}

func TestImportSimulationsUnknownCategory(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	body := strings.Join(simulationCSVHeader, ";") + "\n" +
		fmt.Sprintf("NO_SUCH;Livret A;1000,0;EUR;3,0;10;%d;0\n", currentYear())

	_, err := core.ImportSimulations("alice", strings.NewReader(body))
	assertErrorCode(t, err, ErrCodeImportRow, "unknown category")
	if !strings.Contains(err.Error(), "NO_SUCH") {
		t.Errorf("error should name the category: %v", err)
	}
}

func TestImportSimulationsHeaderChecks(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := core.ImportSimulations("alice", strings.NewReader(""))
	assertErrorCode(t, err, ErrCodeImportRow, "empty file")

	_, err = core.ImportSimulations("alice", strings.NewReader("foo;bar\n"))
	assertErrorCode(t, err, ErrCodeImportRow, "wrong header")

	_, err = core.ImportSimulations("alice",
		strings.NewReader(strings.Join(simulationCSVHeader, ";")+"\n"))
	assertErrorCode(t, err, ErrCodeImportRow, "header only")
}

func TestExportRealData(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	assertNoError(t, core.UpsertInflationRate(currentYear(), amt(2), ""), "rate")
	sim := testSimulation(t, core, "alice", "Livret A", 1000, 3, 5, 0)
	_, err := core.UpsertRealData("alice", sim.ID, currentYear(), amt(1020.5))
	assertNoError(t, err, "UpsertRealData")

	var buf bytes.Buffer
	assertNoError(t, core.ExportRealData(&buf, "alice"), "ExportRealData")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got:\n%s", buf.String())
	}
	if lines[0] != strings.Join(realDataCSVHeader, ";") {
		t.Errorf("header: got %q", lines[0])
	}
	if !strings.Contains(lines[1], "Livret A") || !strings.Contains(lines[1], "1020,5") {
		t.Errorf("row: got %q", lines[1])
	}
}

func TestImportRealDataMatchesByAccount(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	sim := testSimulation(t, core, "alice", "Livret A", 1000, 3, 5, 0)
	year := currentYear()

	// The rate comes from the file, not the global inflation table.
	body := strings.Join(realDataCSVHeader, ";") + "\n" +
		fmt.Sprintf("Livret A;%d;1020,0;2,0\n", year) +
		fmt.Sprintf("Inconnu;%d;500,0;1,0\n", year)

	n, warnings, err := core.ImportRealData("alice", strings.NewReader(body))
	assertNoError(t, err, "ImportRealData")
	if n != 1 {
		t.Fatalf("imported: got %d", n)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "Inconnu") {
		t.Fatalf("warnings: got %v", warnings)
	}

	entries, err := core.ListRealData("alice", sim.ID)
	assertNoError(t, err, "ListRealData")
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	assertAmount(t, entries[0].NominalAmount, 1020, "nominal")
	assertAmount(t, entries[0].InflationRate, 2, "rate from file")
	assertAmount(t, entries[0].AdjustedAmount, 1000, "adjusted")
}

func TestImportRealDataMalformedRowAborts(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	sim := testSimulation(t, core, "alice", "Livret A", 1000, 3, 5, 0)
	year := currentYear()

	body := strings.Join(realDataCSVHeader, ";") + "\n" +
		fmt.Sprintf("Livret A;%d;1020,0;2,0\n", year) +
		fmt.Sprintf("Livret A;%d;pas-un-nombre;2,0\n", year+1)

	_, _, err := core.ImportRealData("alice", strings.NewReader(body))
	assertErrorCode(t, err, ErrCodeImportRow, "malformed amount")
	var coreErr *Error
	if !errors.As(err, &coreErr) || coreErr.Row != 2 {
		t.Fatalf("expected row 2 in error, got %v", err)
	}

	entries, err := core.ListRealData("alice", sim.ID)
	assertNoError(t, err, "ListRealData")
	if len(entries) != 0 {
		t.Fatalf("expected nothing applied, got %d entries", len(entries))
	}
}

func TestImportRealDataRejectsOutOfRangeRate(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	sim := testSimulation(t, core, "alice", "Livret A", 1000, 3, 5, 0)
	year := currentYear()

	// A rate of -100 would zero the adjustment divisor.
	for i, rate := range []string{"-100", "-250", "150"} {
		body := strings.Join(realDataCSVHeader, ";") + "\n" +
			fmt.Sprintf("Livret A;%d;1000,0;%s\n", year, rate)
		_, _, err := core.ImportRealData("alice", strings.NewReader(body))
		assertErrorCode(t, err, ErrCodeImportRow, fmt.Sprintf("rate %s", rate))
		var coreErr *Error
		if !errors.As(err, &coreErr) || coreErr.Row != 1 {
			t.Fatalf("case %d: expected row 1 in error, got %v", i, err)
		}
	}

	entries, err := core.ListRealData("alice", sim.ID)
	assertNoError(t, err, "ListRealData")
	if len(entries) != 0 {
		t.Fatalf("expected nothing applied, got %d entries", len(entries))
	}
}

func TestImportRealDataReplacesExistingYear(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()

	sim := testSimulation(t, core, "alice", "Livret A", 1000, 3, 5, 0)
	year := currentYear()
	_, err := core.UpsertRealData("alice", sim.ID, year, amt(900))
	assertNoError(t, err, "seed entry")

	body := strings.Join(realDataCSVHeader, ";") + "\n" +
		fmt.Sprintf("Livret A;%d;1100,0;0,0\n", year)
	n, _, err := core.ImportRealData("alice", strings.NewReader(body))
	assertNoError(t, err, "ImportRealData")
	if n != 1 {
		t.Fatalf("imported: got %d", n)
	}

	entries, err := core.ListRealData("alice", sim.ID)
	assertNoError(t, err, "ListRealData")
	if len(entries) != 1 {
		t.Fatalf("expected the year to be replaced, got %d entries", len(entries))
	}
	assertAmount(t, entries[0].NominalAmount, 1100, "replaced nominal")
}
