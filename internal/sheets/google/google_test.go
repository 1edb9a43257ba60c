package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mywallet/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "  "})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestServiceAccountCredentials(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

		_, err := serviceAccountCredentials()
		if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
			t.Fatalf("expected missing credentials error, got %v", err)
		}
	})

	t.Run("inline json wins", func(t *testing.T) {
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", `{"type":"service_account"}`)
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "/does/not/exist")

		b, err := serviceAccountCredentials()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(b) != `{"type":"service_account"}` {
			t.Errorf("got %s", b)
		}
	})

	t.Run("application credentials file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sa.json")
		if err := os.WriteFile(path, []byte(`{"k":1}`), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)

		b, err := serviceAccountCredentials()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(b) != `{"k":1}` {
			t.Errorf("got %s", b)
		}
	})

	t.Run("unreadable file", func(t *testing.T) {
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", filepath.Join(t.TempDir(), "missing.json"))

		if _, err := serviceAccountCredentials(); err == nil {
			t.Fatal("expected read error")
		}
	})
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Ledger", 2024, "2024 Ledger"},
		{"  Ledger  ", 2025, "2025 Ledger"},
		{"2023 Ledger", 2024, "2023 Ledger"},
		{"1800 Ledger", 2024, "2024 1800 Ledger"},
		{"", 2024, ""},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestFindRow(t *testing.T) {
	values := [][]any{
		{"id"},
		{},
		{"tx-1"},
		{" tx-2 "},
	}
	tests := []struct {
		id   string
		want int
	}{
		{"tx-1", 3},
		{"tx-2", 4},
		{"tx-3", 0},
	}
	for _, tt := range tests {
		if got := findRow(values, tt.id); got != tt.want {
			t.Errorf("findRow(%q) = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestRowValues(t *testing.T) {
	tx := core.Transaction{
		ID:            "tx-1",
		UserID:        "u-1",
		Type:          core.Expense,
		Category:      "Food",
		PaymentMethod: "card",
		Amount:        250,
		Date:          time.Date(2024, 3, 9, 18, 30, 0, 0, time.UTC),
		Note:          "groceries",
	}
	got := rowValues(tx)
	want := []any{"tx-1", "2024-03-09", "u-1", "expense", "Food", "card", int64(-250), "groceries"}
	if len(got) != len(want) {
		t.Fatalf("rowValues() has %d columns, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestClientWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetBase: "Ledger"}
	tx := core.Transaction{ID: "tx-1", Date: time.Now()}

	if _, err := c.Upsert(context.Background(), tx); err == nil {
		t.Error("Upsert should fail without a service")
	}
	if err := c.Delete(context.Background(), tx); err == nil {
		t.Error("Delete should fail without a service")
	}
	if got := c.sheetFor(core.Transaction{Date: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}); got != "2023 Ledger" {
		t.Errorf("sheetFor() = %q", got)
	}
}
