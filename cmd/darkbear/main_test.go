package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mtlprog/darkbear/internal/config"
	"github.com/mtlprog/darkbear/internal/journal"
)

const testLedger = `[
  {"id":"tx-1","symbol":"BTC","type":"BUY","date":"2024-01-10","quantity":"2","price":"100"},
  {"id":"tx-2","symbol":"BBCA","type":"BUY","date":"2024-01-11","quantity":"1","price":"9000"}
]`

const testQuotes = `{"BTC":{"price":"150","change24h":"10"},"BBCA":{"price":"9500"}}`

func writeFixtures(t *testing.T) (ledger, quotes string) {
	t.Helper()
	dir := t.TempDir()
	ledger = filepath.Join(dir, "ledger.json")
	quotes = filepath.Join(dir, "quotes.json")
	if err := os.WriteFile(ledger, []byte(testLedger), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(quotes, []byte(testQuotes), 0o600); err != nil {
		t.Fatal(err)
	}
	return ledger, quotes
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp(config.Config{SellPolicy: "ignore", ReportingCurrency: "USD"})
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	err := app.RunContext(context.Background(), append([]string{"darkbear"}, args...))
	return out.String(), err
}

func TestPositionsCommand(t *testing.T) {
	ledger, quotes := writeFixtures(t)

	out, err := runApp(t, "positions", "--ledger", ledger, "--quotes", quotes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// BBCA is one lot of 100 shares: 100 * 9500
	for _, s := range []string{"BTC", "BBCA", "$300.00", "$950,000.00"} {
		if !strings.Contains(out, s) {
			t.Errorf("output missing %q:\n%s", s, out)
		}
	}
}

func TestPositionsCommandPrivate(t *testing.T) {
	ledger, quotes := writeFixtures(t)

	out, err := runApp(t, "--private", "positions", "--ledger", ledger, "--quotes", quotes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "$950,000.00") || !strings.Contains(out, "••••") {
		t.Errorf("amounts not hidden:\n%s", out)
	}
}

func TestPositionsCommandMissingQuote(t *testing.T) {
	ledger, _ := writeFixtures(t)

	out, err := runApp(t, "positions", "--ledger", ledger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "BTC") {
		t.Errorf("output missing BTC:\n%s", out)
	}
}

func TestStatsCommand(t *testing.T) {
	ledger, quotes := writeFixtures(t)

	out, err := runApp(t, "stats", "--ledger", ledger, "--quotes", quotes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range []string{"Total value", "$950,300.00", "Total invested", "$900,200.00"} {
		if !strings.Contains(out, s) {
			t.Errorf("output missing %q:\n%s", s, out)
		}
	}
}

func TestExportCommand(t *testing.T) {
	ledger, quotes := writeFixtures(t)
	outPath := filepath.Join(t.TempDir(), "out.xlsx")

	out, err := runApp(t, "export", "--ledger", ledger, "--quotes", quotes, "--out", outPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "wrote 2 positions") {
		t.Errorf("output = %q", out)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 2 || string(data[:2]) != "PK" {
		t.Error("workbook is not a zip archive")
	}
}

func TestTxCommands(t *testing.T) {
	ledger, _ := writeFixtures(t)

	if _, err := runApp(t, "tx", "--ledger", ledger, "add", "--date", "2024-02-01", "sell", "btc", "1", "120"); err != nil {
		t.Fatalf("add: %v", err)
	}
	repo, err := journal.LoadFile(ledger)
	if err != nil {
		t.Fatal(err)
	}
	txs, _ := repo.List(context.Background())
	if len(txs) != 3 {
		t.Fatalf("ledger has %d entries, want 3", len(txs))
	}

	out, err := runApp(t, "tx", "--ledger", ledger, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "SELL") || !strings.Contains(out, "2024-02-01") {
		t.Errorf("list output:\n%s", out)
	}

	if _, err := runApp(t, "tx", "--ledger", ledger, "delete", "tx-2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	repo, _ = journal.LoadFile(ledger)
	txs, _ = repo.List(context.Background())
	if len(txs) != 2 {
		t.Errorf("ledger has %d entries after delete, want 2", len(txs))
	}
}

func TestTxAddRejectsOversell(t *testing.T) {
	ledger, _ := writeFixtures(t)

	_, err := runApp(t, "--sell-policy", "reject", "tx", "--ledger", ledger, "add", "--date", "2024-02-01", "SELL", "BTC", "5", "120")
	if err == nil {
		t.Fatal("expected oversell error")
	}
	repo, _ := journal.LoadFile(ledger)
	txs, _ := repo.List(context.Background())
	if len(txs) != 2 {
		t.Errorf("ledger has %d entries, want 2 after a rejected sell", len(txs))
	}
}

func TestTxAddUsage(t *testing.T) {
	ledger, _ := writeFixtures(t)
	tests := [][]string{
		{"tx", "--ledger", ledger, "add", "BUY", "BTC"},
		{"tx", "--ledger", ledger, "add", "BUY", "BTC", "x", "1"},
		{"tx", "--ledger", ledger, "delete"},
		{"--sell-policy", "bogus", "positions", "--ledger", ledger},
	}
	for _, args := range tests {
		t.Run(strings.Join(args[3:], " "), func(t *testing.T) {
			if _, err := runApp(t, args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}
