package valuation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/darkbear/internal/domain"
	"github.com/mtlprog/darkbear/internal/portfolio"
)

type mockJournal struct {
	txs []domain.Transaction
	err error
}

func (m *mockJournal) List(_ context.Context) ([]domain.Transaction, error) { return m.txs, m.err }

type mockQuotes struct {
	quotes   domain.Quotes
	stale    []string
	err      error
	staleErr error
}

func (m *mockQuotes) Quotes(_ context.Context) (domain.Quotes, error) { return m.quotes, m.err }

func (m *mockQuotes) Stale(_ context.Context, _ time.Duration) ([]string, error) {
	return m.stale, m.staleErr
}

func buy(id, symbol string, qty, price int64) domain.Transaction {
	return domain.Transaction{
		ID: id, Symbol: symbol, Side: domain.SideBuy,
		Date:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Quantity: decimal.NewFromInt(qty), Price: decimal.NewFromInt(price),
	}
}

func sell(id, symbol string, qty, price int64) domain.Transaction {
	tx := buy(id, symbol, qty, price)
	tx.Side = domain.SideSell
	return tx
}

func quote(symbol string, price, change int64) domain.MarketQuote {
	return domain.MarketQuote{Symbol: symbol, Price: decimal.NewFromInt(price), Change24h: decimal.NewFromInt(change)}
}

func TestValuate(t *testing.T) {
	journal := &mockJournal{txs: []domain.Transaction{
		buy("1", "BBCA", 10, 9000),
		buy("2", "BTC", 1, 1000000),
		sell("3", "TLKM", 1, 3000),
	}}
	quotes := &mockQuotes{
		quotes: domain.QuotesFrom([]domain.MarketQuote{quote("BBCA", 9500, 1), quote("BTC", 900000, -2)}),
		stale:  []string{"BTC", "ETH"},
	}
	svc := NewService(journal, quotes, nil, 2*time.Hour)
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	val, err := svc.Valuate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(val.Positions) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(val.Positions))
	}
	// 10 lots * 100 * 9500 + 1 * 900000
	if !val.Stats.TotalValue.Equal(decimal.NewFromInt(10400000)) {
		t.Errorf("TotalValue = %s, want 10400000", val.Stats.TotalValue)
	}
	if !val.Stats.TotalInvested.Equal(decimal.NewFromInt(10000000)) {
		t.Errorf("TotalInvested = %s, want 10000000", val.Stats.TotalInvested)
	}
	if val.Analytics.Concentration == "" || len(val.Analytics.AllocationByClass) == 0 {
		t.Errorf("analytics not populated: %+v", val.Analytics)
	}
	if !val.ValuedAt.Equal(fixed) {
		t.Errorf("ValuedAt = %v", val.ValuedAt)
	}

	joined := strings.Join(val.Warnings, "\n")
	if !strings.Contains(joined, "TLKM") {
		t.Errorf("expected unbacked sell warning, got %v", val.Warnings)
	}
	if !strings.Contains(joined, "quote for BTC is older than 2h0m0s") {
		t.Errorf("expected stale warning for BTC, got %v", val.Warnings)
	}
	if strings.Contains(joined, "ETH") {
		t.Errorf("ETH is not held and should not be warned about: %v", val.Warnings)
	}
}

func TestValuateSellPolicyFlowsThrough(t *testing.T) {
	journal := &mockJournal{txs: []domain.Transaction{buy("1", "BTC", 5, 100), sell("2", "BTC", 8, 120)}}
	quotes := &mockQuotes{quotes: domain.QuotesFrom([]domain.MarketQuote{quote("BTC", 100, 0)})}

	clamp := NewService(journal, quotes, portfolio.New(portfolio.WithSellPolicy(portfolio.SellClamp)), 0)
	val, err := clamp.Valuate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(val.Positions) != 0 {
		t.Errorf("clamped oversell should close the position, got %+v", val.Positions)
	}

	reject := NewService(journal, quotes, portfolio.New(portfolio.WithSellPolicy(portfolio.SellReject)), 0)
	val, err = reject.Valuate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(val.Positions) != 1 || !val.Positions[0].Quantity.Equal(decimal.NewFromInt(5)) {
		t.Errorf("rejected oversell should keep 5 units, got %+v", val.Positions)
	}
}

func TestValuateErrors(t *testing.T) {
	tests := []struct {
		name    string
		journal *mockJournal
		quotes  *mockQuotes
	}{
		{"journal", &mockJournal{err: errors.New("db down")}, &mockQuotes{}},
		{"quotes", &mockJournal{}, &mockQuotes{err: errors.New("db down")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.journal, tt.quotes, nil, 0)
			if _, err := svc.Valuate(context.Background()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestValuateStaleCheckFailureIsNotFatal(t *testing.T) {
	journal := &mockJournal{txs: []domain.Transaction{buy("1", "BTC", 1, 100)}}
	quotes := &mockQuotes{quotes: domain.Quotes{}, staleErr: errors.New("db down")}
	svc := NewService(journal, quotes, nil, time.Hour)
	if _, err := svc.Valuate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAssembleEmptyJournal(t *testing.T) {
	val := Assemble(nil, nil, nil, time.Now())
	if val.Positions == nil {
		t.Error("Positions should be an empty slice, not nil")
	}
	if !val.Stats.TotalValue.IsZero() || !val.Stats.AllTimePLPercent.IsZero() {
		t.Errorf("empty journal stats = %+v", val.Stats)
	}
}

func TestNewServicePanicsOnNilDependencies(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewService(nil, &mockQuotes{}, nil, 0)
}
