package portfolio

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/darkbear/internal/classify"
	"github.com/mtlprog/darkbear/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func buy(symbol, qty, price string) domain.Transaction {
	return domain.Transaction{Symbol: symbol, Side: domain.SideBuy, Quantity: d(qty), Price: d(price)}
}

func sell(symbol, qty, price string) domain.Transaction {
	return domain.Transaction{Symbol: symbol, Side: domain.SideSell, Quantity: d(qty), Price: d(price)}
}

func quote(symbol, price, change string) domain.MarketQuote {
	return domain.MarketQuote{Symbol: symbol, Price: d(price), Change24h: d(change), UpdatedAt: time.Now()}
}

func assertDecimal(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Errorf("%s = %s, want %s", field, got, want)
	}
}

func TestScenarioBuyAndValue(t *testing.T) {
	txs := []domain.Transaction{buy("BTC", "10", "100")}
	quotes := domain.QuotesFrom([]domain.MarketQuote{quote("BTC", "150", "0")})

	positions := ComputePositions(txs, quotes)
	if len(positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(positions))
	}
	p := positions[0]
	assertDecimal(t, "Quantity", p.Quantity, "10")
	assertDecimal(t, "AverageBuyPrice", p.AverageBuyPrice, "100")
	assertDecimal(t, "CostBasis", p.CostBasis, "1000")
	assertDecimal(t, "MarketValue", p.MarketValue, "1500")
	assertDecimal(t, "UnrealizedPL", p.UnrealizedPL, "500")
	assertDecimal(t, "UnrealizedPLPercent", p.UnrealizedPLPercent, "50")
	assertDecimal(t, "AllocationPercent", p.AllocationPercent, "100")
	if p.AssetClass != domain.AssetClassCrypto {
		t.Errorf("AssetClass = %s, want CRYPTO", p.AssetClass)
	}
	if p.Color != "#f97316" {
		t.Errorf("Color = %s, want #f97316", p.Color)
	}
}

func TestScenarioSellKeepsAveragePrice(t *testing.T) {
	txs := []domain.Transaction{
		buy("ETH", "10", "100"),
		sell("ETH", "4", "200"),
	}

	positions := ComputePositions(txs, nil)
	if len(positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(positions))
	}
	p := positions[0]
	assertDecimal(t, "Quantity", p.Quantity, "6")
	assertDecimal(t, "AverageBuyPrice", p.AverageBuyPrice, "100")
	assertDecimal(t, "CostBasis", p.CostBasis, "600")
}

func TestScenarioStockLots(t *testing.T) {
	txs := []domain.Transaction{buy("BBCA", "2", "1000")}

	positions := ComputePositions(txs, domain.QuotesFrom([]domain.MarketQuote{quote("BBCA", "1100", "1")}))
	if len(positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(positions))
	}
	p := positions[0]
	if p.AssetClass != domain.AssetClassStock {
		t.Errorf("AssetClass = %s, want STOCK", p.AssetClass)
	}
	assertDecimal(t, "CostBasis", p.CostBasis, "200000")
	assertDecimal(t, "AverageBuyPrice", p.AverageBuyPrice, "1000")
	assertDecimal(t, "MarketValue", p.MarketValue, "220000")
	assertDecimal(t, "UnrealizedPLPercent", p.UnrealizedPLPercent, "10")
}

func TestScenarioUnbackedSell(t *testing.T) {
	txs := []domain.Transaction{sell("ANTM", "5", "100")}

	res := New().ComputePositions(txs, nil)
	if len(res.Positions) != 0 {
		t.Fatalf("positions = %d, want 0", len(res.Positions))
	}
	if len(res.Violations) != 1 || res.Violations[0].Kind != ViolationUnbacked {
		t.Errorf("violations = %+v, want one unbacked", res.Violations)
	}
}

func TestUnbackedSellDoesNotAffectLaterBuys(t *testing.T) {
	txs := []domain.Transaction{
		sell("SOL", "5", "100"),
		buy("SOL", "2", "50"),
	}

	positions := ComputePositions(txs, nil)
	if len(positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(positions))
	}
	assertDecimal(t, "Quantity", positions[0].Quantity, "2")
	assertDecimal(t, "CostBasis", positions[0].CostBasis, "100")
}

func TestScenarioAllocation(t *testing.T) {
	txs := []domain.Transaction{
		buy("BTC", "1", "500"),
		buy("GOLD", "1", "500"),
	}
	quotes := domain.QuotesFrom([]domain.MarketQuote{
		quote("BTC", "600", "0"),
		quote("GOLD", "400", "0"),
	})

	positions := ComputePositions(txs, quotes)
	if len(positions) != 2 {
		t.Fatalf("positions = %d, want 2", len(positions))
	}
	assertDecimal(t, "BTC allocation", positions[0].AllocationPercent, "60")
	assertDecimal(t, "GOLD allocation", positions[1].AllocationPercent, "40")
}

func TestAllocationSumsToHundred(t *testing.T) {
	txs := []domain.Transaction{
		buy("BTC", "1", "1"),
		buy("ETH", "1", "1"),
		buy("GOLD", "1", "1"),
	}
	quotes := domain.QuotesFrom([]domain.MarketQuote{
		quote("BTC", "1", "0"),
		quote("ETH", "1", "0"),
		quote("GOLD", "1", "0"),
	})

	sum := decimal.Zero
	for _, p := range ComputePositions(txs, quotes) {
		sum = sum.Add(p.AllocationPercent)
	}
	if sum.Sub(d("100")).Abs().GreaterThan(d("0.000000001")) {
		t.Errorf("allocation sum = %s, want 100", sum)
	}
}

func TestClosedPositionExcluded(t *testing.T) {
	txs := []domain.Transaction{
		buy("BTC", "3", "100"),
		sell("BTC", "3", "120"),
		buy("ETH", "1", "10"),
	}

	positions := ComputePositions(txs, nil)
	if len(positions) != 1 || positions[0].Symbol != "ETH" {
		t.Fatalf("positions = %+v, want only ETH", positions)
	}
}

func TestMissingQuoteValuesAtZero(t *testing.T) {
	txs := []domain.Transaction{buy("BTC", "2", "100")}

	res := New().ComputePositions(txs, nil)
	if len(res.Positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(res.Positions))
	}
	p := res.Positions[0]
	assertDecimal(t, "MarketValue", p.MarketValue, "0")
	assertDecimal(t, "UnrealizedPL", p.UnrealizedPL, "-200")
	assertDecimal(t, "UnrealizedPLPercent", p.UnrealizedPLPercent, "-100")
	assertDecimal(t, "AllocationPercent", p.AllocationPercent, "0")
	if len(res.Warnings) != 1 {
		t.Errorf("warnings = %v, want 1", res.Warnings)
	}
}

func TestZeroCostBasisPercent(t *testing.T) {
	txs := []domain.Transaction{buy("BTC", "1", "0")}
	quotes := domain.QuotesFrom([]domain.MarketQuote{quote("BTC", "100", "0")})

	p := ComputePositions(txs, quotes)[0]
	assertDecimal(t, "UnrealizedPLPercent", p.UnrealizedPLPercent, "0")
	assertDecimal(t, "UnrealizedPL", p.UnrealizedPL, "100")
}

func TestConservationBuyOnly(t *testing.T) {
	txs := []domain.Transaction{
		buy("BBRI", "1", "4000"),
		buy("bbri", "3", "4200"),
		buy("BBRI", "0.5", "3900"),
	}

	p := ComputePositions(txs, nil)[0]
	assertDecimal(t, "Quantity", p.Quantity, "4.5")
	// 1*100*4000 + 3*100*4200 + 0.5*100*3900
	assertDecimal(t, "CostBasis", p.CostBasis, "1855000")
}

func TestAverageCostInvariantAcrossSells(t *testing.T) {
	txs := []domain.Transaction{
		buy("BTC", "3", "100"),
		buy("BTC", "1", "140"),
	}
	before := ComputePositions(txs, nil)[0].AverageBuyPrice

	txs = append(txs, sell("BTC", "1", "500"), sell("BTC", "1.5", "20"))
	after := ComputePositions(txs, nil)[0]

	assertDecimal(t, "AverageBuyPrice before", before, "110")
	assertDecimal(t, "AverageBuyPrice after", after.AverageBuyPrice, "110")
	assertDecimal(t, "Quantity", after.Quantity, "1.5")
	assertDecimal(t, "CostBasis", after.CostBasis, "165")
}

func TestIdempotent(t *testing.T) {
	txs := []domain.Transaction{
		buy("BTC", "3", "100"),
		sell("BTC", "1", "150"),
		buy("BBCA", "2", "9000"),
	}
	quotes := domain.QuotesFrom([]domain.MarketQuote{quote("BTC", "120", "1"), quote("BBCA", "9100", "-1")})
	e := New()

	first := e.ComputePositions(txs, quotes)
	second := e.ComputePositions(txs, quotes)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ between calls:\n%+v\n%+v", first, second)
	}
}

func TestConcurrentComputeShareNoState(t *testing.T) {
	txs := []domain.Transaction{buy("BTC", "3", "100"), sell("BTC", "1", "150"), buy("BBCA", "2", "9000")}
	e := New()
	want := e.ComputePositions(txs, nil)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := e.ComputePositions(txs, nil); !reflect.DeepEqual(got, want) {
				t.Errorf("concurrent result differs:\n%+v\n%+v", got, want)
			}
		}()
	}
	wg.Wait()
}

func TestInputsNotMutated(t *testing.T) {
	txs := []domain.Transaction{buy("BTC", "3", "100"), sell("BTC", "1", "150")}
	snapshot := append([]domain.Transaction(nil), txs...)

	ComputePositions(txs, nil)
	if !reflect.DeepEqual(txs, snapshot) {
		t.Error("transactions were mutated")
	}
}

func TestFirstSeenOrderAndName(t *testing.T) {
	txs := []domain.Transaction{
		buy("ETH", "1", "1"),
		{Symbol: "aapl", Name: "Apple Inc.", Side: domain.SideBuy, Quantity: d("1"), Price: d("1")},
		buy("BTC", "1", "1"),
	}

	positions := ComputePositions(txs, nil)
	got := []string{positions[0].Symbol, positions[1].Symbol, positions[2].Symbol}
	want := []string{"ETH", "AAPL", "BTC"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	if positions[1].Name != "Apple Inc." {
		t.Errorf("Name = %q, want Apple Inc.", positions[1].Name)
	}
	if positions[0].Name != "ETH" {
		t.Errorf("Name = %q, want ETH", positions[0].Name)
	}
}

func TestClassFixedAtFirstSight(t *testing.T) {
	calls := 0
	c := classify.Func(func(string) domain.AssetClass {
		calls++
		if calls == 1 {
			return domain.AssetClassCrypto
		}
		return domain.AssetClassStock
	})
	e := New(WithClassifier(c))

	res := e.ComputePositions([]domain.Transaction{
		buy("XYZ", "1", "10"),
		buy("XYZ", "1", "10"),
	}, nil)
	if calls != 1 {
		t.Errorf("classifier calls = %d, want 1", calls)
	}
	p := res.Positions[0]
	if p.AssetClass != domain.AssetClassCrypto {
		t.Errorf("AssetClass = %s, want CRYPTO", p.AssetClass)
	}
	assertDecimal(t, "CostBasis", p.CostBasis, "20")
}

func TestSellPolicies(t *testing.T) {
	txs := []domain.Transaction{
		buy("BTC", "5", "100"),
		{ID: "tx-2", Symbol: "BTC", Side: domain.SideSell, Quantity: d("8"), Price: d("120")},
		buy("BTC", "4", "50"),
	}

	tests := []struct {
		policy       SellPolicy
		wantQty      string
		wantCost     string
		wantOpen     bool
		wantViolated bool
	}{
		// 5 - 8 = -3, cost 500 - 800 = -300; +4 @ 50 -> qty 1, cost -100
		{SellIgnore, "1", "-100", true, true},
		// clamped to 5 -> closes at 0; +4 @ 50 -> qty 4, cost 200
		{SellClamp, "4", "200", true, true},
		// skipped -> 5 + 4 = 9, cost 700
		{SellReject, "9", "700", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			res := New(WithSellPolicy(tt.policy)).ComputePositions(txs, nil)
			if (len(res.Positions) == 1) != tt.wantOpen {
				t.Fatalf("positions = %+v, wantOpen %v", res.Positions, tt.wantOpen)
			}
			p := res.Positions[0]
			assertDecimal(t, "Quantity", p.Quantity, tt.wantQty)
			assertDecimal(t, "CostBasis", p.CostBasis, tt.wantCost)
			if (len(res.Violations) > 0) != tt.wantViolated {
				t.Errorf("violations = %+v", res.Violations)
			}
			if res.Violations[0].TransactionID != "tx-2" || res.Violations[0].Kind != ViolationOversell {
				t.Errorf("violation = %+v, want oversell on tx-2", res.Violations[0])
			}
		})
	}
}

func TestViolations(t *testing.T) {
	e := New(WithSellPolicy(SellReject))
	got := e.Violations([]domain.Transaction{
		buy("BTC", "1", "100"),
		sell("BTC", "1", "100"),
		sell("BTC", "1", "100"),
	})
	if len(got) != 1 || got[0].Kind != ViolationUnbacked {
		t.Errorf("violations = %+v, want one unbacked", got)
	}
}

func TestParseSellPolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    SellPolicy
		wantErr bool
	}{
		{"", SellIgnore, false},
		{"ignore", SellIgnore, false},
		{"CLAMP", SellClamp, false},
		{" reject ", SellReject, false},
		{"fifo", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSellPolicy(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSellPolicy(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseSellPolicy(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
