package domain

import "testing"

func TestUnitMultiplier(t *testing.T) {
	tests := []struct {
		class AssetClass
		want  int64
	}{
		{AssetClassStock, 100},
		{AssetClassGold, 1},
		{AssetClassCrypto, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			if got := tt.class.UnitMultiplier(); got.IntPart() != tt.want {
				t.Errorf("UnitMultiplier() = %s, want %d", got, tt.want)
			}
		})
	}
}

func TestParseAssetClass(t *testing.T) {
	tests := []struct {
		input   string
		want    AssetClass
		wantErr bool
	}{
		{"stock", AssetClassStock, false},
		{" Gold ", AssetClassGold, false},
		{"CRYPTO", AssetClassCrypto, false},
		{"bond", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAssetClass(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAssetClass(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAssetClass(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSide(t *testing.T) {
	if s, err := ParseSide("buy"); err != nil || s != SideBuy {
		t.Errorf("ParseSide(buy) = %q, %v", s, err)
	}
	if s, err := ParseSide("Sell"); err != nil || s != SideSell {
		t.Errorf("ParseSide(Sell) = %q, %v", s, err)
	}
	if _, err := ParseSide("short"); err == nil {
		t.Error("expected error for unknown side")
	}
}

func TestQuotesLookupCaseInsensitive(t *testing.T) {
	quotes := QuotesFrom([]MarketQuote{{Symbol: "btc", Price: SafeParse("100")}})

	q, ok := quotes.Lookup(" Btc ")
	if !ok {
		t.Fatal("expected quote for BTC")
	}
	if !q.Price.Equal(SafeParse("100")) {
		t.Errorf("price = %s, want 100", q.Price)
	}

	var empty Quotes
	if _, ok := empty.Lookup("BTC"); ok {
		t.Error("nil quotes should not match")
	}
}
