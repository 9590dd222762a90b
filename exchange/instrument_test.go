package exchange

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestQuantizeFloors(t *testing.T) {
	inst := &Instrument{QuantityStep: d("0.001")}
	got := inst.QuantizeQuantity(d("1.2346"))
	if got.String() != "1.234" {
		t.Fatalf("quantize(1.2346, 0.001) = %s, want 1.234", got)
	}
}

func TestQuantizeIdempotent(t *testing.T) {
	steps := []string{"0.001", "0.05", "1", "0.00000001"}
	values := []string{"1.2346", "99.999", "0.00000001", "12345.6789", "0.3"}
	for _, step := range steps {
		inst := &Instrument{QuantityStep: d(step)}
		for _, v := range values {
			once := inst.QuantizeQuantity(d(v))
			twice := inst.QuantizeQuantity(once)
			if !once.Equal(twice) {
				t.Errorf("step %s value %s: quantize not idempotent: %s != %s", step, v, once, twice)
			}
			if !once.Mod(d(step)).IsZero() {
				t.Errorf("step %s value %s: remainder %s", step, v, once.Mod(d(step)))
			}
			if once.GreaterThan(d(v)) {
				t.Errorf("step %s value %s: quantize rounded up to %s", step, v, once)
			}
		}
	}
}

func TestQuantizeZeroStepPassesThrough(t *testing.T) {
	inst := &Instrument{}
	v := d("1.2346")
	if got := inst.QuantizePrice(v); !got.Equal(v) {
		t.Fatalf("zero step changed value: %s", got)
	}
}

func TestInstrumentValidate(t *testing.T) {
	base := func() *Instrument {
		return &Instrument{
			Name:        "ETH",
			Symbol:      "ETHUSDT",
			SellSide:    SideSell,
			BuySide:     SideBuy,
			IsBaseAsset: true,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Instrument)
		wantErr bool
	}{
		{"valid base pair", func(i *Instrument) {}, false},
		{"valid inverted pair", func(i *Instrument) {
			i.Name = "TRY"
			i.Symbol = "USDTTRY"
			i.IsBaseAsset = false
			i.SellSide, i.BuySide = SideBuy, SideSell
		}, false},
		{"same sides", func(i *Instrument) { i.BuySide = SideSell }, true},
		{"symbol without main asset", func(i *Instrument) { i.Symbol = "ETHBTC" }, true},
		{"name equals main asset", func(i *Instrument) { i.Name = "USDT"; i.Symbol = "USDTUSDT" }, true},
		{"orientation mismatch", func(i *Instrument) { i.SellSide, i.BuySide = SideBuy, SideSell }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := base()
			tt.mutate(inst)
			err := inst.Validate("USDT")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSideUnitTable(t *testing.T) {
	// The side table: IsBaseAsset decides which request side converts toward
	// the instrument's asset.
	basePair := &Instrument{Name: "ETH", Symbol: "ETHUSDT", IsBaseAsset: true, SellSide: SideSell, BuySide: SideBuy}
	invPair := &Instrument{Name: "TRY", Symbol: "USDTTRY", IsBaseAsset: false, SellSide: SideBuy, BuySide: SideSell}

	if err := basePair.Validate("USDT"); err != nil {
		t.Fatalf("base pair invalid: %v", err)
	}
	if err := invPair.Validate("USDT"); err != nil {
		t.Fatalf("inverted pair invalid: %v", err)
	}
	if basePair.BuySide != SideBuy || basePair.SellSide != SideSell {
		t.Fatalf("base pair sides flipped: buy=%s sell=%s", basePair.BuySide, basePair.SellSide)
	}
	if invPair.BuySide != SideSell || invPair.SellSide != SideBuy {
		t.Fatalf("inverted pair sides not swapped: buy=%s sell=%s", invPair.BuySide, invPair.SellSide)
	}
}

func TestInstrumentAssetName(t *testing.T) {
	inst := &Instrument{Name: "ETH"}
	var ref BalanceRef = inst
	if ref.AssetName() != "ETH" {
		t.Fatalf("AssetName() = %s", ref.AssetName())
	}
	if AssetName("BTC").AssetName() != "BTC" {
		t.Fatal("AssetName string form broken")
	}
}
