package pricing

import (
	"testing"
	"time"

	"DipWatch/internal/domain/models"
)

func TestNormalizeBitcoin(t *testing.T) {
	tick := &models.PriceTick{
		Underlying: models.UnderlyingBitcoin,
		Price:      100000,
		Change24h:  -1,
		Timestamp:  time.Now().UnixMilli(),
	}
	ups := Normalize(tick)
	if len(ups) != 1 {
		t.Fatalf("expected 1 update, got %d", len(ups))
	}
	if ups[0].Symbol != models.SymbolIBIT {
		t.Fatalf("expected IBIT, got %s", ups[0].Symbol)
	}
	if ups[0].Price != 100 {
		t.Fatalf("expected price 100, got %v", ups[0].Price)
	}
}

func TestNormalizeEthereum(t *testing.T) {
	tick := &models.PriceTick{
		Underlying: models.UnderlyingEthereum,
		Price:      3000,
		Change24h:  2.5,
		Timestamp:  time.Now().UnixMilli(),
	}
	ups := Normalize(tick)
	if len(ups) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(ups))
	}
	if ups[0].Symbol != models.SymbolETHA || ups[1].Symbol != models.SymbolSTCE {
		t.Fatalf("unexpected symbols %s %s", ups[0].Symbol, ups[1].Symbol)
	}
	for _, up := range ups {
		if up.Price != 30 {
			t.Fatalf("%s: expected price 30, got %v", up.Symbol, up.Price)
		}
		if up.Change24h != 2.5 {
			t.Fatalf("%s: change24h not carried", up.Symbol)
		}
	}
}

func TestNormalizeUnknownUnderlying(t *testing.T) {
	tick := &models.PriceTick{
		Underlying: models.Underlying("dogecoin"),
		Price:      1,
		Timestamp:  time.Now().UnixMilli(),
	}
	if ups := Normalize(tick); len(ups) != 0 {
		t.Fatalf("expected empty result, got %d", len(ups))
	}
}
