package cart

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPriceEmptyCart(t *testing.T) {
	totals := New().Totals(DefaultFeePolicy())
	if !totals.Subtotal.IsZero() || !totals.DeliveryFee.IsZero() || !totals.Total.IsZero() {
		t.Fatalf("empty cart must price to zero, got %+v", totals)
	}
}

func TestPriceSubtotalAndFee(t *testing.T) {
	c := New()
	c.Add(pizza(), 2, nil)
	totals := c.Totals(DefaultFeePolicy())
	if !totals.Subtotal.Equal(decimal.RequireFromString("300.00")) {
		t.Fatalf("subtotal: want 300.00 got %s", totals.Subtotal)
	}
	if !totals.DeliveryFee.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("fee: want 25 got %s", totals.DeliveryFee)
	}
	if got := totals.Display(); got.Total != "325.00" || got.Subtotal != "300.00" || got.ItemCount != 2 {
		t.Fatalf("display: %+v", got)
	}
}

func TestPriceSingleMargherita(t *testing.T) {
	c := New()
	c.Add(pizza(), 1, nil)
	if got := c.Totals(DefaultFeePolicy()).Display().Total; got != "175.00" {
		t.Fatalf("want 175.00 got %s", got)
	}
}

func TestPriceHasNoFloatDrift(t *testing.T) {
	c := New()
	dime := ProductSnapshot{ID: 9, Name: "Chicle", UnitPrice: decimal.RequireFromString("0.10")}
	c.Add(dime, 3, nil)
	totals := c.Totals(FeePolicy{Flat: decimal.RequireFromString("0.20")})
	if !totals.Total.Equal(decimal.RequireFromString("0.50")) {
		t.Fatalf("want exactly 0.50, got %s", totals.Total)
	}
}

func TestZeroPricedItemsChargeNoFee(t *testing.T) {
	c := New()
	c.Add(ProductSnapshot{ID: 5, Name: "Salsa", UnitPrice: decimal.Zero}, 2, nil)
	totals := c.Totals(DefaultFeePolicy())
	if !totals.DeliveryFee.IsZero() {
		t.Fatalf("fee applies only when subtotal > 0, got %s", totals.DeliveryFee)
	}
}
