package cart

import "github.com/shopspring/decimal"

// FeePolicy is the flat delivery fee charged on any non-empty order.
type FeePolicy struct {
	Flat decimal.Decimal
}

func DefaultFeePolicy() FeePolicy {
	return FeePolicy{Flat: decimal.NewFromInt(25)}
}

type Totals struct {
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
	ItemCount   int
}

func LineTotal(l Line) decimal.Decimal {
	return l.Product.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Price is exact; rounding happens only in Display.
func Price(lines []Line, policy FeePolicy) Totals {
	subtotal := decimal.Zero
	count := 0
	for _, l := range lines {
		subtotal = subtotal.Add(LineTotal(l))
		count += l.Quantity
	}
	fee := decimal.Zero
	if subtotal.IsPositive() {
		fee = policy.Flat
	}
	return Totals{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Total:       subtotal.Add(fee),
		ItemCount:   count,
	}
}

func (c *Cart) Totals(policy FeePolicy) Totals {
	return Price(c.lines, policy)
}

type DisplayTotals struct {
	Subtotal    string `json:"subtotal"`
	DeliveryFee string `json:"deliveryFee"`
	Total       string `json:"total"`
	ItemCount   int    `json:"itemCount"`
}

func (t Totals) Display() DisplayTotals {
	return DisplayTotals{
		Subtotal:    Money(t.Subtotal),
		DeliveryFee: Money(t.DeliveryFee),
		Total:       Money(t.Total),
		ItemCount:   t.ItemCount,
	}
}

// Money formats an amount with two decimals, rounding half away from zero.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
