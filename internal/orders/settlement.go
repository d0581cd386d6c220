package orders

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-mall-checkout.git/internal/catalog"
)

type SettlementLine struct {
	SKUID     int64           `json:"sku_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Qty       int             `json:"count"`
	Amount    decimal.Decimal `json:"amount"`
}

type Settlement struct {
	Lines       []SettlementLine
	TotalCount  int
	TotalAmount decimal.Decimal
	Freight     decimal.Decimal
	PayAmount   decimal.Decimal
}

// Settle computes the pre-commit totals for the selected cart lines. Lines whose
// SKU no longer exists in the catalog are skipped rather than failing the view.
func Settle(selected map[int64]int, skus map[int64]catalog.SKU, freight decimal.Decimal) Settlement {
	ids := make([]int64, 0, len(selected))
	for id := range selected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	s := Settlement{
		TotalAmount: decimal.Zero,
		Freight:     freight,
	}
	for _, id := range ids {
		sku, ok := skus[id]
		if !ok {
			continue
		}
		qty := selected[id]
		amount := sku.Price.Mul(decimalFromInt(qty))
		s.Lines = append(s.Lines, SettlementLine{
			SKUID:     id,
			Name:      sku.Name,
			UnitPrice: sku.Price,
			Qty:       qty,
			Amount:    amount,
		})
		s.TotalCount += qty
		s.TotalAmount = s.TotalAmount.Add(amount)
	}
	s.PayAmount = s.TotalAmount.Add(freight)
	return s
}

func decimalFromInt(n int) decimal.Decimal { return decimal.NewFromInt(int64(n)) }
