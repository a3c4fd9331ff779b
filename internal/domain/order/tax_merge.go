package order

import (
	"sort"

	"github.com/shopspring/decimal"
)

// MergedTaxLine is one logical tax charge: the physical rows sharing a
// merge key, viewed as a single row with summed price and quantity, net of
// tax already refunded against the source rows. The merged view keeps its
// sources so a reduction can be pushed back onto the physical rows.
type MergedTaxLine struct {
	Title    string
	Rate     decimal.Decimal
	Custom   bool
	Price    decimal.Decimal
	Quantity int

	sources []*TaxLine
}

// Sources returns the physical rows behind the merged view
func (m *MergedTaxLine) Sources() []*TaxLine {
	return m.sources
}

// MergeTaxLines folds physical tax rows into logical rows by merge key.
// Refunded amounts are subtracted per source row before summing, floored
// at zero. Logical rows keep the order their key first appeared in; rows
// already drained to zero quantity are dropped.
func MergeTaxLines(lines []*TaxLine, refunded []*RefundTaxLine) []*MergedTaxLine {
	refundedByLine := make(map[string]decimal.Decimal, len(refunded))
	for _, r := range refunded {
		key := r.TaxLineID.String()
		refundedByLine[key] = refundedByLine[key].Add(r.Amount)
	}

	merged := make(map[MergeKey]*MergedTaxLine)
	keyOrder := make([]MergeKey, 0, len(lines))

	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		key := line.Key()
		m, ok := merged[key]
		if !ok {
			m = &MergedTaxLine{Title: line.Title, Rate: line.Rate, Custom: line.Custom}
			merged[key] = m
			keyOrder = append(keyOrder, key)
		}

		net := line.Price.Sub(refundedByLine[line.ID.String()])
		if net.IsNegative() {
			net = decimal.Zero
		}
		m.Price = m.Price.Add(net)
		m.Quantity += line.Quantity
		m.sources = append(m.sources, line)
	}

	out := make([]*MergedTaxLine, 0, len(keyOrder))
	for _, key := range keyOrder {
		m := merged[key]
		sort.SliceStable(m.sources, func(i, j int) bool {
			return m.sources[i].Position > m.sources[j].Position
		})
		out = append(out, m)
	}
	return out
}

// Reduce takes up to quantity taxed units off the logical row, consuming
// the most recently added source rows first and stopping at zero when the
// request exceeds what is available. Source rows are mutated in place.
// Returns units actually removed and the tax price given back.
func (m *MergedTaxLine) Reduce(quantity int, scale int32) (int, decimal.Decimal) {
	if quantity <= 0 {
		return 0, decimal.Zero
	}

	remaining := quantity
	removed := 0
	priceBack := decimal.Zero
	for _, src := range m.sources {
		if remaining == 0 {
			break
		}
		taken, back := src.ReduceQuantity(remaining, scale)
		remaining -= taken
		removed += taken
		priceBack = priceBack.Add(back)
	}

	m.Quantity -= removed
	m.Price = m.Price.Sub(priceBack)
	if m.Price.IsNegative() {
		m.Price = decimal.Zero
	}
	return removed, priceBack
}

// ReduceTaxLines shrinks the tax carried by the given physical rows when a
// target's quantity drops. Each logical row is reduced by the full delta,
// most recently added rows first. Returns the total tax price given back.
func ReduceTaxLines(lines []*TaxLine, quantity int, scale int32) decimal.Decimal {
	priceBack := decimal.Zero
	for _, m := range MergeTaxLines(lines, nil) {
		_, back := m.Reduce(quantity, scale)
		priceBack = priceBack.Add(back)
	}
	return priceBack
}

// TotalTax sums the price of the given tax rows
func TotalTax(lines []*TaxLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Price)
	}
	return total
}
