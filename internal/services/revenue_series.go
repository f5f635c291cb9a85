package services

import (
	"time"

	"github.com/shopspring/decimal"

	"saasreports/internal/core"
)

// RevenueMonths is the length of the trailing dashboard revenue series.
const RevenueMonths = 12

// RevenueSeriesStart returns the first instant covered by the trailing series
// ending with now's month.
func RevenueSeriesStart(now time.Time) time.Time {
	return core.StartOfMonth(now).AddDate(0, -(RevenueMonths - 1), 0)
}

// BuildRevenueSeries sums payments per calendar month over the 12 months
// ending with now's month, oldest first. Months without payments are zero.
// Payments are bucketed in now's location.
func BuildRevenueSeries(payments []core.Payment, now time.Time) []core.RevenueBucket {
	start := RevenueSeriesStart(now)
	sums := make(map[string]decimal.Decimal, RevenueMonths)
	for _, p := range payments {
		paidAt := p.PaidAt.In(now.Location())
		if paidAt.Before(start) {
			continue
		}
		period := paidAt.Format(core.PeriodLayout)
		sums[period] = sums[period].Add(p.Amount)
	}

	buckets := make([]core.RevenueBucket, 0, RevenueMonths)
	for i := 0; i < RevenueMonths; i++ {
		period := start.AddDate(0, i, 0).Format(core.PeriodLayout)
		buckets = append(buckets, core.RevenueBucket{
			Period: period,
			Amount: core.RoundMoney(sums[period]),
		})
	}
	return buckets
}

// groupRevenueByPeriod buckets payments by month, emitting only months with
// data, in order of first appearance. Callers pass payments sorted by paidAt.
func groupRevenueByPeriod(payments []core.Payment, loc *time.Location) ([]core.RevenueBucket, decimal.Decimal) {
	var (
		buckets []core.RevenueBucket
		index   = make(map[string]int)
		total   = decimal.Zero
	)
	for _, p := range payments {
		period := p.PaidAt.In(loc).Format(core.PeriodLayout)
		i, ok := index[period]
		if !ok {
			i = len(buckets)
			index[period] = i
			buckets = append(buckets, core.RevenueBucket{Period: period, Amount: decimal.Zero})
		}
		buckets[i].Amount = buckets[i].Amount.Add(p.Amount)
		total = total.Add(p.Amount)
	}
	for i := range buckets {
		buckets[i].Amount = core.RoundMoney(buckets[i].Amount)
	}
	return buckets, core.RoundMoney(total)
}
