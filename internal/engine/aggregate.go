package engine

import (
	"github.com/Veraticus/payflow/internal/model"
	"github.com/shopspring/decimal"
)

// Totals holds one employee's facts for a period, summed per metric.
type Totals struct {
	HourStd       decimal.Decimal
	HourOTWeekday decimal.Decimal
	HourOTWeekend decimal.Decimal
	HourTotal     decimal.Decimal
	HourConfirmed decimal.Decimal
	Base          decimal.Decimal
	Allowances    decimal.Decimal
	Deductions    decimal.Decimal
}

// Aggregate sums facts per metric. Metrics the engine does not price (days,
// tax amounts) are ignored.
func Aggregate(facts []model.FactRecord) Totals {
	var t Totals
	for _, f := range facts {
		switch f.MetricCode {
		case model.MetricHourStd:
			t.HourStd = t.HourStd.Add(f.MetricValue)
		case model.MetricHourOTWeekday:
			t.HourOTWeekday = t.HourOTWeekday.Add(f.MetricValue)
		case model.MetricHourOTWeekend:
			t.HourOTWeekend = t.HourOTWeekend.Add(f.MetricValue)
		case model.MetricHourTotal:
			t.HourTotal = t.HourTotal.Add(f.MetricValue)
		case model.MetricHourConfirmed:
			t.HourConfirmed = t.HourConfirmed.Add(f.MetricValue)
		case model.MetricAmountBase:
			t.Base = t.Base.Add(f.MetricValue)
		case model.MetricAmountAllow:
			t.Allowances = t.Allowances.Add(f.MetricValue)
		case model.MetricAmountDeduct:
			t.Deductions = t.Deductions.Add(f.MetricValue)
		}
	}
	return t
}

// PayableHours picks confirmed hours, then total hours, then standard hours.
// A zero sum counts as absent.
func (t Totals) PayableHours() decimal.Decimal {
	for _, h := range []decimal.Decimal{t.HourConfirmed, t.HourTotal, t.HourStd} {
		if !h.IsZero() {
			return h
		}
	}
	return decimal.Zero
}
