package dashboard

import (
	"fmt"
	"sort"
	"time"

	"nursery-backend/internal/database"
	"nursery-backend/internal/httpx"
	"nursery-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ChartPoint struct {
	Label    string `json:"label"` // day, week start or month start
	Cash     string `json:"cash"`
	Card     string `json:"card"`
	Transfer string `json:"transfer"`
	Total    string `json:"total"`
}

type ChartTotals struct {
	Cash     string `json:"cash"`
	Card     string `json:"card"`
	Transfer string `json:"transfer"`
	Total    string `json:"total"`
}

type PaymentsChart struct {
	Period      string       `json:"period"` // daily | weekly | monthly
	From        string       `json:"from"`
	To          string       `json:"to"`
	Points      []ChartPoint `json:"points"`
	GrandTotals ChartTotals  `json:"grand_totals"`
}

type bucketAgg struct {
	cash, card, transfer decimal.Decimal
}

func (b bucketAgg) total() decimal.Decimal {
	return b.cash.Add(b.card).Add(b.transfer)
}

// chartRange returns the first and last day covered by count buckets of
// period ending with the bucket that holds today.
func chartRange(period string, count int, today time.Time) (time.Time, time.Time) {
	switch period {
	case "weekly":
		end := weekStart(today).AddDate(0, 0, 6)
		return end.AddDate(0, 0, -7*count+1), end
	case "monthly":
		end := models.MonthEnd(today)
		return models.MonthStart(today).AddDate(0, -(count - 1), 0), end
	default:
		return today.AddDate(0, 0, -(count - 1)), today
	}
}

func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7 // Monday first
	return models.DateOf(t).AddDate(0, 0, -offset)
}

func bucketOf(period string, day time.Time) time.Time {
	switch period {
	case "weekly":
		return weekStart(day)
	case "monthly":
		return models.MonthStart(day)
	default:
		return models.DateOf(day)
	}
}

// BuildPaymentsChart sums received payments per bucket and method. Buckets
// without payments are omitted.
func BuildPaymentsChart(db *gorm.DB, period string, count int, today time.Time) (PaymentsChart, error) {
	today = models.DateOf(today)
	from, to := chartRange(period, count, today)
	out := PaymentsChart{
		Period: period,
		From:   models.FormatDate(from),
		To:     models.FormatDate(to),
		Points: []ChartPoint{},
	}

	var payments []models.Payment
	if err := db.Where("payment_date >= ? AND payment_date <= ?", from, to).Find(&payments).Error; err != nil {
		return out, err
	}

	buckets := make(map[time.Time]*bucketAgg)
	for _, p := range payments {
		key := bucketOf(period, p.PaymentDate)
		agg, ok := buckets[key]
		if !ok {
			agg = &bucketAgg{}
			buckets[key] = agg
		}
		switch p.Method {
		case models.MethodCash:
			agg.cash = agg.cash.Add(p.Amount)
		case models.MethodCard:
			agg.card = agg.card.Add(p.Amount)
		case models.MethodTransfer:
			agg.transfer = agg.transfer.Add(p.Amount)
		}
	}

	keys := make([]time.Time, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	var grand bucketAgg
	for _, k := range keys {
		b := buckets[k]
		out.Points = append(out.Points, ChartPoint{
			Label:    models.FormatDate(k),
			Cash:     b.cash.StringFixed(2),
			Card:     b.card.StringFixed(2),
			Transfer: b.transfer.StringFixed(2),
			Total:    b.total().StringFixed(2),
		})
		grand.cash = grand.cash.Add(b.cash)
		grand.card = grand.card.Add(b.card)
		grand.transfer = grand.transfer.Add(b.transfer)
	}
	out.GrandTotals = ChartTotals{
		Cash:     grand.cash.StringFixed(2),
		Card:     grand.card.StringFixed(2),
		Transfer: grand.transfer.StringFixed(2),
		Total:    grand.total().StringFixed(2),
	}
	return out, nil
}

// GET /api/dashboard/payments-chart?period=daily&count=7
func PaymentsChartHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		period := c.Query("period", "daily")
		countStr := c.Query("count", "")

		var count int
		if countStr == "" {
			switch period {
			case "weekly":
				count = 8
			case "monthly":
				count = 12
			default:
				period = "daily"
				count = 7
			}
		} else if _, err := fmt.Sscan(countStr, &count); err != nil || count <= 0 || count > 366 {
			return fiber.NewError(fiber.StatusBadRequest, "count must be between 1 and 366")
		}
		if period != "weekly" && period != "monthly" {
			period = "daily"
		}

		chart, err := BuildPaymentsChart(database.DB.WithContext(c.UserContext()), period, count, httpx.Today())
		if err != nil {
			return err
		}
		return c.JSON(chart)
	}
}
