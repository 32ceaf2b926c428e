package ledger

import "time"

// CostInWindow sums the cost of transactions whose timestamp falls in
// the half-open interval [start, end). Half-open windows partition the
// timeline exactly: adjacent windows never double-count a transaction
// landing on the shared boundary. O(n) over the ledger, which tops out
// in the low tens of thousands of rows.
func (s *Store) CostInWindow(start, end time.Time) float64 {
	var total float64
	for _, tx := range s.data.Transactions {
		if !tx.Timestamp.Before(start) && tx.Timestamp.Before(end) {
			total += tx.CostUSD
		}
	}
	return round6(total)
}

// TodayCost covers local midnight to midnight+24h, computed at call
// time.
func (s *Store) TodayCost() float64 {
	start := midnight(time.Now())
	return s.CostInWindow(start, start.Add(24*time.Hour))
}

// YesterdayCost is today's window shifted back one day.
func (s *Store) YesterdayCost() float64 {
	end := midnight(time.Now())
	return s.CostInWindow(end.AddDate(0, 0, -1), end)
}

// ThisWeekCost covers the most recent Monday 00:00 local to now.
func (s *Store) ThisWeekCost() float64 {
	now := time.Now()
	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	start := midnight(now).AddDate(0, 0, -daysSinceMonday)
	return s.CostInWindow(start, now)
}

// ThisMonthCost covers the first of the month 00:00 local to now.
func (s *Store) ThisMonthCost() float64 {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return s.CostInWindow(start, now)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
