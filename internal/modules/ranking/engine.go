package ranking

import (
	"sort"

	"github.com/stockleague/engine/internal/domain"
)

// Ranking metrics. Each metric is an independent dimension with its own
// stored ranks and deltas.
const (
	MetricTotalGains  = "total_gains"  // cumulative gain percentage since inception
	MetricDailyChange = "daily_change" // day-over-day balance change percentage
)

// Entry is one account's value on the metric being ranked
type Entry struct {
	AccountID string
	Value     float64
}

// Rank sorts entries descending by value and assigns dense 1-based ranks:
// every entry gets a distinct sequential rank, equal values included. The
// sort is stable, so ties keep the input order (callers pass entries in
// account-id order, making re-runs deterministic).
//
// RankChange is previous minus new, so climbing from 10 to 4 yields +6.
// Accounts without a previous rank get nil deltas.
func Rank(entries []Entry, previous map[string]domain.RankingItem, metric string) []domain.RankingItem {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})

	items := make([]domain.RankingItem, 0, len(sorted))
	for i, entry := range sorted {
		item := domain.RankingItem{
			AccountID: entry.AccountID,
			Metric:    metric,
			Rank:      i + 1,
		}

		if prev, ok := previous[entry.AccountID]; ok && prev.Rank > 0 {
			rankPrevious := prev.Rank
			rankChange := rankPrevious - item.Rank
			item.RankPrevious = &rankPrevious
			item.RankChange = &rankChange
		}

		items = append(items, item)
	}

	return items
}
