package leaderboard

// GainerEntry is one Hall of Fame row, enriched with rank movement
type GainerEntry struct {
	AccountID            string  `json:"account_id"`
	DisplayName          string  `json:"display_name"`
	Rank                 int     `json:"rank"`
	RankChange           *int    `json:"rank_change"`
	TotalGainsPercentage float64 `json:"total_gains_percentage"`
	Balance              float64 `json:"balance"`
}

// MoverEntry is one daily-movers row
type MoverEntry struct {
	AccountID        string  `json:"account_id"`
	DisplayName      string  `json:"display_name"`
	ChangePercentage float64 `json:"change_percentage"`
	Balance          float64 `json:"balance"`
}

// PopulationStats summarizes the whole valued population
type PopulationStats struct {
	Accounts       int     `json:"accounts"`
	MeanGainsPct   float64 `json:"mean_gains_pct"`
	MedianGainsPct float64 `json:"median_gains_pct"`
	StdDevGainsPct float64 `json:"stddev_gains_pct"`
}

// Snapshot is the published leaderboard. Exactly one lives in storage at a
// time; Rebuild replaces it wholesale, never merges.
type Snapshot struct {
	Date             string          `json:"date"`
	GeneratedAt      string          `json:"generated_at"`
	TopGainers       []GainerEntry   `json:"top_gainers"`
	BestDailyChange  []MoverEntry    `json:"best_daily_change"`
	WorstDailyChange []MoverEntry    `json:"worst_daily_change"`
	Stats            PopulationStats `json:"stats"`
}
