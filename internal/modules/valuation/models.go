package valuation

import "time"

// AccountFailure records one account that could not be updated in a batch.
// Failed accounts are not retried explicitly: their state date was not
// advanced, so the next invocation's selection query picks them up again.
type AccountFailure struct {
	AccountID string `json:"account_id"`
	Reason    string `json:"reason"`
}

// BatchReport summarizes one scheduler invocation
type BatchReport struct {
	Date     string           `json:"date"`
	Selected int              `json:"selected"`
	Updated  int              `json:"updated"`
	Failed   []AccountFailure `json:"failed,omitempty"`
	Done     bool             `json:"done"` // zero accounts selected: the day's pass has converged
	Duration time.Duration    `json:"duration"`
}
