package accounts

import "time"

// Account is a simulated brokerage account taking part in the game
type Account struct {
	ID            string    `json:"id"`
	DisplayName   string    `json:"display_name"`
	StartingCash  float64   `json:"starting_cash"`
	LastLoginDate string    `json:"last_login_date"` // YYYY-MM-DD
	CreatedAt     time.Time `json:"created_at"`
}
