package models

// MonthlyUsage accumulates AI consumption for one user and calendar month.
type MonthlyUsage struct {
	UserID   string `json:"userId"`
	Year     int    `json:"year"`
	Month    int    `json:"month"`
	Tokens   int64  `json:"tokens"`
	Invoices int64  `json:"invoices"` // AI drafts created
}
