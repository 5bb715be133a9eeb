package models

import "expensetracker/internal/money"

// Expense is a single spending record. UserID mirrors the owner of the
// category at the time the expense was written. Amount is signed cents;
// negative amounts are income.
type Expense struct {
	Base
	UserID      uint         `gorm:"not null;index" json:"user_id"`
	CategoryID  uint         `gorm:"not null;index" json:"category_id"`
	Amount      money.Amount `gorm:"type:bigint;not null" json:"amount"`
	Description string       `json:"description"`
	Date        Date         `gorm:"type:date;not null;index" json:"date"`
}
