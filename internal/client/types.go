package client

import (
	"time"

	"expensetracker/internal/money"
)

// User is the signed-in account.
type User struct {
	ID           uint       `json:"id"`
	EmailAddress string     `json:"email_address"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// Category is a node of the user's category forest.
type Category struct {
	ID        uint      `json:"id"`
	ParentID  *uint     `json:"parent_id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CategoryDetail is a category with its ancestors, nearest first.
type CategoryDetail struct {
	Category  Category   `json:"category"`
	Ancestors []Category `json:"ancestors"`
}

// CategoryNode is a category with its nested children.
type CategoryNode struct {
	Category
	Children []CategoryNode `json:"children"`
}

// CategoryOption is one entry of a parent selector.
type CategoryOption struct {
	Value uint   `json:"value"`
	Label string `json:"label"`
	Depth int    `json:"depth"`
}

// Expense is a spending record. A negative Amount is income and Date is
// YYYY-MM-DD.
type Expense struct {
	ID          uint         `json:"id"`
	CategoryID  uint         `json:"category_id"`
	Amount      money.Amount `json:"amount"`
	Description string       `json:"description"`
	Date        string       `json:"date"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// CreateCategoryInput creates a category at the end of its sibling group.
type CreateCategoryInput struct {
	Name     string `json:"name"`
	ParentID *uint  `json:"parent_id,omitempty"`
	Icon     string `json:"icon,omitempty"`
}

// UpdateCategoryInput changes the non-nil fields. ClearParent moves the
// category to the root level.
type UpdateCategoryInput struct {
	Name        *string `json:"name,omitempty"`
	ParentID    *uint   `json:"parent_id,omitempty"`
	ClearParent bool    `json:"clear_parent,omitempty"`
	Icon        *string `json:"icon,omitempty"`
}

// ReorderInput assigns positions[i] to ids[i].
type ReorderInput struct {
	IDs       []uint `json:"ids"`
	Positions []int  `json:"positions"`
}

// CreateExpenseInput records a new expense.
type CreateExpenseInput struct {
	Amount      money.Amount `json:"amount"`
	Description string       `json:"description,omitempty"`
	CategoryID  uint         `json:"category_id"`
	Date        string       `json:"date"`
}

// UpdateExpenseInput changes the non-nil fields.
type UpdateExpenseInput struct {
	Amount      *money.Amount `json:"amount,omitempty"`
	Description *string       `json:"description,omitempty"`
	CategoryID  *uint         `json:"category_id,omitempty"`
	Date        *string       `json:"date,omitempty"`
}

// ExpenseFilter narrows a listing. Empty fields are not sent.
type ExpenseFilter struct {
	StartDate  string
	EndDate    string
	CategoryID uint
}
