package services

import (
	"iter"

	"expensetracker/internal/categorytree"
	"expensetracker/internal/models"
	"expensetracker/internal/money"
)

// UserServicer defines the contract for account-related business logic.
type UserServicer interface {
	CreateUser(email, password, passwordConfirmation string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	AttemptLogin(email, password string) (*models.User, error)
	IssueResetToken(email string) (*models.User, string, error)
	ResetPassword(token, password, passwordConfirmation string) (*models.User, error)
}

// SessionServicer defines the contract for cookie-session persistence.
type SessionServicer interface {
	CreateSession(userID uint, userAgent, ipAddress string) (*models.Session, string, error)
	Authenticate(token string) (*models.Session, error)
	DeleteSession(sessionID uint) error
	DeleteUserSessions(userID uint) error
	PurgeExpired() (int64, error)
}

// CreateCategoryInput carries the fields accepted when creating a category.
type CreateCategoryInput struct {
	Name     string
	ParentID *uint
	Icon     string
}

// UpdateCategoryInput carries a partial category update. Nil fields are left
// unchanged; ClearParent moves the category to the root level.
type UpdateCategoryInput struct {
	Name        *string
	ParentID    *uint
	ClearParent bool
	Icon        *string
}

// CategoryServicer defines the contract for the category hierarchy.
type CategoryServicer interface {
	CreateCategory(userID uint, input CreateCategoryInput) (*models.Category, error)
	GetUserCategories(userID uint) ([]models.Category, error)
	GetCategoryByID(userID, categoryID uint) (*models.Category, error)
	UpdateCategory(userID, categoryID uint, input UpdateCategoryInput) (*models.Category, error)
	ReorderCategories(userID uint, ids []uint, positions []int) error
	DeleteCategory(userID, categoryID uint) error
	Ancestors(userID, categoryID uint) (iter.Seq[models.Category], error)
	Descendants(userID, categoryID uint) ([]models.Category, error)
	GetCategoryTree(userID uint) ([]*categorytree.Node, error)
	GetCategoryOptions(userID uint) ([]categorytree.Option, error)
	SeedDefaultCategories(userID uint) error
}

// CreateExpenseInput carries the fields accepted when creating an expense.
type CreateExpenseInput struct {
	Amount      *money.Amount
	Description string
	CategoryID  uint
	Date        models.Date
}

// UpdateExpenseInput carries a partial expense update.
type UpdateExpenseInput struct {
	Amount      *money.Amount
	Description *string
	CategoryID  *uint
	Date        *models.Date
}

// ExpenseFilter holds optional filter parameters for listing expenses.
// Date bounds are inclusive; a category matches its whole subtree.
type ExpenseFilter struct {
	StartDate  *models.Date
	EndDate    *models.Date
	CategoryID *uint
}

// ExpenseServicer defines the contract for expense-related business logic.
type ExpenseServicer interface {
	CreateExpense(userID uint, input CreateExpenseInput) (*models.Expense, error)
	GetUserExpenses(userID uint, filter ExpenseFilter) ([]models.Expense, error)
	GetExpenseByID(userID, expenseID uint) (*models.Expense, error)
	UpdateExpense(userID, expenseID uint, input UpdateExpenseInput) (*models.Expense, error)
	DeleteExpense(userID, expenseID uint) error
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{})
}
