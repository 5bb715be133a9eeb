package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"expensetracker/internal/categorytree"
	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/models"
)

// expenseService handles expense-related business logic.
type expenseService struct {
	db *gorm.DB
}

// NewExpenseService creates a new ExpenseServicer.
func NewExpenseService(db *gorm.DB) ExpenseServicer {
	return &expenseService{db: db}
}

// CreateExpense records an expense under one of the user's categories.
func (s *expenseService) CreateExpense(userID uint, input CreateExpenseInput) (*models.Expense, error) {
	fields := make(map[string][]string)
	if input.Amount == nil {
		fields["amount"] = append(fields["amount"], apperrors.MsgBlank)
	}
	if input.CategoryID == 0 {
		fields["category_id"] = append(fields["category_id"], apperrors.MsgBlank)
	}
	if input.Date.IsZero() {
		fields["date"] = append(fields["date"], apperrors.MsgBlank)
	}
	if len(fields) > 0 {
		return nil, apperrors.ValidationFields(fields)
	}

	if _, err := findCategory(s.db, userID, input.CategoryID); err != nil {
		return nil, err
	}

	expense := &models.Expense{
		UserID:      userID,
		CategoryID:  input.CategoryID,
		Amount:      *input.Amount,
		Description: strings.TrimSpace(input.Description),
		Date:        input.Date,
	}
	if err := s.db.Create(expense).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return expense, nil
}

// GetUserExpenses lists the user's expenses, newest first.
func (s *expenseService) GetUserExpenses(userID uint, filter ExpenseFilter) ([]models.Expense, error) {
	q := s.db.Model(&models.Expense{}).Where("user_id = ?", userID)

	if filter.StartDate != nil {
		q = q.Where("date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		q = q.Where("date <= ?", *filter.EndDate)
	}
	if filter.CategoryID != nil {
		flat, err := loadCategories(s.db, userID)
		if err != nil {
			return nil, err
		}
		ix := categorytree.NewIndex(flat)
		if _, ok := ix.Get(*filter.CategoryID); !ok {
			return nil, apperrors.ErrCategoryNotFound
		}
		q = q.Where("category_id IN ?", ix.DescendantIDs(*filter.CategoryID))
	}

	var expenses []models.Expense
	if err := q.Order("date DESC").Order("id DESC").Find(&expenses).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return expenses, nil
}

// GetExpenseByID retrieves an expense by ID for a specific user
func (s *expenseService) GetExpenseByID(userID, expenseID uint) (*models.Expense, error) {
	var expense models.Expense
	if err := s.db.Where("id = ? AND user_id = ?", expenseID, userID).First(&expense).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrExpenseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &expense, nil
}

// UpdateExpense applies a partial update.
func (s *expenseService) UpdateExpense(userID, expenseID uint, input UpdateExpenseInput) (*models.Expense, error) {
	expense, err := s.GetExpenseByID(userID, expenseID)
	if err != nil {
		return nil, err
	}

	fields := make(map[string][]string)
	updates := make(map[string]interface{})
	if input.Amount != nil {
		updates["amount"] = input.Amount.Cents()
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Date != nil {
		if input.Date.IsZero() {
			fields["date"] = append(fields["date"], apperrors.MsgBlank)
		}
		updates["date"] = *input.Date
	}
	if input.CategoryID != nil {
		if *input.CategoryID == 0 {
			fields["category_id"] = append(fields["category_id"], apperrors.MsgBlank)
		}
		updates["category_id"] = *input.CategoryID
	}
	if len(fields) > 0 {
		return nil, apperrors.ValidationFields(fields)
	}

	if input.CategoryID != nil && *input.CategoryID != expense.CategoryID {
		if _, err := findCategory(s.db, userID, *input.CategoryID); err != nil {
			return nil, err
		}
	}

	if len(updates) > 0 {
		if err := s.db.Model(expense).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return s.GetExpenseByID(userID, expenseID)
}

// DeleteExpense removes an expense.
func (s *expenseService) DeleteExpense(userID, expenseID uint) error {
	expense, err := s.GetExpenseByID(userID, expenseID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(expense).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
