package store

import (
	"context"
	"fmt"
	"strconv"

	"expensetracker/internal/client"
	"expensetracker/internal/errbus"
)

// CategoryKey is the cache key of an acknowledged category.
func CategoryKey(c client.Category) string { return strconv.FormatUint(uint64(c.ID), 10) }

// ExpenseKey is the cache key of an acknowledged expense.
func ExpenseKey(e client.Expense) string { return strconv.FormatUint(uint64(e.ID), 10) }

// NewCategories returns a category collection backed by api.
func NewCategories(api *client.Client, bus *errbus.Bus) *Collection[client.Category] {
	return New[client.Category](&categoryAdapter{api: api}, CategoryKey, bus)
}

// NewExpenses returns an expense collection backed by api. It supports
// RangeRefetch on the expense date.
func NewExpenses(api *client.Client, bus *errbus.Bus) *Collection[client.Expense] {
	return New[client.Expense](&expenseAdapter{api: api}, ExpenseKey, bus)
}

func parseKey(key string) (uint, error) {
	id, err := strconv.ParseUint(key, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("store: %q is not a server key", key)
	}
	return uint(id), nil
}

type categoryAdapter struct {
	api *client.Client
}

func (a *categoryAdapter) List(ctx context.Context) ([]client.Category, error) {
	return a.api.ListCategories(ctx)
}

func (a *categoryAdapter) Create(ctx context.Context, draft client.Category) (client.Category, error) {
	created, err := a.api.CreateCategory(ctx, client.CreateCategoryInput{
		Name:     draft.Name,
		ParentID: draft.ParentID,
		Icon:     draft.Icon,
	})
	if err != nil {
		return client.Category{}, err
	}
	return *created, nil
}

func (a *categoryAdapter) Update(ctx context.Context, key string, item client.Category) (client.Category, error) {
	id, err := parseKey(key)
	if err != nil {
		return client.Category{}, err
	}
	in := client.UpdateCategoryInput{
		Name:     &item.Name,
		ParentID: item.ParentID,
	}
	if item.Icon != "" {
		in.Icon = &item.Icon
	}
	if item.ParentID == nil {
		in.ClearParent = true
	}
	updated, err := a.api.UpdateCategory(ctx, id, in)
	if err != nil {
		return client.Category{}, err
	}
	return *updated, nil
}

func (a *categoryAdapter) Delete(ctx context.Context, key string) error {
	id, err := parseKey(key)
	if err != nil {
		return err
	}
	return a.api.DeleteCategory(ctx, id)
}

type expenseAdapter struct {
	api *client.Client
}

func (a *expenseAdapter) List(ctx context.Context) ([]client.Expense, error) {
	return a.api.ListExpenses(ctx, client.ExpenseFilter{})
}

func (a *expenseAdapter) ListRange(ctx context.Context, start, end string) ([]client.Expense, error) {
	return a.api.ListExpenses(ctx, client.ExpenseFilter{StartDate: start, EndDate: end})
}

func (a *expenseAdapter) Create(ctx context.Context, draft client.Expense) (client.Expense, error) {
	created, err := a.api.CreateExpense(ctx, client.CreateExpenseInput{
		Amount:      draft.Amount,
		Description: draft.Description,
		CategoryID:  draft.CategoryID,
		Date:        draft.Date,
	})
	if err != nil {
		return client.Expense{}, err
	}
	return *created, nil
}

func (a *expenseAdapter) Update(ctx context.Context, key string, item client.Expense) (client.Expense, error) {
	id, err := parseKey(key)
	if err != nil {
		return client.Expense{}, err
	}
	updated, err := a.api.UpdateExpense(ctx, id, client.UpdateExpenseInput{
		Amount:      &item.Amount,
		Description: &item.Description,
		CategoryID:  &item.CategoryID,
		Date:        &item.Date,
	})
	if err != nil {
		return client.Expense{}, err
	}
	return *updated, nil
}

func (a *expenseAdapter) Delete(ctx context.Context, key string) error {
	id, err := parseKey(key)
	if err != nil {
		return err
	}
	return a.api.DeleteExpense(ctx, id)
}
