package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ListCategories fetches every category of the signed-in user.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var out struct {
		Categories []Category `json:"categories"`
	}
	if err := c.do(ctx, request{op: "fetching categories", method: http.MethodGet, path: "/categories", out: &out}); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// CategoryTree fetches the categories as a nested forest.
func (c *Client) CategoryTree(ctx context.Context) ([]CategoryNode, error) {
	var out struct {
		Categories []CategoryNode `json:"categories"`
	}
	if err := c.do(ctx, request{op: "fetching category tree", method: http.MethodGet, path: "/categories/tree", out: &out}); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// CategoryOptions fetches the indented parent-selector entries.
func (c *Client) CategoryOptions(ctx context.Context) ([]CategoryOption, error) {
	var out struct {
		Options []CategoryOption `json:"options"`
	}
	if err := c.do(ctx, request{op: "fetching category options", method: http.MethodGet, path: "/categories/options", out: &out}); err != nil {
		return nil, err
	}
	return out.Options, nil
}

// GetCategory fetches one category with its ancestors.
func (c *Client) GetCategory(ctx context.Context, id uint) (*CategoryDetail, error) {
	var out CategoryDetail
	if err := c.do(ctx, request{op: "fetching category", method: http.MethodGet, path: categoryPath(id), out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCategory creates a category.
func (c *Client) CreateCategory(ctx context.Context, in CreateCategoryInput) (*Category, error) {
	var out struct {
		Category Category `json:"category"`
	}
	if err := c.do(ctx, request{op: "creating category", method: http.MethodPost, path: "/categories", body: in, out: &out}); err != nil {
		return nil, err
	}
	return &out.Category, nil
}

// UpdateCategory applies a partial update.
func (c *Client) UpdateCategory(ctx context.Context, id uint, in UpdateCategoryInput) (*Category, error) {
	var out struct {
		Category Category `json:"category"`
	}
	if err := c.do(ctx, request{op: "updating category", method: http.MethodPatch, path: categoryPath(id), body: in, out: &out}); err != nil {
		return nil, err
	}
	return &out.Category, nil
}

// DeleteCategory deletes a category with its descendants and their expenses.
func (c *Client) DeleteCategory(ctx context.Context, id uint) error {
	return c.do(ctx, request{op: "deleting category", method: http.MethodDelete, path: categoryPath(id)})
}

// ReorderCategories stores new sibling positions and returns the
// categories as they are afterwards.
func (c *Client) ReorderCategories(ctx context.Context, in ReorderInput) ([]Category, error) {
	body := map[string]ReorderInput{"categories": in}
	var out struct {
		Categories []Category `json:"categories"`
	}
	if err := c.do(ctx, request{op: "reordering categories", method: http.MethodPost, path: "/categories/update_position", body: body, out: &out}); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// ListExpenses fetches expenses, newest first.
func (c *Client) ListExpenses(ctx context.Context, f ExpenseFilter) ([]Expense, error) {
	q := url.Values{}
	if f.StartDate != "" {
		q.Set("start_date", f.StartDate)
	}
	if f.EndDate != "" {
		q.Set("end_date", f.EndDate)
	}
	if f.CategoryID != 0 {
		q.Set("category_id", strconv.FormatUint(uint64(f.CategoryID), 10))
	}
	path := "/expenses"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out struct {
		Expenses []Expense `json:"expenses"`
	}
	if err := c.do(ctx, request{op: "fetching expenses", method: http.MethodGet, path: path, out: &out}); err != nil {
		return nil, err
	}
	return out.Expenses, nil
}

// GetExpense fetches one expense.
func (c *Client) GetExpense(ctx context.Context, id uint) (*Expense, error) {
	var out struct {
		Expense Expense `json:"expense"`
	}
	if err := c.do(ctx, request{op: "fetching expense", method: http.MethodGet, path: expensePath(id), out: &out}); err != nil {
		return nil, err
	}
	return &out.Expense, nil
}

// CreateExpense records an expense.
func (c *Client) CreateExpense(ctx context.Context, in CreateExpenseInput) (*Expense, error) {
	var out struct {
		Expense Expense `json:"expense"`
	}
	if err := c.do(ctx, request{op: "creating expense", method: http.MethodPost, path: "/expenses", body: in, out: &out}); err != nil {
		return nil, err
	}
	return &out.Expense, nil
}

// UpdateExpense applies a partial update.
func (c *Client) UpdateExpense(ctx context.Context, id uint, in UpdateExpenseInput) (*Expense, error) {
	var out struct {
		Expense Expense `json:"expense"`
	}
	if err := c.do(ctx, request{op: "updating expense", method: http.MethodPatch, path: expensePath(id), body: in, out: &out}); err != nil {
		return nil, err
	}
	return &out.Expense, nil
}

// DeleteExpense deletes an expense.
func (c *Client) DeleteExpense(ctx context.Context, id uint) error {
	return c.do(ctx, request{op: "deleting expense", method: http.MethodDelete, path: expensePath(id)})
}

func categoryPath(id uint) string { return fmt.Sprintf("/categories/%d", id) }

func expensePath(id uint) string { return fmt.Sprintf("/expenses/%d", id) }
