package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/models"
	"expensetracker/internal/services"
)

type mockExpenseService struct {
	createFn func(userID uint, input services.CreateExpenseInput) (*models.Expense, error)
	listFn   func(userID uint, filter services.ExpenseFilter) ([]models.Expense, error)
	getFn    func(userID, id uint) (*models.Expense, error)
	updateFn func(userID, id uint, input services.UpdateExpenseInput) (*models.Expense, error)
	deleteFn func(userID, id uint) error
}

var _ services.ExpenseServicer = (*mockExpenseService)(nil)

func (m *mockExpenseService) CreateExpense(userID uint, input services.CreateExpenseInput) (*models.Expense, error) {
	if m.createFn != nil {
		return m.createFn(userID, input)
	}
	return nil, errors.New("not implemented")
}

func (m *mockExpenseService) GetUserExpenses(userID uint, filter services.ExpenseFilter) ([]models.Expense, error) {
	if m.listFn != nil {
		return m.listFn(userID, filter)
	}
	return nil, errors.New("not implemented")
}

func (m *mockExpenseService) GetExpenseByID(userID, id uint) (*models.Expense, error) {
	if m.getFn != nil {
		return m.getFn(userID, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockExpenseService) UpdateExpense(userID, id uint, input services.UpdateExpenseInput) (*models.Expense, error) {
	if m.updateFn != nil {
		return m.updateFn(userID, id, input)
	}
	return nil, errors.New("not implemented")
}

func (m *mockExpenseService) DeleteExpense(userID, id uint) error {
	if m.deleteFn != nil {
		return m.deleteFn(userID, id)
	}
	return errors.New("not implemented")
}

func setupExpenseRouter(handler *ExpenseHandler) *gin.Engine {
	r := gin.New()
	g := r.Group("/expenses", injectUserID(1))
	g.GET("", handler.GetExpenses)
	g.POST("", handler.CreateExpense)
	g.GET("/:id", handler.GetExpenseByID)
	g.PUT("/:id", handler.UpdateExpense)
	g.PATCH("/:id", handler.UpdateExpense)
	g.DELETE("/:id", handler.DeleteExpense)
	return r
}

func TestExpenseHandler_CreateExpense(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var got services.CreateExpenseInput
		svc := &mockExpenseService{
			createFn: func(userID uint, input services.CreateExpenseInput) (*models.Expense, error) {
				got = input
				return &models.Expense{
					Base: models.Base{ID: 11}, UserID: userID, CategoryID: input.CategoryID,
					Amount: *input.Amount, Date: input.Date,
				}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupExpenseRouter(NewExpenseHandler(svc, audit))

		rec := doRequest(r, "POST", "/expenses",
			`{"amount":12.5,"description":"milk","category_id":3,"date":"2025-01-31"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Amount == nil || *got.Amount != 1250 || got.CategoryID != 3 || got.Date.String() != "2025-01-31" {
			t.Errorf("unexpected input: %+v", got)
		}
		expense := parseJSON(t, rec)["expense"].(map[string]interface{})
		if expense["date"] != "2025-01-31" {
			t.Errorf("expected date 2025-01-31, got %v", expense["date"])
		}
		if expense["amount"] != 12.5 {
			t.Errorf("expected amount 12.5, got %v", expense["amount"])
		}
		if len(audit.actions) != 1 || audit.actions[0] != models.AuditCreateExpense {
			t.Errorf("expected CREATE_EXPENSE audit, got %v", audit.actions)
		}
	})

	t.Run("accepts a negative amount as income", func(t *testing.T) {
		var got services.CreateExpenseInput
		svc := &mockExpenseService{
			createFn: func(userID uint, input services.CreateExpenseInput) (*models.Expense, error) {
				got = input
				return &models.Expense{Base: models.Base{ID: 12}, Amount: *input.Amount, Date: input.Date}, nil
			},
		}
		r := setupExpenseRouter(NewExpenseHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/expenses", `{"amount":-20,"category_id":3,"date":"2025-01-31"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Amount == nil || *got.Amount != -2000 {
			t.Errorf("expected -2000 cents, got %v", got.Amount)
		}
		if amount := parseJSON(t, rec)["expense"].(map[string]interface{})["amount"]; amount != -20.0 {
			t.Errorf("expected amount -20, got %v", amount)
		}
	})

	t.Run("leaves a missing amount nil", func(t *testing.T) {
		var got services.CreateExpenseInput
		svc := &mockExpenseService{
			createFn: func(_ uint, input services.CreateExpenseInput) (*models.Expense, error) {
				got = input
				return nil, apperrors.ValidationFields(map[string][]string{"amount": {apperrors.MsgBlank}})
			},
		}
		r := setupExpenseRouter(NewExpenseHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/expenses", `{"category_id":3,"date":"2025-01-31"}`)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		if got.Amount != nil {
			t.Errorf("expected nil amount, got %v", *got.Amount)
		}
		assertFieldMessage(t, parseJSON(t, rec), "amount", apperrors.MsgBlank)
	})

	t.Run("returns 422 on a non-numeric amount", func(t *testing.T) {
		r := setupExpenseRouter(NewExpenseHandler(&mockExpenseService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/expenses", `{"amount":"twelve","category_id":3,"date":"2025-01-31"}`)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
		}
		assertFieldMessage(t, parseJSON(t, rec), "amount", "has the wrong type")
	})

	t.Run("returns 422 on a malformed date", func(t *testing.T) {
		r := setupExpenseRouter(NewExpenseHandler(&mockExpenseService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/expenses", `{"amount":100,"category_id":3,"date":"31/01/2025"}`)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		assertFieldMessage(t, parseJSON(t, rec), "date", "must be a date in YYYY-MM-DD format")
	})

	t.Run("passes service field errors through", func(t *testing.T) {
		svc := &mockExpenseService{
			createFn: func(uint, services.CreateExpenseInput) (*models.Expense, error) {
				return nil, apperrors.ValidationFields(map[string][]string{
					"amount":      {apperrors.MsgBlank},
					"category_id": {apperrors.MsgBlank},
				})
			},
		}
		r := setupExpenseRouter(NewExpenseHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/expenses", `{"date":"2025-01-31"}`)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		assertFieldMessage(t, result, "amount", apperrors.MsgBlank)
		assertFieldMessage(t, result, "category_id", apperrors.MsgBlank)
	})
}

func TestExpenseHandler_GetExpenses(t *testing.T) {
	t.Run("parses filters", func(t *testing.T) {
		var got services.ExpenseFilter
		svc := &mockExpenseService{
			listFn: func(_ uint, filter services.ExpenseFilter) ([]models.Expense, error) {
				got = filter
				return nil, nil
			},
		}
		r := setupExpenseRouter(NewExpenseHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/expenses?start_date=2025-01-01&end_date=2025-01-31&category_id=4", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.StartDate == nil || got.StartDate.String() != "2025-01-01" {
			t.Errorf("unexpected start date: %v", got.StartDate)
		}
		if got.EndDate == nil || got.EndDate.String() != "2025-01-31" {
			t.Errorf("unexpected end date: %v", got.EndDate)
		}
		if got.CategoryID == nil || *got.CategoryID != 4 {
			t.Errorf("unexpected category filter: %v", got.CategoryID)
		}
		list, ok := parseJSON(t, rec)["expenses"].([]interface{})
		if !ok || len(list) != 0 {
			t.Errorf("expected an empty expenses array, got %v", list)
		}
	})

	t.Run("no filters means nil bounds", func(t *testing.T) {
		var got services.ExpenseFilter
		svc := &mockExpenseService{
			listFn: func(_ uint, filter services.ExpenseFilter) ([]models.Expense, error) {
				got = filter
				return []models.Expense{{Base: models.Base{ID: 1}}}, nil
			},
		}
		r := setupExpenseRouter(NewExpenseHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/expenses", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got.StartDate != nil || got.EndDate != nil || got.CategoryID != nil {
			t.Errorf("expected empty filter, got %+v", got)
		}
	})

	t.Run("returns 422 on a bad date", func(t *testing.T) {
		r := setupExpenseRouter(NewExpenseHandler(&mockExpenseService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/expenses?start_date=January", "")

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		assertFieldMessage(t, parseJSON(t, rec), "start_date", "must be a date in YYYY-MM-DD format")
	})
}

func TestExpenseHandler_UpdateExpense(t *testing.T) {
	t.Run("sends only the given fields", func(t *testing.T) {
		var got services.UpdateExpenseInput
		svc := &mockExpenseService{
			updateFn: func(_, id uint, input services.UpdateExpenseInput) (*models.Expense, error) {
				got = input
				return &models.Expense{Base: models.Base{ID: id}, Amount: 500}, nil
			},
		}
		r := setupExpenseRouter(NewExpenseHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PATCH", "/expenses/2", `{"amount":"5.00","date":"2025-02-03"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Amount == nil || *got.Amount != 500 {
			t.Errorf("unexpected amount: %v", got.Amount)
		}
		if got.Date == nil || got.Date.String() != "2025-02-03" {
			t.Errorf("unexpected date: %v", got.Date)
		}
		if got.Description != nil || got.CategoryID != nil {
			t.Errorf("expected untouched fields to stay nil: %+v", got)
		}
	})

	t.Run("returns 404 for a foreign expense", func(t *testing.T) {
		svc := &mockExpenseService{
			updateFn: func(uint, uint, services.UpdateExpenseInput) (*models.Expense, error) {
				return nil, apperrors.ErrExpenseNotFound
			},
		}
		r := setupExpenseRouter(NewExpenseHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/expenses/2", `{"amount":500}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "EXPENSE_NOT_FOUND")
	})
}

func TestExpenseHandler_GetAndDelete(t *testing.T) {
	svc := &mockExpenseService{
		getFn: func(_, id uint) (*models.Expense, error) {
			if id != 5 {
				return nil, apperrors.ErrExpenseNotFound
			}
			return &models.Expense{Base: models.Base{ID: 5}, Amount: 99}, nil
		},
		deleteFn: func(_, id uint) error {
			if id != 5 {
				return apperrors.ErrExpenseNotFound
			}
			return nil
		},
	}
	r := setupExpenseRouter(NewExpenseHandler(svc, &mockAuditService{}))

	t.Run("get returns the expense", func(t *testing.T) {
		rec := doRequest(r, "GET", "/expenses/5", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("get returns 404 when missing", func(t *testing.T) {
		rec := doRequest(r, "GET", "/expenses/6", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("delete returns 204", func(t *testing.T) {
		rec := doRequest(r, "DELETE", "/expenses/5", "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
	})

	t.Run("delete rejects id zero", func(t *testing.T) {
		rec := doRequest(r, "DELETE", "/expenses/0", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
