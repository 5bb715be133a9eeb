package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/models"
	"expensetracker/internal/money"
	"expensetracker/internal/services"
	"expensetracker/internal/validator"
)

// ExpenseHandler handles expense-related requests
type ExpenseHandler struct {
	expenseService services.ExpenseServicer
	auditService   services.AuditServicer
}

// NewExpenseHandler creates a new ExpenseHandler
func NewExpenseHandler(expenseService services.ExpenseServicer, auditService services.AuditServicer) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService, auditService: auditService}
}

// CreateExpenseRequest represents the request payload for creating an expense.
// Amount is a decimal number; negative values record income.
type CreateExpenseRequest struct {
	Amount      *money.Amount `json:"amount" swaggertype:"number"`
	Description string        `json:"description" binding:"max=255"`
	CategoryID  uint          `json:"category_id"`
	Date        string        `json:"date" binding:"omitempty,ymd"`
}

// UpdateExpenseRequest represents the request payload for updating an expense
type UpdateExpenseRequest struct {
	Amount      *money.Amount `json:"amount" swaggertype:"number"`
	Description *string       `json:"description" binding:"omitempty,max=255"`
	CategoryID  *uint         `json:"category_id"`
	Date        *string       `json:"date" binding:"omitempty,ymd"`
}

// ListExpensesQuery holds the optional list filters
type ListExpensesQuery struct {
	StartDate  string `form:"start_date" json:"start_date" binding:"omitempty,ymd"`
	EndDate    string `form:"end_date" json:"end_date" binding:"omitempty,ymd"`
	CategoryID *uint  `form:"category_id" json:"category_id"`
}

// ExpenseResponse wraps a single expense
type ExpenseResponse struct {
	Expense models.Expense `json:"expense"`
}

// ExpensesResponse wraps a list of expenses
type ExpensesResponse struct {
	Expenses []models.Expense `json:"expenses"`
}

// CreateExpense handles the creation of a new expense
// @Summary     Create expense
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    SessionCookie
// @Param       request body CreateExpenseRequest true "Expense details"
// @Success     201 {object} ExpenseResponse "Expense created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     422 {object} ErrorResponse "Validation failed"
// @Router      /expenses [post]
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateExpenseRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	input := services.CreateExpenseInput{
		Amount:      req.Amount,
		Description: req.Description,
		CategoryID:  req.CategoryID,
	}
	if req.Date != "" {
		input.Date, err = models.ParseDate(req.Date)
		if err != nil {
			respondWithError(c, apperrors.Validation("date", "must be a date in YYYY-MM-DD format"))
			return
		}
	}

	expense, err := h.expenseService.CreateExpense(userID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, models.AuditCreateExpense, models.ResourceExpense, expense.ID, c.ClientIP(),
		map[string]interface{}{"amount": expense.Amount, "category_id": expense.CategoryID, "date": expense.Date.String()})

	c.JSON(http.StatusCreated, gin.H{"expense": expense})
}

// GetExpenses handles listing expenses for the authenticated user
// @Summary     List expenses
// @Description Newest first. Date bounds are inclusive; a category filter covers its whole subtree.
// @Tags        expenses
// @Produce     json
// @Security    SessionCookie
// @Param       start_date  query string false "Earliest date (YYYY-MM-DD)"
// @Param       end_date    query string false "Latest date (YYYY-MM-DD)"
// @Param       category_id query int    false "Category subtree"
// @Success     200 {object} ExpensesResponse "Expenses"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     422 {object} ErrorResponse "Validation failed"
// @Router      /expenses [get]
func (h *ExpenseHandler) GetExpenses(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var q ListExpensesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, validator.Translate(err))
		return
	}

	filter := services.ExpenseFilter{CategoryID: q.CategoryID}
	if q.StartDate != "" {
		d, _ := models.ParseDate(q.StartDate)
		filter.StartDate = &d
	}
	if q.EndDate != "" {
		d, _ := models.ParseDate(q.EndDate)
		filter.EndDate = &d
	}

	expenses, err := h.expenseService.GetUserExpenses(userID, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if expenses == nil {
		expenses = []models.Expense{}
	}

	c.JSON(http.StatusOK, gin.H{"expenses": expenses})
}

// GetExpenseByID handles retrieving a specific expense
// @Summary     Get expense
// @Tags        expenses
// @Produce     json
// @Security    SessionCookie
// @Param       id path int true "Expense ID"
// @Success     200 {object} ExpenseResponse "Expense"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Router      /expenses/{id} [get]
func (h *ExpenseHandler) GetExpenseByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expenseID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	expense, err := h.expenseService.GetExpenseByID(userID, expenseID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

// UpdateExpense handles updating an expense
// @Summary     Update expense
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    SessionCookie
// @Param       id      path int                  true "Expense ID"
// @Param       request body UpdateExpenseRequest true "Fields to change"
// @Success     200 {object} ExpenseResponse "Expense updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Expense or category not found"
// @Failure     422 {object} ErrorResponse "Validation failed"
// @Router      /expenses/{id} [put]
func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expenseID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateExpenseRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	input := services.UpdateExpenseInput{
		Amount:      req.Amount,
		Description: req.Description,
		CategoryID:  req.CategoryID,
	}
	if req.Date != nil {
		var d models.Date
		if *req.Date != "" {
			if d, err = models.ParseDate(*req.Date); err != nil {
				respondWithError(c, apperrors.Validation("date", "must be a date in YYYY-MM-DD format"))
				return
			}
		}
		input.Date = &d
	}

	expense, err := h.expenseService.UpdateExpense(userID, expenseID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, models.AuditUpdateExpense, models.ResourceExpense, expense.ID, c.ClientIP(),
		map[string]interface{}{"amount": expense.Amount, "category_id": expense.CategoryID, "date": expense.Date.String()})

	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

// DeleteExpense handles deleting an expense
// @Summary     Delete expense
// @Tags        expenses
// @Security    SessionCookie
// @Param       id path int true "Expense ID"
// @Success     204 "Expense deleted"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Router      /expenses/{id} [delete]
func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expenseID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.expenseService.DeleteExpense(userID, expenseID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, models.AuditDeleteExpense, models.ResourceExpense, expenseID, c.ClientIP(), nil)

	c.Status(http.StatusNoContent)
}
