package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"expensetracker/internal/models"
	"expensetracker/internal/services"
)

// CategoryHandler handles category-related requests
type CategoryHandler struct {
	categoryService services.CategoryServicer
	auditService    services.AuditServicer
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService services.CategoryServicer, auditService services.AuditServicer) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService, auditService: auditService}
}

// CreateCategoryRequest represents the request payload for creating a category
type CreateCategoryRequest struct {
	Name     string `json:"name" binding:"max=100"`
	ParentID *uint  `json:"parent_id"`
	Icon     string `json:"icon" binding:"omitempty,icon"`
}

// UpdateCategoryRequest represents the request payload for updating a
// category. "parent_id": null moves the category to the root level, as does
// "clear_parent": true.
type UpdateCategoryRequest struct {
	Name        *string    `json:"name" binding:"omitempty,max=100"`
	ParentID    NullableID `json:"parent_id" swaggertype:"integer"`
	ClearParent bool       `json:"clear_parent"`
	Icon        *string    `json:"icon" binding:"omitempty,icon"`
}

// ReorderCategoriesRequest represents the bulk position update payload
type ReorderCategoriesRequest struct {
	Categories struct {
		IDs       []uint `json:"ids"`
		Positions []int  `json:"positions"`
	} `json:"categories"`
}

// NullableID is an optional foreign key that tells an absent key apart from
// an explicit null.
type NullableID struct {
	Set   bool
	Value *uint
}

// UnmarshalJSON implements json.Unmarshaler. It only runs when the key is
// present in the payload.
func (n *NullableID) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var id uint
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	n.Value = &id
	return nil
}

// CategoryResponse wraps a single category
type CategoryResponse struct {
	Category models.Category `json:"category"`
}

// CategoryDetailResponse is a category with its ancestors, nearest first
type CategoryDetailResponse struct {
	Category  models.Category   `json:"category"`
	Ancestors []models.Category `json:"ancestors"`
}

// CategoriesResponse wraps a list of categories
type CategoriesResponse struct {
	Categories []models.Category `json:"categories"`
}

// CreateCategory handles the creation of a new category
// @Summary     Create category
// @Description Create a category at the end of its sibling group
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    SessionCookie
// @Param       request body CreateCategoryRequest true "Category details"
// @Success     201 {object} CategoryResponse "Category created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     422 {object} ErrorResponse "Validation failed"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateCategoryRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	category, err := h.categoryService.CreateCategory(userID, services.CreateCategoryInput{
		Name:     req.Name,
		ParentID: req.ParentID,
		Icon:     req.Icon,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, models.AuditCreateCategory, models.ResourceCategory, category.ID, c.ClientIP(),
		map[string]interface{}{"name": category.Name, "parent_id": category.ParentID})

	c.JSON(http.StatusCreated, gin.H{"category": category})
}

// GetCategories handles listing all categories for the authenticated user
// @Summary     List categories
// @Description Every category of the user ordered by parent, then position
// @Tags        categories
// @Produce     json
// @Security    SessionCookie
// @Success     200 {object} CategoriesResponse "Categories"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /categories [get]
func (h *CategoryHandler) GetCategories(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	categories, err := h.categoryService.GetUserCategories(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// GetCategoryTree returns the categories as a nested forest
// @Summary     Category tree
// @Tags        categories
// @Produce     json
// @Security    SessionCookie
// @Success     200 {object} map[string]interface{} "Nested categories"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /categories/tree [get]
func (h *CategoryHandler) GetCategoryTree(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	tree, err := h.categoryService.GetCategoryTree(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": tree})
}

// GetCategoryOptions returns the indented parent-selector options
// @Summary     Category options
// @Tags        categories
// @Produce     json
// @Security    SessionCookie
// @Success     200 {object} map[string]interface{} "Indented options"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /categories/options [get]
func (h *CategoryHandler) GetCategoryOptions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	options, err := h.categoryService.GetCategoryOptions(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"options": options})
}

// GetCategoryByID handles retrieving a specific category
// @Summary     Get category
// @Description Get a category and its ancestor chain, nearest first
// @Tags        categories
// @Produce     json
// @Security    SessionCookie
// @Param       id path int true "Category ID"
// @Success     200 {object} CategoryDetailResponse "Category"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id} [get]
func (h *CategoryHandler) GetCategoryByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	category, err := h.categoryService.GetCategoryByID(userID, categoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	ancestors, err := h.categoryService.Ancestors(userID, categoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	chain := slices.Collect(ancestors)
	if chain == nil {
		chain = []models.Category{}
	}

	c.JSON(http.StatusOK, gin.H{"category": category, "ancestors": chain})
}

// UpdateCategory handles updating a category
// @Summary     Update category
// @Description Rename, re-icon or move a category. Moving appends it to its new sibling group.
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    SessionCookie
// @Param       id      path int                   true "Category ID"
// @Param       request body UpdateCategoryRequest true "Fields to change"
// @Success     200 {object} CategoryResponse "Category updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     422 {object} ErrorResponse "Validation failed"
// @Router      /categories/{id} [put]
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateCategoryRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	input := services.UpdateCategoryInput{
		Name:        req.Name,
		Icon:        req.Icon,
		ClearParent: req.ClearParent,
	}
	if req.ParentID.Set {
		if req.ParentID.Value == nil {
			input.ClearParent = true
		} else {
			input.ParentID = req.ParentID.Value
		}
	}

	category, err := h.categoryService.UpdateCategory(userID, categoryID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, models.AuditUpdateCategory, models.ResourceCategory, category.ID, c.ClientIP(),
		map[string]interface{}{"name": category.Name, "parent_id": category.ParentID, "icon": category.Icon})

	c.JSON(http.StatusOK, gin.H{"category": category})
}

// UpdatePositions handles the bulk reorder of categories
// @Summary     Reorder categories
// @Description Zip ids with positions and store them in one transaction
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    SessionCookie
// @Param       request body ReorderCategoriesRequest true "IDs and their new positions"
// @Success     200 {object} CategoriesResponse "Categories after the reorder"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     422 {object} ErrorResponse "Validation failed"
// @Router      /categories/update_position [post]
func (h *CategoryHandler) UpdatePositions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ReorderCategoriesRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	ids, positions := req.Categories.IDs, req.Categories.Positions
	if err := h.categoryService.ReorderCategories(userID, ids, positions); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, models.AuditReorderCategory, models.ResourceCategory, 0, c.ClientIP(),
		map[string]interface{}{"ids": ids, "positions": positions})

	categories, err := h.categoryService.GetUserCategories(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// DeleteCategory handles deleting a category and everything under it
// @Summary     Delete category
// @Description Delete a category, its descendants and their expenses
// @Tags        categories
// @Security    SessionCookie
// @Param       id path int true "Category ID"
// @Success     204 "Category deleted"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.categoryService.DeleteCategory(userID, categoryID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, models.AuditDeleteCategory, models.ResourceCategory, categoryID, c.ClientIP(), nil)

	c.Status(http.StatusNoContent)
}
