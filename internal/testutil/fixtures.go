package testutil

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	"expensetracker/internal/models"
	"expensetracker/internal/money"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the plaintext password of every fixture user.
const TestPassword = "password123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCategory creates a category under parentID (nil for a root),
// appended after its existing siblings.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID uint, name string, parentID *uint) *models.Category {
	t.Helper()

	var maxPos sql.NullInt64
	q := db.Model(&models.Category{}).Where("user_id = ?", userID)
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}
	if err := q.Select("MAX(position)").Row().Scan(&maxPos); err != nil {
		t.Fatalf("failed to read sibling positions: %v", err)
	}
	position := 0
	if maxPos.Valid {
		position = int(maxPos.Int64) + 1
	}

	category := &models.Category{
		UserID:   userID,
		ParentID: parentID,
		Name:     name,
		Position: position,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestExpense creates an expense of amount cents on the given date.
func CreateTestExpense(t *testing.T, db *gorm.DB, userID, categoryID uint, amount int64, date models.Date) *models.Expense {
	t.Helper()

	expense := &models.Expense{
		UserID:      userID,
		CategoryID:  categoryID,
		Amount:      money.Amount(amount),
		Description: fmt.Sprintf("Test Expense %d", nextID()),
		Date:        date,
	}
	if err := db.Create(expense).Error; err != nil {
		t.Fatalf("failed to create test expense: %v", err)
	}
	return expense
}

// UintPtr returns a pointer to v.
func UintPtr(v uint) *uint {
	return &v
}
