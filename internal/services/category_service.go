package services

import (
	"database/sql"
	"errors"
	"iter"
	"strings"

	"gorm.io/gorm"

	"expensetracker/internal/categorytree"
	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/models"
)

// categoryService handles the category hierarchy.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// seedCategory is one node of the forest every new account starts with.
type seedCategory struct {
	Name     string
	Icon     string
	Children []seedCategory
}

var defaultCategories = []seedCategory{
	{Name: "Grocery", Icon: "shopping_cart", Children: []seedCategory{
		{Name: "Walmart"}, {Name: "Aldi"}, {Name: "Costco"}, {Name: "Target"},
	}},
	{Name: "Utilities", Icon: "bolt", Children: []seedCategory{
		{Name: "Electricity"}, {Name: "Internet"}, {Name: "Phone"},
		{Name: "Water", Children: []seedCategory{
			{Name: "Tap"}, {Name: "Bottled"}, {Name: "Jar"},
		}},
	}},
}

// CreateCategory creates a category at the end of its sibling group.
func (s *categoryService) CreateCategory(userID uint, input CreateCategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(input.Name)

	var category *models.Category
	err := s.db.Transaction(func(tx *gorm.DB) error {
		fields := make(map[string][]string)
		if name == "" {
			fields["name"] = append(fields["name"], apperrors.MsgBlank)
		}

		if input.ParentID != nil {
			ok, err := ownsCategory(tx, userID, *input.ParentID)
			if err != nil {
				return err
			}
			if !ok {
				fields["parent_id"] = append(fields["parent_id"], apperrors.MsgParentInvalid)
			}
		}

		if name != "" && len(fields["parent_id"]) == 0 {
			taken, err := siblingNameTaken(tx, userID, input.ParentID, name, 0)
			if err != nil {
				return err
			}
			if taken {
				fields["name"] = append(fields["name"], apperrors.MsgTaken)
			}
		}

		if len(fields) > 0 {
			return apperrors.ValidationFields(fields)
		}

		position, err := nextPosition(tx, userID, input.ParentID)
		if err != nil {
			return err
		}

		category = &models.Category{
			UserID:   userID,
			ParentID: input.ParentID,
			Name:     name,
			Position: position,
			Icon:     input.Icon,
		}
		return insertCategory(tx, category)
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// GetUserCategories returns every category of the user ordered by parent,
// then position.
func (s *categoryService) GetUserCategories(userID uint) ([]models.Category, error) {
	return loadCategories(s.db, userID)
}

// GetCategoryByID retrieves a category by ID for a specific user
func (s *categoryService) GetCategoryByID(userID, categoryID uint) (*models.Category, error) {
	return findCategory(s.db, userID, categoryID)
}

// UpdateCategory applies a partial update. A failed update leaves the stored
// row untouched.
func (s *categoryService) UpdateCategory(userID, categoryID uint, input UpdateCategoryInput) (*models.Category, error) {
	var category *models.Category
	err := s.db.Transaction(func(tx *gorm.DB) error {
		current, err := findCategory(tx, userID, categoryID)
		if err != nil {
			return err
		}

		name := current.Name
		if input.Name != nil {
			name = strings.TrimSpace(*input.Name)
		}
		parentID := current.ParentID
		switch {
		case input.ClearParent:
			parentID = nil
		case input.ParentID != nil:
			parentID = input.ParentID
		}
		moved := !sameParent(current.ParentID, parentID)

		fields := make(map[string][]string)
		if name == "" {
			fields["name"] = append(fields["name"], apperrors.MsgBlank)
		}

		if parentID != nil && moved {
			flat, err := loadCategories(tx, userID)
			if err != nil {
				return err
			}
			ix := categorytree.NewIndex(flat)
			if _, ok := ix.Get(*parentID); !ok {
				fields["parent_id"] = append(fields["parent_id"], apperrors.MsgParentInvalid)
			} else if ix.CreatesCycle(categoryID, *parentID) {
				fields["parent_id"] = append(fields["parent_id"], apperrors.MsgParentCycle)
			}
		}

		if name != "" && len(fields["parent_id"]) == 0 && (moved || name != current.Name) {
			taken, err := siblingNameTaken(tx, userID, parentID, name, categoryID)
			if err != nil {
				return err
			}
			if taken {
				fields["name"] = append(fields["name"], apperrors.MsgTaken)
			}
		}

		if len(fields) > 0 {
			return apperrors.ValidationFields(fields)
		}

		updates := map[string]interface{}{"name": name}
		if input.Icon != nil {
			updates["icon"] = *input.Icon
		}
		if moved {
			position, err := nextPosition(tx, userID, parentID)
			if err != nil {
				return err
			}
			updates["parent_id"] = parentID
			updates["position"] = position
		}

		if err := tx.Model(current).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.Validation("name", apperrors.MsgTaken)
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		category, err = findCategory(tx, userID, categoryID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// ReorderCategories zips ids with positions and writes them in one
// transaction. Any id the user does not own fails the whole batch.
func (s *categoryService) ReorderCategories(userID uint, ids []uint, positions []int) error {
	if len(ids) != len(positions) {
		return apperrors.Validation("positions", apperrors.MsgPositionsLength)
	}
	if len(ids) == 0 {
		return nil
	}

	unique := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&models.Category{}).
			Where("user_id = ? AND id IN ?", userID, ids).
			Count(&owned).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if owned != int64(len(unique)) {
			return apperrors.ErrCategoryNotFound
		}

		for i, id := range ids {
			if err := tx.Model(&models.Category{}).
				Where("id = ? AND user_id = ?", id, userID).
				Update("position", positions[i]).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		return nil
	})
}

// DeleteCategory removes a category, its descendants and every expense filed
// under any of them.
func (s *categoryService) DeleteCategory(userID, categoryID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := findCategory(tx, userID, categoryID); err != nil {
			return err
		}

		flat, err := loadCategories(tx, userID)
		if err != nil {
			return err
		}
		ids := categorytree.NewIndex(flat).DescendantIDs(categoryID)

		if err := tx.Where("category_id IN ?", ids).Delete(&models.Expense{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Where("user_id = ? AND id IN ?", userID, ids).Delete(&models.Category{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// Ancestors returns a lazy walk from the category's parent up to its root.
func (s *categoryService) Ancestors(userID, categoryID uint) (iter.Seq[models.Category], error) {
	ix, err := s.index(userID, categoryID)
	if err != nil {
		return nil, err
	}
	return ix.Ancestors(categoryID), nil
}

// Descendants returns every transitive child of the category, breadth first.
func (s *categoryService) Descendants(userID, categoryID uint) ([]models.Category, error) {
	ix, err := s.index(userID, categoryID)
	if err != nil {
		return nil, err
	}
	return ix.Descendants(categoryID), nil
}

// GetCategoryTree returns the user's categories as a nested forest.
func (s *categoryService) GetCategoryTree(userID uint) ([]*categorytree.Node, error) {
	flat, err := loadCategories(s.db, userID)
	if err != nil {
		return nil, err
	}
	return categorytree.BuildTree(flat, nil), nil
}

// GetCategoryOptions returns the indented parent-selector options.
func (s *categoryService) GetCategoryOptions(userID uint) ([]categorytree.Option, error) {
	flat, err := loadCategories(s.db, userID)
	if err != nil {
		return nil, err
	}
	return categorytree.BuildIndentedOptions(flat, nil, 0), nil
}

// SeedDefaultCategories creates the default forest for a user.
func (s *categoryService) SeedDefaultCategories(userID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return seedDefaultCategories(tx, userID)
	})
}

// index loads the user's forest and checks that categoryID belongs to it.
func (s *categoryService) index(userID, categoryID uint) (*categorytree.Index, error) {
	flat, err := loadCategories(s.db, userID)
	if err != nil {
		return nil, err
	}
	ix := categorytree.NewIndex(flat)
	if _, ok := ix.Get(categoryID); !ok {
		return nil, apperrors.ErrCategoryNotFound
	}
	return ix, nil
}

func seedDefaultCategories(tx *gorm.DB, userID uint) error {
	type pending struct {
		parentID *uint
		nodes    []seedCategory
	}

	queue := []pending{{nodes: defaultCategories}}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for i, node := range p.nodes {
			c := &models.Category{
				UserID:   userID,
				ParentID: p.parentID,
				Name:     node.Name,
				Icon:     node.Icon,
				Position: i,
			}
			if err := insertCategory(tx, c); err != nil {
				return err
			}
			if len(node.Children) > 0 {
				id := c.ID
				queue = append(queue, pending{parentID: &id, nodes: node.Children})
			}
		}
	}
	return nil
}

func insertCategory(tx *gorm.DB, c *models.Category) error {
	if err := tx.Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Validation("name", apperrors.MsgTaken)
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func loadCategories(db *gorm.DB, userID uint) ([]models.Category, error) {
	var categories []models.Category
	if err := db.Where("user_id = ?", userID).
		Order("parent_id").Order("position").Order("id").
		Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

func findCategory(db *gorm.DB, userID, categoryID uint) (*models.Category, error) {
	var category models.Category
	if err := db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

func ownsCategory(db *gorm.DB, userID, categoryID uint) (bool, error) {
	var count int64
	if err := db.Model(&models.Category{}).
		Where("id = ? AND user_id = ?", categoryID, userID).
		Count(&count).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count > 0, nil
}

// siblings scopes a query to the sibling group under parentID.
func siblings(db *gorm.DB, userID uint, parentID *uint) *gorm.DB {
	q := db.Model(&models.Category{}).Where("user_id = ?", userID)
	if parentID == nil {
		return q.Where("parent_id IS NULL")
	}
	return q.Where("parent_id = ?", *parentID)
}

func siblingNameTaken(db *gorm.DB, userID uint, parentID *uint, name string, excludeID uint) (bool, error) {
	q := siblings(db, userID, parentID).Where("name = ?", name)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count > 0, nil
}

func nextPosition(db *gorm.DB, userID uint, parentID *uint) (int, error) {
	var maxPos sql.NullInt64
	if err := siblings(db, userID, parentID).Select("MAX(position)").Row().Scan(&maxPos); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !maxPos.Valid {
		return 0, nil
	}
	return int(maxPos.Int64) + 1, nil
}

func sameParent(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
