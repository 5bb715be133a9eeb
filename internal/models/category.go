package models

// Category is a node in a user's category forest. Siblings share
// (UserID, ParentID) and are ordered by Position.
type Category struct {
	Base
	UserID   uint   `gorm:"not null;index" json:"user_id"`
	ParentID *uint  `gorm:"index" json:"parent_id"`
	Name     string `gorm:"size:100;not null" json:"name"`
	Position int    `gorm:"not null;default:0" json:"position"`
	Icon     string `gorm:"size:64" json:"icon"`
}

// IsRoot reports whether the category has no parent.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}
