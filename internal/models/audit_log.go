package models

// Audit actions recorded after successful mutations.
const (
	AuditCreateCategory  = "CREATE_CATEGORY"
	AuditUpdateCategory  = "UPDATE_CATEGORY"
	AuditReorderCategory = "REORDER_CATEGORIES"
	AuditDeleteCategory  = "DELETE_CATEGORY"
	AuditCreateExpense   = "CREATE_EXPENSE"
	AuditUpdateExpense   = "UPDATE_EXPENSE"
	AuditDeleteExpense   = "DELETE_EXPENSE"
	AuditSignup          = "SIGNUP"
	AuditLogin           = "LOGIN"
	AuditLogout          = "LOGOUT"
	AuditPasswordReset   = "PASSWORD_RESET"
)

// AuditLog records user mutations for later inspection.
type AuditLog struct {
	Base
	UserID       uint   `gorm:"not null;index" json:"user_id"`
	Action       string `gorm:"not null" json:"action"`
	ResourceType string `gorm:"not null" json:"resource_type"`
	ResourceID   uint   `json:"resource_id"`
	IPAddress    string `json:"ip_address"`
	Changes      string `json:"changes,omitempty"`
}

// Audited resource types.
const (
	ResourceCategory = "category"
	ResourceExpense  = "expense"
	ResourceUser     = "user"
	ResourceSession  = "session"
)
