package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"expensetracker/internal/logger"
	"expensetracker/internal/models"
)

// auditService records a row per successful mutation.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an audit event. Failures are logged and swallowed; the
// mutation being audited has already committed.
func (s *auditService) Log(userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]any) {
	log := logger.Named("audit")

	changesJSON := ""
	if len(changes) > 0 {
		data, err := json.Marshal(changes)
		if err != nil {
			log.Errorw("failed to marshal audit changes", "error", err, "action", action)
			data = []byte("{}")
		}
		changesJSON = string(data)
	}

	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      changesJSON,
	}

	if err := s.db.Create(entry).Error; err != nil {
		log.Errorw("failed to write audit log",
			"error", err,
			"user_id", userID,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
}
