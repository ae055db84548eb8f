package services

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"fintrack/internal/logger"
	"fintrack/internal/models"
)

const historyLimit = 100

// auditService keeps the trail of money-moving operations and batch runs.
type auditService struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db, log: logger.Named("audit")}
}

// Log records an event. An empty userID marks a system event such as a batch
// run; those are echoed to the log as well. A failed write never reaches the caller.
func (s *auditService) Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{}) {
	entry := &models.AuditLog{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      s.encodeChanges(action, changes),
	}
	if userID != "" {
		entry.UserID = &userID
	} else {
		s.log.Infow("system event", "action", action, "resource_type", resourceType, "resource_id", resourceID)
	}

	if err := s.db.Create(entry).Error; err != nil {
		s.log.Errorw("failed to write audit entry",
			"error", err,
			"user_id", userID,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
}

// History returns the user's events on one resource, newest first.
func (s *auditService) History(userID, resourceType, resourceID string) ([]AuditEntry, error) {
	var rows []models.AuditLog
	err := s.db.
		Where("user_id = ? AND resource_type = ? AND resource_id = ?", userID, resourceType, resourceID).
		Order("created_at DESC").
		Limit(historyLimit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]AuditEntry, 0, len(rows))
	for _, row := range rows {
		entry := AuditEntry{Action: row.Action, CreatedAt: row.CreatedAt}
		if row.Changes != "" {
			if err := json.Unmarshal([]byte(row.Changes), &entry.Changes); err != nil {
				s.log.Warnw("unreadable audit changes", "id", row.ID, "error", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// encodeChanges writes amounts the way the API renders them and dates as
// YYYY-MM-DD.
func (s *auditService) encodeChanges(action string, changes map[string]interface{}) string {
	if len(changes) == 0 {
		return ""
	}

	normalized := make(map[string]interface{}, len(changes))
	for k, v := range changes {
		switch v := v.(type) {
		case decimal.Decimal:
			normalized[k] = v.String()
		case *decimal.Decimal:
			if v != nil {
				normalized[k] = v.String()
			}
		case time.Time:
			normalized[k] = v.Format(time.DateOnly)
		default:
			normalized[k] = v
		}
	}

	data, err := json.Marshal(normalized)
	if err != nil {
		s.log.Errorw("failed to encode audit changes", "error", err, "action", action)
		return "{}"
	}
	return string(data)
}
