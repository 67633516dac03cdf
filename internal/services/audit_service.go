package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/synesthesie/verification/internal/models"
	"gorm.io/gorm"
)

const (
	AuditActionResendCode = "resend_security_code"
	AuditActionDeleteCode = "delete_security_code"

	auditTargetSecurityCode = "security_code"
)

// suspicious when one admin deletes this many codes within deleteBurstWindow
const (
	deleteBurstThreshold = 20
	deleteBurstWindow    = 5 * time.Minute
)

// AuditEntry describes one admin action on a security code.
type AuditEntry struct {
	AdminSubject string
	Action       string
	CodeID       int64
	Details      map[string]interface{}
	IPAddress    string
	UserAgent    string
}

type AuditService struct {
	db    *gorm.DB
	clock Clock
}

func NewAuditService(db *gorm.DB, clock Clock) *AuditService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &AuditService{db: db, clock: clock}
}

// LogAction stores entry in the audit log
func (s *AuditService) LogAction(ctx context.Context, entry AuditEntry) error {
	detailsJSON := ""
	if entry.Details != nil {
		if b, err := json.Marshal(entry.Details); err == nil {
			detailsJSON = string(b)
		}
	}

	record := &models.AuditLog{
		AdminSubject: entry.AdminSubject,
		Action:       entry.Action,
		TargetType:   auditTargetSecurityCode,
		TargetID:     entry.CodeID,
		Details:      detailsJSON,
		IPAddress:    entry.IPAddress,
		UserAgent:    entry.UserAgent,
		CreatedAt:    s.clock.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return storageError("audit", err)
	}

	if entry.Action == AuditActionDeleteCode {
		s.checkDeleteBurst(ctx, entry.AdminSubject)
	}
	return nil
}

func (s *AuditService) checkDeleteBurst(ctx context.Context, subject string) {
	count, err := s.GetActionCount(ctx, subject, AuditActionDeleteCode, s.clock.Now().Add(-deleteBurstWindow))
	if err != nil {
		log.Warn().Err(err).Msg("audit burst check failed")
		return
	}
	if count >= deleteBurstThreshold {
		log.Warn().
			Str("admin", subject).
			Int64("deletions", count).
			Dur("window", deleteBurstWindow).
			Msg("suspicious admin activity: many security codes deleted")
	}
}

// GetRecentActions pages through the audit log, newest first
func (s *AuditService) GetRecentActions(ctx context.Context, page, limit int, subject, action string) ([]models.AuditLog, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if subject != "" {
		query = query.Where("admin_subject = ?", subject)
	}
	if action != "" {
		query = query.Where("action = ?", action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storageError("audit count", err)
	}

	var logs []models.AuditLog
	offset := (page - 1) * limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, storageError("audit list", err)
	}
	return logs, total, nil
}

// GetActionCount counts actions of subject after since
func (s *AuditService) GetActionCount(ctx context.Context, subject, action string, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.AuditLog{}).
		Where("admin_subject = ? AND action = ? AND created_at > ?", subject, action, since.UTC()).
		Count(&count).Error
	if err != nil {
		return 0, storageError("audit count", err)
	}
	return count, nil
}
