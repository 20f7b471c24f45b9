package services

import (
	"context"
	"encoding/json"
	"time"

	"unionpass-api/internal/adapters/persistence/models"
	"unionpass-api/internal/adapters/persistence/repositories"
	"unionpass-api/internal/pkg/clock"
	"unionpass-api/internal/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Audit actions
const (
	AuditUserCreated        = "USER_CREATED"
	AuditRoleUpgrade        = "ROLE_UPGRADE"
	AuditRoleUpgradeCleared = "ROLE_UPGRADE_CLEARED"
	AuditChargeProcessed    = "TRANSACTION_PROCESSED"
	AuditCompanyAssigned    = "COMPANY_ASSOCIATION_SET"
	AuditCompanyRemoved     = "COMPANY_ASSOCIATION_REMOVED"
	AuditVenueAssigned      = "VENUE_ASSOCIATION_SET"
	AuditVenueRemoved       = "VENUE_ASSOCIATION_REMOVED"
)

const auditWriteTimeout = 5 * time.Second

// AuditEntry is one privileged action to record
type AuditEntry struct {
	Action    string
	UserID    string
	Details   map[string]any
	IPAddress string
	UserAgent string
}

// AuditService appends audit entries to the log and the audit_logs table.
// Record never fails the caller; write errors are logged and counted.
type AuditService struct {
	repo    repositories.AuditLogRepository
	clock   clock.Clock
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewAuditService(repo repositories.AuditLogRepository, c clock.Clock, m *metrics.Metrics, log *zap.Logger) *AuditService {
	if c == nil {
		c = clock.New()
	}
	return &AuditService{
		repo:    repo,
		clock:   c,
		metrics: m,
		log:     log.Named("audit.service"),
	}
}

// Record writes the entry. The caller's cancellation does not abort the write.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) {
	now := s.clock.Now().UTC()

	details := "{}"
	if len(entry.Details) > 0 {
		raw, err := json.Marshal(entry.Details)
		if err != nil {
			s.log.Warn("audit details not serializable", zap.String("action", entry.Action), zap.Error(err))
		} else {
			details = string(raw)
		}
	}

	s.log.Info("AUDIT",
		zap.Time("timestamp", now),
		zap.String("action", entry.Action),
		zap.String("user_id", entry.UserID),
		zap.Any("details", entry.Details),
	)

	if s.repo == nil {
		return
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	err := s.repo.Create(writeCtx, &models.AuditLog{
		ID:        uuid.NewString(),
		Action:    entry.Action,
		UserID:    entry.UserID,
		Details:   details,
		IPAddress: entry.IPAddress,
		UserAgent: entry.UserAgent,
		CreatedAt: now,
	})
	s.metrics.ObserveAudit(err == nil)
	if err != nil {
		s.log.Warn("audit write failed", zap.String("action", entry.Action), zap.String("user_id", entry.UserID), zap.Error(err))
	}
}

// RequestMeta carries the caller's network identity into audit entries
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Entry builds an audit entry stamped with the request metadata
func (m RequestMeta) Entry(action, userID string, details map[string]any) AuditEntry {
	return AuditEntry{
		Action:    action,
		UserID:    userID,
		Details:   details,
		IPAddress: m.IPAddress,
		UserAgent: m.UserAgent,
	}
}
