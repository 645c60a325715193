package service

import (
	"context"
	"encoding/json"
	"log"

	"commerce-backoffice/internal/model"
	"commerce-backoffice/internal/repository"

	"gorm.io/datatypes"
)

// AuditService is the compliance appender. Appends are best-effort: a
// failure goes to the operational log and never blocks or rolls back the
// business transition it describes.
type AuditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Entry is the caller-facing shape; Changes is marshalled to the structured
// JSON payload of the stored row.
type Entry struct {
	Actor        string
	Action       string
	ResourceType string
	ResourceID   string
	Changes      map[string]interface{}
	IP           string
	UserAgent    string
}

func (s *AuditService) Append(ctx context.Context, e Entry) {
	var changes datatypes.JSON
	if e.Changes != nil {
		raw, err := json.Marshal(e.Changes)
		if err != nil {
			log.Printf("audit: marshal changes for %s %s/%s: %v", e.Action, e.ResourceType, e.ResourceID, err)
		} else {
			changes = datatypes.JSON(raw)
		}
	}

	actor := e.Actor
	if actor == "" {
		actor = model.SystemActor
	}

	err := s.repo.Append(ctx, &model.AuditLogEntry{
		Actor:        actor,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Changes:      changes,
		IP:           e.IP,
		UserAgent:    e.UserAgent,
	})
	if err != nil {
		// Never propagate: audit durability is layered on top of, not
		// gating, the transition.
		log.Printf("audit: append %s %s/%s failed: %v", e.Action, e.ResourceType, e.ResourceID, err)
	}
}

func (s *AuditService) Query(ctx context.Context, filter repository.AuditFilter) ([]*model.AuditLogEntry, error) {
	return s.repo.Query(ctx, filter)
}
