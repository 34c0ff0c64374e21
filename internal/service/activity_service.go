package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/innotech/lms-api/internal/models"
	"github.com/innotech/lms-api/internal/repository"
)

// ActivityEntry captures the details required to persist an audit entry.
type ActivityEntry struct {
	ActorID    uint
	ActorRole  models.Role
	Action     string
	EntityType string
	EntityID   *uint
	Metadata   map[string]interface{}
}

// ActivityRecorder defines behaviour for recording audit events. Recording
// must never fail the triggering operation; implementations log and move on.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry)
}

type activityService struct {
	repo        repository.ActivityLogRepository
	nats        *nats.Conn
	subjectBase string
	logger      zerolog.Logger
	now         func() time.Time
}

// NewActivityService constructs the audit trail recorder. The NATS
// connection is optional; without it events are only persisted.
func NewActivityService(repo repository.ActivityLogRepository, natsConn *nats.Conn, subjectBase string, logger zerolog.Logger) ActivityRecorder {
	if subjectBase == "" {
		subjectBase = "lms.events"
	}

	return &activityService{
		repo:        repo,
		nats:        natsConn,
		subjectBase: subjectBase,
		logger:      logger.With().Str("component", "activity_service").Logger(),
		now:         time.Now,
	}
}

type activityEvent struct {
	ActorID    uint                   `json:"actor_id"`
	ActorRole  models.Role            `json:"actor_role"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   *uint                  `json:"entity_id"`
	Metadata   map[string]interface{} `json:"metadata"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) {
	action := strings.ToLower(strings.TrimSpace(entry.Action))
	if action == "" {
		s.logger.Warn().Msg("activity entry without action dropped")
		return
	}

	model := models.ActivityLog{
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		Action:     action,
		EntityType: strings.ToLower(strings.TrimSpace(entry.EntityType)),
		EntityID:   entry.EntityID,
		Metadata:   toJSONMap(entry.Metadata),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("failed to persist activity log")
	}

	s.publish(entry, action)
}

func (s *activityService) publish(entry ActivityEntry, action string) {
	if s.nats == nil {
		return
	}

	event := activityEvent{
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		Action:     action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Metadata:   entry.Metadata,
		OccurredAt: s.now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode activity event")
		return
	}

	subject := fmt.Sprintf("%s.%s", s.subjectBase, action)
	if err := s.nats.Publish(subject, payload); err != nil {
		s.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish activity event")
	}
}

func toJSONMap(metadata map[string]interface{}) datatypes.JSONMap {
	if metadata == nil {
		return datatypes.JSONMap{}
	}

	converted := datatypes.JSONMap{}
	for key, value := range metadata {
		converted[key] = value
	}
	return converted
}
