package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pqasys/langcsebkg5-sub008/internal/audit/domain"
	"github.com/pqasys/langcsebkg5-sub008/internal/clock"
	obsctx "github.com/pqasys/langcsebkg5-sub008/internal/observability/context"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) AuditLog(ctx context.Context, action, targetType string, targetID *string, metadata map[string]any) error {
	action = strings.TrimSpace(action)
	targetType = strings.TrimSpace(targetType)
	if action == "" || targetType == "" {
		return domain.ErrInvalidAction
	}

	entry := &domain.AuditLog{
		ID:         s.genID.Generate(),
		ActorType:  string(domain.ActorTypeSystem),
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   datatypes.JSONMap{},
		CreatedAt:  s.now(),
	}
	if actor := obsctx.ActorFromContext(ctx); actor != "" {
		entry.ActorType = string(domain.ActorTypeUser)
		entry.ActorID = &actor
	}
	if requestID := obsctx.RequestIDFromContext(ctx); requestID != "" {
		entry.RequestID = &requestID
	}
	for key, value := range metadata {
		if key == "" {
			continue
		}
		entry.Metadata[key] = value
	}

	if err := s.repo.Insert(ctx, s.db, entry); err != nil {
		s.log.Error("failed to write audit log",
			zap.String("action", action),
			zap.String("target_type", targetType),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]*domain.AuditLog, error) {
	return s.repo.List(ctx, s.db, filter)
}

func (s *Service) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now()
}
