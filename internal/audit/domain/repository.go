package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
}

// Service records administrative actions. The actor and request id are read from ctx.
type Service interface {
	AuditLog(ctx context.Context, action, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, filter ListFilter) ([]*AuditLog, error)
}

var ErrInvalidAction = errors.New("invalid_audit_action")
