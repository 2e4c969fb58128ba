package repository

import (
	"context"
	"time"

	"workorder-tracker/internal/domain"
)

// WorkorderRepository exposes persistence operations for Workorder aggregates.
type WorkorderRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, wo *domain.Workorder) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Workorder, error)
	GetByQRCode(ctx context.Context, qrcode string) (*domain.Workorder, error)
	// ListBefore returns up to limit workorders created strictly before the
	// given instant (all when before is nil), newest first.
	ListBefore(ctx context.Context, before *time.Time, limit int) ([]domain.Workorder, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Workorder, error)
	Update(ctx context.Context, id int64, patch domain.WorkorderPatch) (*domain.Workorder, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// CommentRepository manages comments attached to workorders.
type CommentRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, comment *domain.Comment) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Comment, error)
	ListByWorkorder(ctx context.Context, workorderID int64) ([]domain.Comment, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
