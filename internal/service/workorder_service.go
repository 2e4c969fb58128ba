package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"workorder-tracker/internal/domain"
	"workorder-tracker/internal/events"
	"workorder-tracker/internal/pagination"
	"workorder-tracker/internal/repository"
	"workorder-tracker/internal/token"
)

// Publisher is the write side of the notification bus.
type Publisher interface {
	Publish(kind events.Kind, payload any)
}

type WorkorderInput struct {
	QRCode   string
	Title    string
	Detail   string
	Priority int
}

// WorkorderService coordinates workorder operations backed by repositories.
type WorkorderService interface {
	List(ctx context.Context, cursor string, limit int) (pagination.Page[domain.Workorder], error)
	Get(ctx context.Context, id int64) (*domain.Workorder, error)
	GetByQRCode(ctx context.Context, qrcode string) (*domain.Workorder, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Workorder, error)
	Create(ctx context.Context, viewer *token.Claims, in WorkorderInput) (*domain.Workorder, error)
	Edit(ctx context.Context, id int64, patch domain.WorkorderPatch) (*domain.Workorder, error)
	Delete(ctx context.Context, id int64) error
	// OwnerOf resolves the owning user id; it backs the ownership guard.
	OwnerOf(ctx context.Context, id int64) (int64, error)
}

type workorderService struct {
	workorders repository.WorkorderRepository
	publisher  Publisher
	log        logrus.FieldLogger
}

func NewWorkorderService(workorders repository.WorkorderRepository, publisher Publisher, log logrus.FieldLogger) WorkorderService {
	if log == nil {
		log = logrus.New()
	}
	return &workorderService{
		workorders: workorders,
		publisher:  publisher,
		log:        log.WithField("component", "workorders"),
	}
}

func (s *workorderService) List(ctx context.Context, cursor string, limit int) (pagination.Page[domain.Workorder], error) {
	q, err := pagination.ParseQuery(cursor, limit)
	if err != nil {
		return pagination.Page[domain.Workorder]{}, err
	}
	items, err := s.workorders.ListBefore(ctx, q.Before, q.Fetch())
	if err != nil {
		return pagination.Page[domain.Workorder]{}, err
	}
	return pagination.Paginate(items, q.Limit, func(w domain.Workorder) time.Time { return w.CreatedAt }), nil
}

func (s *workorderService) Get(ctx context.Context, id int64) (*domain.Workorder, error) {
	return s.workorders.Get(ctx, id)
}

func (s *workorderService) GetByQRCode(ctx context.Context, qrcode string) (*domain.Workorder, error) {
	qrcode = strings.TrimSpace(qrcode)
	if qrcode == "" {
		return nil, domain.E(domain.KindInvalidInput, "qrcode is required", nil)
	}
	return s.workorders.GetByQRCode(ctx, qrcode)
}

func (s *workorderService) ListByUser(ctx context.Context, userID int64) ([]domain.Workorder, error) {
	return s.workorders.ListByUser(ctx, userID)
}

// Create stores the workorder and announces it. Notification never fails the call.
func (s *workorderService) Create(ctx context.Context, viewer *token.Claims, in WorkorderInput) (*domain.Workorder, error) {
	if viewer == nil {
		return nil, domain.E(domain.KindUnauthenticated, "not authenticated as user", nil)
	}
	qrcode := strings.TrimSpace(in.QRCode)
	if qrcode == "" {
		return nil, domain.E(domain.KindInvalidInput, "qrcode is required", nil)
	}

	wo := &domain.Workorder{
		QRCode:   qrcode,
		Title:    strings.TrimSpace(in.Title),
		Detail:   in.Detail,
		Priority: in.Priority,
		Status:   domain.WorkorderStatusOpen,
		UserID:   viewer.UserID,
	}
	if _, err := s.workorders.Create(ctx, wo); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		s.publisher.Publish(events.WorkorderCreated, *wo)
	}
	s.log.WithFields(logrus.Fields{"workorder_id": wo.ID, "user_id": wo.UserID}).Info("workorder created")
	return wo, nil
}

func (s *workorderService) Edit(ctx context.Context, id int64, patch domain.WorkorderPatch) (*domain.Workorder, error) {
	if patch.QRCode != nil && strings.TrimSpace(*patch.QRCode) == "" {
		return nil, domain.E(domain.KindInvalidInput, "qrcode cannot be empty", nil)
	}
	if patch.Status != nil {
		switch *patch.Status {
		case domain.WorkorderStatusOpen, domain.WorkorderStatusInProgress, domain.WorkorderStatusClosed:
		default:
			return nil, domain.E(domain.KindInvalidInput, "unknown workorder status", nil)
		}
	}
	return s.workorders.Update(ctx, id, patch)
}

func (s *workorderService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.workorders.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.E(domain.KindNotFound, "workorder not found", nil)
	}
	return nil
}

func (s *workorderService) OwnerOf(ctx context.Context, id int64) (int64, error) {
	wo, err := s.workorders.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return wo.UserID, nil
}
