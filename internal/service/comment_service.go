package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"workorder-tracker/internal/domain"
	"workorder-tracker/internal/repository"
	"workorder-tracker/internal/storage"
	"workorder-tracker/internal/token"
)

// Photo is an optional image attached to a new comment.
type Photo struct {
	Body        io.Reader
	Filename    string
	ContentType string
}

type CommentInput struct {
	WorkorderID int64
	Text        string
	Photo       *Photo
}

// CommentService manages the comments attached to workorders.
type CommentService interface {
	ListByWorkorder(ctx context.Context, workorderID int64) ([]domain.Comment, error)
	Add(ctx context.Context, viewer *token.Claims, in CommentInput) (*domain.Comment, error)
	Delete(ctx context.Context, id int64) error
	OwnerOf(ctx context.Context, id int64) (int64, error)
}

type commentService struct {
	comments   repository.CommentRepository
	workorders repository.WorkorderRepository
	uploader   storage.Uploader
	log        logrus.FieldLogger
}

// NewCommentService builds the service. A nil uploader rejects comments carrying a photo.
func NewCommentService(comments repository.CommentRepository, workorders repository.WorkorderRepository, uploader storage.Uploader, log logrus.FieldLogger) CommentService {
	if log == nil {
		log = logrus.New()
	}
	return &commentService{
		comments:   comments,
		workorders: workorders,
		uploader:   uploader,
		log:        log.WithField("component", "comments"),
	}
}

func (s *commentService) ListByWorkorder(ctx context.Context, workorderID int64) ([]domain.Comment, error) {
	return s.comments.ListByWorkorder(ctx, workorderID)
}

// Add checks the workorder exists before uploading anything, then stores the comment.
func (s *commentService) Add(ctx context.Context, viewer *token.Claims, in CommentInput) (*domain.Comment, error) {
	if viewer == nil {
		return nil, domain.E(domain.KindUnauthenticated, "not authenticated as user", nil)
	}
	text := strings.TrimSpace(in.Text)
	if text == "" && in.Photo == nil {
		return nil, domain.E(domain.KindInvalidInput, "comment text or photo is required", nil)
	}

	if _, err := s.workorders.Get(ctx, in.WorkorderID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.E(domain.KindNotFound, "workorder does not exist", err)
		}
		return nil, err
	}

	comment := &domain.Comment{
		Text:        text,
		WorkorderID: in.WorkorderID,
		UserID:      viewer.UserID,
	}
	if in.Photo != nil {
		if s.uploader == nil {
			return nil, domain.E(domain.KindUpload, "photo uploads are not configured", nil)
		}
		res, err := s.uploader.Upload(ctx, in.Photo.Body, storage.UploadOptions{
			Filename:    in.Photo.Filename,
			ContentType: in.Photo.ContentType,
		})
		if err != nil {
			return nil, err
		}
		comment.Image = res.URL
	}

	if _, err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"comment_id": comment.ID, "workorder_id": comment.WorkorderID}).Debug("comment added")
	return comment, nil
}

func (s *commentService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.comments.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.E(domain.KindNotFound, "comment does not exist", nil)
	}
	return nil
}

func (s *commentService) OwnerOf(ctx context.Context, id int64) (int64, error) {
	comment, err := s.comments.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return comment.UserID, nil
}
