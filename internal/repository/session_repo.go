package repository

import (
	"context"
	"time"

	"fastclick/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionRepository interface {
	Create(ctx context.Context, s *model.Session) error
	// FindOpen returns the open session or gorm.ErrRecordNotFound.
	FindOpen(ctx context.Context) (*model.Session, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	List(ctx context.Context, limit int) ([]model.Session, error)
	// Close marks the session closed if it is still open. Returns false when
	// another writer closed it first.
	Close(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

type sessionRepo struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &sessionRepo{db: db} }

func (r *sessionRepo) Create(ctx context.Context, s *model.Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *sessionRepo) FindOpen(ctx context.Context) (*model.Session, error) {
	var s model.Session
	err := r.db.WithContext(ctx).Where("status = ?", model.SessionOpen).Order("starts_at DESC").First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	var s model.Session
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) List(ctx context.Context, limit int) ([]model.Session, error) {
	var sessions []model.Session
	q := r.db.WithContext(ctx).Order("starts_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) Close(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Session{}).
		Where("id = ? AND status = ?", id, model.SessionOpen).
		Updates(map[string]interface{}{"status": model.SessionClosed, "closed_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
