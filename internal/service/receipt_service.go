package service

import (
	"context"
	"errors"

	"fastclick/internal/dto"
	"fastclick/internal/infra"
	"fastclick/internal/model"
	"fastclick/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var ErrReceiptNotFound = errors.New("receipt not found")

type ReceiptService interface {
	Get(ctx context.Context, id uuid.UUID) (*dto.ReceiptResponse, error)
	ListMine(ctx context.Context, email string) ([]dto.ReceiptResponse, error)
	// RenderPDF returns the stored PDF, rendering and storing it on first use.
	RenderPDF(ctx context.Context, id uuid.UUID) ([]byte, error)
}

type receiptService struct {
	repo  repository.ReceiptRepository
	store infra.ObjectStore
}

// NewReceiptService accepts a nil store, in which case PDFs are rendered on
// every call.
func NewReceiptService(repo repository.ReceiptRepository, store infra.ObjectStore) ReceiptService {
	return &receiptService{repo: repo, store: store}
}

// ReceiptObjectName is where a receipt's PDF lives in the object store.
func ReceiptObjectName(id uuid.UUID) string {
	return "receipts/" + id.String() + ".pdf"
}

func (s *receiptService) Get(ctx context.Context, id uuid.UUID) (*dto.ReceiptResponse, error) {
	r, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ReceiptToResponse(r)
	return &resp, nil
}

func (s *receiptService) ListMine(ctx context.Context, email string) ([]dto.ReceiptResponse, error) {
	receipts, err := s.repo.ListByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	resp := make([]dto.ReceiptResponse, len(receipts))
	for i := range receipts {
		resp[i] = ReceiptToResponse(&receipts[i])
	}
	return resp, nil
}

func (s *receiptService) RenderPDF(ctx context.Context, id uuid.UUID) ([]byte, error) {
	name := ReceiptObjectName(id)
	if s.store != nil {
		if data, err := s.store.Get(ctx, name); err == nil {
			return data, nil
		}
	}

	r, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := infra.RenderReceiptPDF(r)
	if err != nil {
		return nil, err
	}
	if s.store != nil {
		if err := s.store.Put(ctx, name, data, "application/pdf"); err != nil {
			log.Warn().Err(err).Str("receipt_id", id.String()).Msg("receipts: failed to store pdf")
		}
	}
	return data, nil
}

func (s *receiptService) find(ctx context.Context, id uuid.UUID) (*model.Receipt, error) {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReceiptNotFound
		}
		return nil, err
	}
	return r, nil
}

func ReceiptToResponse(r *model.Receipt) dto.ReceiptResponse {
	lines := make([]dto.ReceiptLineResponse, len(r.ItemsPurchased))
	for i, l := range r.ItemsPurchased {
		lines[i] = dto.ReceiptLineResponse{ID: l.ID, Name: l.Name, Price: l.Price}
	}
	return dto.ReceiptResponse{
		ID:             r.ID.String(),
		CheckoutID:     r.CheckoutID.String(),
		Email:          r.Email,
		SessionID:      r.SessionID.String(),
		ItemsPurchased: lines,
		Total:          r.Total.StringFixed(2),
		SaleDate:       r.SaleDate,
	}
}
