package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"fastclick/internal/dto"
	"fastclick/internal/model"
	"fastclick/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/ttacon/libphonenumber"
	"gorm.io/gorm"
)

var (
	ErrSellerNameRequired = errors.New("first and last name are required for a new seller")
	ErrInvalidPhone       = errors.New("phone number is not valid")
	ErrInvalidTransition  = errors.New("item cannot move to the requested status")
	ErrNotSeller          = errors.New("user is not a seller")
)

// InventoryService covers the deposit desk: registering units, releasing them
// for sale and returning unsold units to their sellers.
type InventoryService interface {
	Deposit(ctx context.Context, req dto.DepositRequest) (*dto.DepositResponse, error)
	MarkAvailable(ctx context.Context, id uuid.UUID) (*dto.InventoryItemResponse, error)
	Return(ctx context.Context, id uuid.UUID) (*dto.InventoryItemResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.InventoryItemResponse, error)
	List(ctx context.Context, filter dto.InventoryFilter) (*dto.InventoryListResponse, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]dto.InventoryItemResponse, error)
}

type inventoryService struct {
	gate        SessionGuard
	inventory   repository.InventoryRepository
	users       repository.UserRepository
	movements   repository.StockMovementRepository
	phoneRegion string
}

func NewInventoryService(
	gate SessionGuard,
	inventory repository.InventoryRepository,
	users repository.UserRepository,
	movements repository.StockMovementRepository,
	phoneRegion string,
) InventoryService {
	return &inventoryService{
		gate:        gate,
		inventory:   inventory,
		users:       users,
		movements:   movements,
		phoneRegion: phoneRegion,
	}
}

// ── Deposit ───────────────────────────────────────────────────────────────────
//   1. Session must be open
//   2. Resolve the seller by email, creating the account when unknown
//   3. Insert the item as pending (quantity 1) + deposit movement in one tx

func (s *inventoryService) Deposit(ctx context.Context, req dto.DepositRequest) (*dto.DepositResponse, error) {
	if !s.gate.IsOpen() {
		return nil, ErrSessionClosed
	}

	seller, created, err := s.resolveSeller(ctx, req)
	if err != nil {
		return nil, err
	}

	item := &model.InventoryItem{
		Name:                 strings.TrimSpace(req.Name),
		Price:                req.Price.Round(2),
		SellerID:             seller.ID,
		Quantity:             1,
		StockStatus:          model.StockPending,
		DepositFee:           req.DepositFee.Round(2),
		DepositFeeType:       req.DepositFeeType,
		CommissionPercentage: req.CommissionPercentage,
	}
	if id, ok := s.gate.CurrentSessionID(); ok {
		item.SessionID = &id
	}

	err = runTx(ctx, s.inventory.DB(), func(tx *gorm.DB) error {
		if err := s.inventory.CreateTx(tx, item); err != nil {
			return err
		}
		return s.movements.CreateTx(tx, &model.StockMovement{
			ItemID:      item.ID,
			Kind:        model.MovementDeposit,
			QuantityOld: 0,
			QuantityNew: item.Quantity,
			ReferenceID: item.SessionID,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("deposit item: %w", err)
	}
	item.Seller = seller

	log.Info().Str("item_id", item.ID.String()).Str("seller_id", seller.ID.String()).
		Bool("seller_created", created).Msg("item deposited")

	return &dto.DepositResponse{
		Item:          ItemToResponse(item),
		Seller:        UserToResponse(seller),
		SellerCreated: created,
	}, nil
}

func (s *inventoryService) resolveSeller(ctx context.Context, req dto.DepositRequest) (*model.User, bool, error) {
	email := normalizeEmail(req.SellerEmail)
	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		if existing.Role != model.RoleSeller {
			return nil, false, ErrNotSeller
		}
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	first := strings.TrimSpace(req.SellerFirstName)
	last := strings.TrimSpace(req.SellerLastName)
	if first == "" || last == "" {
		return nil, false, ErrSellerNameRequired
	}
	phone, err := NormalizePhone(req.SellerPhone, s.phoneRegion)
	if err != nil {
		return nil, false, err
	}

	seller := &model.User{
		Email:     email,
		FirstName: first,
		LastName:  last,
		Phone:     phone,
		Address:   strings.TrimSpace(req.SellerAddress),
		Role:      model.RoleSeller,
		Active:    true,
	}
	if err := s.users.Create(ctx, seller); err != nil {
		return nil, false, fmt.Errorf("create seller: %w", err)
	}
	return seller, true, nil
}

// NormalizePhone validates a phone number for region and returns it in E.164
// form. An empty number is accepted as-is.
func NormalizePhone(phone, region string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", nil
	}
	p, err := libphonenumber.Parse(phone, region)
	if err != nil {
		return "", ErrInvalidPhone
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", ErrInvalidPhone
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}

// ── Status transitions ────────────────────────────────────────────────────────

func (s *inventoryService) MarkAvailable(ctx context.Context, id uuid.UUID) (*dto.InventoryItemResponse, error) {
	return s.transition(ctx, id, model.MovementRelease, s.inventory.MarkAvailable)
}

func (s *inventoryService) Return(ctx context.Context, id uuid.UUID) (*dto.InventoryItemResponse, error) {
	return s.transition(ctx, id, model.MovementReturned, s.inventory.MarkReturned)
}

func (s *inventoryService) transition(ctx context.Context, id uuid.UUID, kind string, apply func(*gorm.DB, uuid.UUID) error) (*dto.InventoryItemResponse, error) {
	item, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	err = runTx(ctx, s.inventory.DB(), func(tx *gorm.DB) error {
		if err := apply(tx, id); err != nil {
			return err
		}
		return s.movements.CreateTx(tx, &model.StockMovement{
			ItemID:      id,
			Kind:        kind,
			QuantityOld: item.Quantity,
			QuantityNew: item.Quantity,
		})
	})
	if err != nil {
		if errors.Is(err, repository.ErrStockConflict) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	updated, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	log.Info().Str("item_id", id.String()).Str("kind", kind).Str("status", updated.StockStatus).Msg("item status changed")
	resp := ItemToResponse(updated)
	return &resp, nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *inventoryService) Get(ctx context.Context, id uuid.UUID) (*dto.InventoryItemResponse, error) {
	item, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ItemToResponse(item)
	return &resp, nil
}

func (s *inventoryService) List(ctx context.Context, filter dto.InventoryFilter) (*dto.InventoryListResponse, error) {
	repoFilter := repository.InventoryFilter{
		Name:   strings.TrimSpace(filter.Name),
		Status: filter.Status,
		Sort:   filter.Sort,
		Page:   filter.Page,
		Limit:  filter.Limit,
	}
	if filter.SellerID != "" {
		sid, err := uuid.Parse(filter.SellerID)
		if err != nil {
			return nil, fmt.Errorf("seller_id: %w", err)
		}
		repoFilter.SellerID = &sid
	}

	items, total, err := s.inventory.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	data := make([]dto.InventoryItemResponse, len(items))
	for i := range items {
		data[i] = ItemToResponse(&items[i])
	}
	totalPages := 0
	if filter.Limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(filter.Limit)))
	}
	return &dto.InventoryListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
	}, nil
}

func (s *inventoryService) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]dto.InventoryItemResponse, error) {
	items, err := s.inventory.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.InventoryItemResponse, len(items))
	for i := range items {
		resp[i] = ItemToResponse(&items[i])
	}
	return resp, nil
}

func (s *inventoryService) find(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	item, err := s.inventory.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func ItemToResponse(item *model.InventoryItem) dto.InventoryItemResponse {
	resp := dto.InventoryItemResponse{
		ID:                   item.ID.String(),
		Name:                 item.Name,
		Price:                item.Price.StringFixed(2),
		SellerID:             item.SellerID.String(),
		Quantity:             item.Quantity,
		StockStatus:          item.StockStatus,
		DepositFee:           item.DepositFee.StringFixed(2),
		DepositFeeType:       item.DepositFeeType,
		CommissionPercentage: item.CommissionPercentage.String(),
		CreatedAt:            item.CreatedAt,
	}
	if item.Seller != nil {
		resp.SellerName = item.Seller.FullName()
	}
	if item.SessionID != nil {
		sid := item.SessionID.String()
		resp.SessionID = &sid
	}
	return resp
}
