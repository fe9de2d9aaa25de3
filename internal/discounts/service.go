package discounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/dejobratic/petstore/internal/orders/ports"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateDiscountCommand struct {
	ProductID string
	Rate      decimal.Decimal
	StartDate time.Time
	EndDate   time.Time
}

type Result struct {
	Discount Discount `json:"discount"`
	Notified int      `json:"notified"`
}

type Service struct {
	repo     Repository
	notifier ports.Notifier
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time
}

func NewService(repo Repository, notifier ports.Notifier, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		newID:    func() string { return uuid.New().String() },
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateDiscount stores the discount and queues one email per customer who
// wishlisted the product. Notification problems never fail the call.
func (s *Service) CreateDiscount(ctx context.Context, cmd CreateDiscountCommand) (*Result, error) {
	if cmd.ProductID == "" {
		return nil, &domain.ValidationError{Field: "product_id", Reason: "is required"}
	}
	if err := validate(cmd.Rate, cmd.StartDate, cmd.EndDate); err != nil {
		return nil, err
	}

	product, err := s.repo.GetProduct(ctx, cmd.ProductID)
	if err != nil {
		return nil, classify("get product", err)
	}

	discount := Discount{
		ID:              s.newID(),
		ProductID:       product.ID,
		Rate:            cmd.Rate,
		DiscountedPrice: DiscountedPrice(product.Price, cmd.Rate),
		StartDate:       cmd.StartDate.UTC(),
		EndDate:         cmd.EndDate.UTC(),
		CreatedAt:       s.now(),
	}

	if err := s.repo.Create(ctx, discount); err != nil {
		return nil, classify("create discount", err)
	}

	s.logger.InfoContext(ctx, "discount created",
		"discount_id", discount.ID,
		"product_id", discount.ProductID,
		"rate", discount.Rate.String(),
	)

	emails, err := s.repo.WishlistEmails(ctx, product.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "wishlist lookup failed", "product_id", product.ID, "error", err)
		return &Result{Discount: discount}, nil
	}

	subject := fmt.Sprintf("%s is now %s%% off", product.Name, cmd.Rate.String())
	body := fmt.Sprintf("%s from your wishlist costs %s instead of %s between %s and %s.",
		product.Name,
		discount.DiscountedPrice.StringFixed(2),
		product.Price.StringFixed(2),
		discount.StartDate.Format(time.DateOnly),
		discount.EndDate.Format(time.DateOnly),
	)
	for _, email := range emails {
		s.notifier.Notify(ctx, email, subject, body)
	}

	return &Result{Discount: discount, Notified: len(emails)}, nil
}

func classify(op string, err error) error {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return err
	case errors.Is(err, ports.ErrTransient):
		return &domain.StorageError{Attempts: 1, Err: fmt.Errorf("%s: %w", op, err)}
	default:
		return fmt.Errorf("%w: %s: %w", domain.ErrUnexpected, op, err)
	}
}
