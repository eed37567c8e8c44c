package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"fastclick/internal/infra"
	"fastclick/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Sender delivers one message. Implemented by infra.Mailer.
type Sender interface {
	Send(to, subject, body string, attachments ...infra.Attachment) error
}

// PDFSource renders or fetches a receipt PDF. Implemented by
// service.ReceiptService.
type PDFSource interface {
	RenderPDF(ctx context.Context, id uuid.UUID) ([]byte, error)
}

type ReceiptLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Receipt, error)
}

// ReceiptEmailWorker mails a receipt PDF to the buyer through the breaker.
type ReceiptEmailWorker struct {
	receipts ReceiptLoader
	pdfs     PDFSource
	mailer   Sender
	breaker  *infra.CircuitBreaker
}

func NewReceiptEmailWorker(receipts ReceiptLoader, pdfs PDFSource, mailer Sender, breaker *infra.CircuitBreaker) *ReceiptEmailWorker {
	return &ReceiptEmailWorker{receipts: receipts, pdfs: pdfs, mailer: mailer, breaker: breaker}
}

// Handle is a worker.Handler for QueueReceiptEmail.
func (w *ReceiptEmailWorker) Handle(ctx context.Context, raw json.RawMessage) error {
	var payload ReceiptEmailPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("receipt_email: invalid payload dropped")
		return nil
	}
	id, err := uuid.Parse(payload.ReceiptID)
	if err != nil {
		log.Error().Str("receipt_id", payload.ReceiptID).Msg("receipt_email: invalid receipt id dropped")
		return nil
	}

	r, err := w.receipts.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load receipt: %w", err)
	}
	if r.Email == "" || r.Email == model.AnonymousBuyer || !strings.Contains(r.Email, "@") {
		log.Debug().Str("receipt_id", id.String()).Msg("receipt_email: no buyer email, skipping")
		return nil
	}

	pdf, err := w.pdfs.RenderPDF(ctx, id)
	if err != nil {
		return fmt.Errorf("render receipt pdf: %w", err)
	}

	subject := "Your Fastclick receipt"
	body := fmt.Sprintf("Thank you for your purchase.\n\nItems: %d\nTotal: %s\n",
		len(r.ItemsPurchased), r.Total.StringFixed(2))
	attachment := infra.Attachment{
		Name:        "receipt-" + id.String() + ".pdf",
		ContentType: "application/pdf",
		Data:        pdf,
	}

	err = w.breaker.Execute(func() error {
		return w.mailer.Send(r.Email, subject, body, attachment)
	})
	if err != nil {
		if errors.Is(err, infra.ErrBreakerOpen) {
			log.Warn().Str("receipt_id", id.String()).Msg("receipt_email: mail relay unavailable")
		}
		return err
	}
	log.Info().Str("receipt_id", id.String()).Str("to", r.Email).Msg("receipt_email: sent")
	return nil
}
