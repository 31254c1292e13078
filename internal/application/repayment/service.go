// Package repayment applies harvest-sale payments to financings and serves
// the payment ledger.
package repayment

import (
	"bytes"
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/agrocredit/backend/internal/application/txscope"
	"github.com/agrocredit/backend/internal/domain/financing"
	"github.com/agrocredit/backend/internal/domain/identity"
	"github.com/agrocredit/backend/internal/domain/kpi"
	"github.com/agrocredit/backend/internal/domain/shared"
	"github.com/agrocredit/backend/internal/infrastructure/telemetry"
)

// LedgerWriter renders a ledger export
type LedgerWriter interface {
	Write(out io.Writer, payments []financing.Payment, totals kpi.Totals) error
	ContentType() string
	FileExtension() string
}

// ObjectUploader archives rendered exports and links to them
type ObjectUploader interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
	DownloadURL(ctx context.Context, key string) (string, time.Time, error)
}

// RetryConfig bounds how often a payment is retried after a version conflict
type RetryConfig struct {
	MaxRetries int
	Backoff    time.Duration
}

// Service registers payments and reads the ledger
type Service struct {
	scope           txscope.TransactionScope
	payments        financing.PaymentRepository
	retry           RetryConfig
	writer          LedgerWriter
	uploader        ObjectUploader
	logger          *zap.Logger
	businessMetrics *telemetry.BusinessMetrics
	now             func() time.Time
}

// Option configures optional Service collaborators
type Option func(*Service)

// WithLedgerWriter enables ledger exports
func WithLedgerWriter(w LedgerWriter) Option {
	return func(s *Service) {
		s.writer = w
	}
}

// WithUploader stores every export in object storage
func WithUploader(u ObjectUploader) Option {
	return func(s *Service) {
		s.uploader = u
	}
}

// NewService creates a new repayment Service
func NewService(
	scope txscope.TransactionScope,
	payments financing.PaymentRepository,
	retry RetryConfig,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	if retry.MaxRetries < 0 {
		retry.MaxRetries = 0
	}
	s := &Service{
		scope:    scope,
		payments: payments,
		retry:    retry,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetBusinessMetrics sets the business metrics collector
func (s *Service) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// RegisterPayment applies a harvest sale to a financing.
//
// The ledger insert, the balance update and the outbox entries commit in one
// transaction. A version conflict on the balance update retries the whole
// transaction up to MaxRetries times; business-rule errors are returned at
// once.
func (s *Service) RegisterPayment(ctx context.Context, actor identity.Actor, req RegisterPaymentRequest) (*RegisterPaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "repayment", "register_payment",
		telemetry.WithAttribute(telemetry.SpanAttrFinancingID, req.FinancingID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrAmount, req.SaleAmount.String()),
	)
	defer span.End()

	if err := actor.Require(identity.PermPaymentRegister); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	input := req.input(actor.RecordedBy())
	if err := input.Validate(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var resp *RegisterPaymentResponse
	for attempt := 0; ; attempt++ {
		var err error
		resp, err = s.registerOnce(ctx, req, input)
		if err == nil {
			telemetry.SetAttribute(span, telemetry.SpanAttrAttempt, attempt+1)
			break
		}
		if !shared.KindOf(err).IsRetryable() || attempt >= s.retry.MaxRetries {
			telemetry.RecordError(span, err)
			return nil, err
		}
		s.businessMetrics.RecordConflictRetry(ctx, "register_payment")
		s.logger.Warn("payment hit a version conflict, retrying",
			zap.String("financing_id", req.FinancingID.String()),
			zap.Int("attempt", attempt+1),
		)
		if err := sleep(ctx, s.retry.Backoff*time.Duration(attempt+1)); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrPaymentID, resp.Payment.ID.String())
	telemetry.SetOK(span)
	settled := resp.Financing.State == financing.StateCosechado.String()
	s.businessMetrics.RecordPayment(ctx, req.Method, resp.Payment.SaleAmount, resp.Payment.RetainedAmount, settled)
	s.logger.Info("Payment registered",
		zap.String("payment_id", resp.Payment.ID.String()),
		zap.String("financing_id", resp.Financing.ID.String()),
		zap.String("sale_amount", resp.Payment.SaleAmount.String()),
		zap.String("retained_amount", resp.Payment.RetainedAmount.String()),
		zap.String("state", resp.Financing.State),
	)
	return resp, nil
}

func (s *Service) registerOnce(ctx context.Context, req RegisterPaymentRequest, input financing.PaymentInput) (*RegisterPaymentResponse, error) {
	var resp *RegisterPaymentResponse
	err := s.scope.Execute(ctx, func(repos txscope.Repositories) error {
		f, err := repos.Financings().FindByIDForUpdate(ctx, req.FinancingID)
		if err != nil {
			return err
		}
		if f == nil {
			return shared.NewNotFoundError("financing")
		}
		p, err := f.ApplyPayment(input)
		if err != nil {
			return err
		}
		if err := repos.Payments().Create(ctx, p); err != nil {
			return err
		}
		if err := repos.Financings().SaveWithLock(ctx, f); err != nil {
			return err
		}
		if err := txscope.RecordPending(ctx, repos.Events(), f); err != nil {
			return err
		}
		resp = toRegisterPaymentResponse(p, f)
		return nil
	})
	return resp, err
}

// GetLedger returns a page of the payment ledger, newest first
func (s *Service) GetLedger(ctx context.Context, actor identity.Actor, query LedgerQuery) (*shared.Paginated[PaymentResponse], error) {
	filter, err := query.Filter(actor)
	if err != nil {
		return nil, err
	}
	items, total, err := s.payments.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToPaymentResponses(items), total, filter.Page)
	return &page, nil
}

// ExportLedger renders every ledger row matching the query, ignoring its
// paging, and uploads the file when object storage is configured.
func (s *Service) ExportLedger(ctx context.Context, actor identity.Actor, query LedgerQuery) (*LedgerExport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "repayment", "export_ledger")
	defer span.End()

	if err := actor.Require(identity.PermReportRead); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if s.writer == nil {
		err := shared.NewDomainError(shared.KindInternal, "EXPORT_DISABLED", "ledger export is not configured")
		telemetry.RecordError(span, err)
		return nil, err
	}
	filter, err := query.Filter(actor)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	payments, err := s.collect(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var buf bytes.Buffer
	if err := s.writer.Write(&buf, payments, kpi.Accumulate(payments)); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	export := &LedgerExport{
		Filename:     "ledger-" + s.now().UTC().Format("20060102-150405") + s.writer.FileExtension(),
		ContentType:  s.writer.ContentType(),
		Data:         buf.Bytes(),
		PaymentCount: len(payments),
	}

	if s.uploader != nil {
		key, err := s.uploader.Upload(ctx, export.Filename, export.Data, export.ContentType)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		export.ObjectKey = key
		// the file is already archived and returned inline, so a missing link
		// does not fail the export
		if url, expires, err := s.uploader.DownloadURL(ctx, key); err != nil {
			s.logger.Warn("Failed to presign ledger download", zap.String("object_key", key), zap.Error(err))
		} else {
			export.DownloadURL, export.LinkExpiresAt = url, expires
		}
	}

	telemetry.SetAttributes(span, "payments", len(payments), "uploaded", export.ObjectKey != "")
	telemetry.SetOK(span)
	s.logger.Info("Ledger exported",
		zap.Int("payments", len(payments)),
		zap.Int("bytes", len(export.Data)),
		zap.String("object_key", export.ObjectKey),
	)
	return export, nil
}

func (s *Service) collect(ctx context.Context, filter financing.LedgerFilter) ([]financing.Payment, error) {
	filter.Page = shared.Page{Number: 1, Size: shared.MaxPageSize}
	var all []financing.Payment
	for {
		items, total, err := s.payments.FindAll(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) < filter.Page.Size || int64(len(all)) >= total {
			return all, nil
		}
		filter.Page.Number++
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
