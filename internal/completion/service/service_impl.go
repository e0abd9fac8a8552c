package service

import (
	"context"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/factuur/internal/clock"
	completiondomain "github.com/smallbiznis/factuur/internal/completion/domain"
	"github.com/smallbiznis/factuur/internal/invoice/completor"
	invoicedomain "github.com/smallbiznis/factuur/internal/invoice/domain"
	"github.com/smallbiznis/factuur/pkg/log/ctxlogger"
	"github.com/smallbiznis/factuur/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type serviceParam struct {
	fx.In

	Completor  *completor.InvoiceCompletor
	Repository completiondomain.Repository
	GenID      *snowflake.Node
	Clock      clock.Clock
	Metrics    *telemetry.Metrics `optional:"true"`
	Logger     *zap.Logger
}

type service struct {
	completor *completor.InvoiceCompletor
	repo      completiondomain.Repository
	genID     *snowflake.Node
	clock     clock.Clock
	metrics   *telemetry.Metrics
	log       *zap.Logger
}

func NewService(p serviceParam) completiondomain.Service {
	svc := &service{
		completor: p.Completor,
		repo:      p.Repository,
		genID:     p.GenID,
		clock:     p.Clock,
		metrics:   p.Metrics,
		log:       p.Logger.Named("completion.service"),
	}
	svc.completor.Resolver().Observer = p.Metrics.ObserveStrategy
	return svc
}

// Complete runs the engine on its own working copy of raw and records an
// audit row. Only contract violations return an error; every business-rule
// condition ends up in the result's message list.
func (s *service) Complete(ctx context.Context, raw invoicedomain.Invoice, src completiondomain.SourceInfo) (*completiondomain.Result, error) {
	if err := validateContract(raw); err != nil {
		return nil, err
	}

	log := ctxlogger.WithContext(ctx, s.log)
	start := s.clock.Now()

	working := raw.Copy()
	msgs := s.completor.Complete(ctx, &working)

	result := &completiondomain.Result{
		Invoice:  working,
		Messages: msgs.Messages(),
		Concept:  working.Concept,
	}

	outcome := "completed"
	if working.Concept {
		outcome = "concept"
	}
	s.metrics.ObserveCompletionRun(outcome, src.Shop, s.clock.Now().Sub(start))
	for _, msg := range result.Messages {
		if msg.Severity >= invoicedomain.SeverityWarning {
			s.metrics.ObserveWarning(strconv.Itoa(msg.Code))
		}
	}
	if working.AmountInc != nil {
		s.metrics.ObserveInvoiceAmount(src.Shop, *working.AmountInc)
	}

	s.persistRun(ctx, result, src)

	log.Info("invoice completed",
		zap.String("source", src.Shop),
		zap.String("vat_type", string(working.VatType)),
		zap.Bool("concept", working.Concept),
		zap.Int("messages", len(result.Messages)),
		zap.Duration("took", s.clock.Now().Sub(start)),
	)
	return result, nil
}

// persistRun stores the audit row best-effort; a storage hiccup must not
// fail a completion the caller already paid for.
func (s *service) persistRun(ctx context.Context, result *completiondomain.Result, src completiondomain.SourceInfo) {
	warnings := 0
	for _, msg := range result.Messages {
		if msg.Severity >= invoicedomain.SeverityWarning {
			warnings++
		}
	}
	run := &completiondomain.CompletionRun{
		ID:            s.genID.Generate(),
		Source:        src.Shop,
		InvoiceNumber: result.Invoice.Number,
		Concept:       result.Concept,
		VatType:       string(result.Invoice.VatType),
		Warnings:      warnings,
		Payload: datatypes.JSONMap{
			"invoice":  result.Invoice,
			"messages": result.Messages,
		},
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Create(ctx, run); err != nil {
		s.log.Warn("failed to persist completion run",
			zap.String("source", src.Shop),
			zap.Error(err),
		)
	}
}

func validateContract(raw invoicedomain.Invoice) error {
	if raw.Customer == (invoicedomain.Customer{}) {
		return completiondomain.ErrMissingCustomer
	}
	if raw.Customer.CountryCode == "" {
		return completiondomain.ErrMissingCountry
	}
	if len(raw.Lines) == 0 {
		return completiondomain.ErrMissingLines
	}
	if raw.IssueDate.IsZero() {
		return completiondomain.ErrMissingDate
	}
	for _, line := range raw.Lines {
		if line.Quantity < 0 {
			return completiondomain.ErrInvalidQuantity
		}
	}
	return nil
}
