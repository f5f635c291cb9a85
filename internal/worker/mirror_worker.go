package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"saasreports/internal/amqp"
	"saasreports/internal/clock"
	"saasreports/internal/core"
	"saasreports/internal/log"
	"saasreports/internal/sheets"
	"saasreports/internal/tenant"
)

// ReportBuilder produces the report that gets mirrored.
type ReportBuilder interface {
	BuildReport(ctx context.Context, scope tenant.Scope, filter core.InvoiceReportFilter) (core.InvoiceReport, error)
}

// ErrPermanent marks messages that can never succeed and should not be requeued.
var ErrPermanent = amqp.ErrPermanent

// MirrorWorker rebuilds exported reports and mirrors them to a spreadsheet.
type MirrorWorker struct {
	reports   ReportBuilder
	publisher sheets.ReportPublisher
	clock     clock.Clock
	logger    *log.Logger
}

func NewMirrorWorker(reports ReportBuilder, publisher sheets.ReportPublisher, clk clock.Clock, logger *log.Logger) *MirrorWorker {
	if clk == nil {
		clk = clock.System()
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &MirrorWorker{
		reports:   reports,
		publisher: publisher,
		clock:     clk,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleExportReady processes a single export event from AMQP. The export's
// bytes are not shared across processes, so the report is rebuilt from the
// filter carried by the message.
func (w *MirrorWorker) HandleExportReady(ctx context.Context, msg *amqp.ExportReadyMessage) error {
	scope, err := msg.Scope()
	if err != nil {
		return fmt.Errorf("%w: tenant %q: %v", ErrPermanent, msg.Tenant, err)
	}
	filter, err := msg.Filter.ReportFilter()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	}

	w.logger.InfoContext(ctx, "Processing export ready message",
		log.FieldTenant, scope.Key(),
		log.FieldFormat, msg.Format,
		log.FieldRows, msg.Rows)

	return w.mirror(ctx, scope, filter)
}

// Resync republishes the unfiltered report for each scope. It backs up the
// event path when messages were lost or the worker was down.
func (w *MirrorWorker) Resync(ctx context.Context, scopes []tenant.Scope) error {
	var errs []error
	for _, scope := range scopes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.mirror(ctx, scope, core.InvoiceReportFilter{}); err != nil {
			w.logger.ErrorContext(ctx, "Failed to resync report",
				log.FieldTenant, scope.Key(),
				log.FieldError, err)
			errs = append(errs, fmt.Errorf("%s: %w", scope.Key(), err))
		}
	}
	return errors.Join(errs...)
}

func (w *MirrorWorker) mirror(ctx context.Context, scope tenant.Scope, filter core.InvoiceReportFilter) error {
	started := w.clock.Now()
	report, err := w.reports.BuildReport(ctx, scope, filter)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	ref, err := w.publisher.PublishInvoiceReport(ctx, scope, report, w.clock.Now())
	if err != nil {
		return fmt.Errorf("publish report: %w", err)
	}

	w.logger.InfoContext(ctx, "Mirrored invoice report",
		log.FieldTenant, scope.Key(),
		log.FieldRows, len(report.Items),
		"sheets_ref", ref,
		log.FieldDuration, time.Since(started).Milliseconds())
	return nil
}
