package services

import (
	"context"
	"fmt"
	"time"

	"saasreports/internal/amqp"
	"saasreports/internal/artifact"
	"saasreports/internal/clock"
	"saasreports/internal/core"
	"saasreports/internal/export"
	"saasreports/internal/log"
	"saasreports/internal/tenant"
)

type (
	// ArtifactStore keeps rendered files retrievable by token.
	ArtifactStore interface {
		Store(ctx context.Context, content []byte, fileName, contentType string) (string, error)
		Retrieve(ctx context.Context, token string) (artifact.Artifact, error)
	}

	// ExportNotifier announces finished exports to other processes.
	ExportNotifier interface {
		PublishExportReady(ctx context.Context, msg *amqp.ExportReadyMessage) error
	}
)

// FileDescriptor identifies a stored export.
type FileDescriptor struct {
	FileName     string
	MimeType     string
	Token        string
	Rows         int
	RenderedRows int
	SizeBytes    int
}

// ExportService renders invoice reports into files, stores them under a
// token and optionally announces them on the message bus.
type ExportService struct {
	reports   *ReportService
	renderers map[export.Format]export.Renderer
	artifacts ArtifactStore
	notifier  ExportNotifier
	clock     clock.Clock
	logger    *log.Logger
	structLog *log.StructuredLogger
}

// NewExportService wires the renderers by format. A nil notifier disables
// event publishing.
func NewExportService(reports *ReportService, artifacts ArtifactStore, notifier ExportNotifier, clk clock.Clock, logger *log.Logger, renderers ...export.Renderer) *ExportService {
	if clk == nil {
		clk = clock.System()
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentExport)
	byFormat := make(map[export.Format]export.Renderer, len(renderers))
	for _, r := range renderers {
		byFormat[r.Format()] = r
	}
	return &ExportService{
		reports:   reports,
		renderers: byFormat,
		artifacts: artifacts,
		notifier:  notifier,
		clock:     clk,
		logger:    logger,
		structLog: log.NewStructuredLogger(logger),
	}
}

// Export builds the report for filter, renders it in format and stores the
// file. The returned descriptor's token resolves through Download.
func (s *ExportService) Export(ctx context.Context, scope tenant.Scope, filter core.InvoiceReportFilter, format export.Format) (FileDescriptor, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return FileDescriptor{}, fmt.Errorf("%w: %q", export.ErrUnsupportedFormat, format)
	}

	report, err := s.reports.BuildReport(ctx, scope, filter)
	if err != nil {
		return FileDescriptor{}, err
	}

	generatedAt := s.clock.Now()
	res, err := renderer.Render(report, generatedAt)
	if err != nil {
		return FileDescriptor{}, fmt.Errorf("render %s: %w", format, err)
	}

	fd := FileDescriptor{
		FileName:     export.FileName(format, generatedAt),
		MimeType:     format.MimeType(),
		Rows:         res.Rows,
		RenderedRows: res.RenderedRows,
		SizeBytes:    len(res.Content),
	}
	fd.Token, err = s.artifacts.Store(ctx, res.Content, fd.FileName, fd.MimeType)
	if err != nil {
		return FileDescriptor{}, fmt.Errorf("store export: %w", err)
	}

	s.structLog.LogExportCreated(ctx, scope.Key(), string(format), fd.FileName, fd.SizeBytes, fd.Rows, fd.RenderedRows)

	s.publish(ctx, scope, fd, format, filter)
	return fd, nil
}

// Download returns the stored file for token. Unknown or expired tokens
// yield artifact.ErrNotFound.
func (s *ExportService) Download(ctx context.Context, token string) (artifact.Artifact, error) {
	return s.artifacts.Retrieve(ctx, token)
}

// ExportFile runs Export and immediately resolves the token, which is what
// the synchronous download endpoints need.
func (s *ExportService) ExportFile(ctx context.Context, scope tenant.Scope, filter core.InvoiceReportFilter, format export.Format) (FileDescriptor, artifact.Artifact, error) {
	fd, err := s.Export(ctx, scope, filter, format)
	if err != nil {
		return FileDescriptor{}, artifact.Artifact{}, err
	}
	a, err := s.Download(ctx, fd.Token)
	if err != nil {
		return FileDescriptor{}, artifact.Artifact{}, err
	}
	return fd, a, nil
}

// publish is best effort: a failed announcement never fails the export.
func (s *ExportService) publish(ctx context.Context, scope tenant.Scope, fd FileDescriptor, format export.Format, filter core.InvoiceReportFilter) {
	if s.notifier == nil {
		return
	}
	msg := amqp.NewExportReadyMessage(scope, fd.Token, string(format), fd.FileName, fd.Rows, filter)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.notifier.PublishExportReady(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish export event",
			log.FieldTenant, scope.Key(),
			log.FieldError, err)
	}
}
