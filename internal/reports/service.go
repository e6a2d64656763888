// Package reports exports a cart's nutrient report as PDF or CSV. Files live
// in object storage when it is configured and in the metadata store
// otherwise.
package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fdg312/nutricart/internal/blob"
	"github.com/fdg312/nutricart/internal/cart"
	"github.com/fdg312/nutricart/internal/logging"
	"github.com/fdg312/nutricart/internal/metrics"
	"github.com/fdg312/nutricart/internal/nutrition"
	"github.com/fdg312/nutricart/internal/storage"
	"github.com/fdg312/nutricart/internal/suggest"
	"github.com/fdg312/nutricart/internal/userctx"
	"github.com/google/uuid"
)

// Errors
var (
	ErrInvalidFormat  = errors.New("invalid format")
	ErrNoSession      = errors.New("no session in request")
	ErrReportNotFound = errors.New("report not found")
)

// Evaluator runs the suggestion engine. *suggest.Engine satisfies it.
type Evaluator interface {
	Evaluate(ctx context.Context, c cart.Cart, profile nutrition.UserProfile) (suggest.Evaluation, error)
}

// Options for NewService
type Options struct {
	Reports    storage.ReportsStorage
	Products   cart.Lookup
	Engine     Evaluator
	Profiles   nutrition.ProfileSource
	BlobStore  blob.Store // nil = local mode
	PresignTTL int        // seconds
}

// Service handles reports business logic
type Service struct {
	reports    storage.ReportsStorage
	products   cart.Lookup
	engine     Evaluator
	profiles   nutrition.ProfileSource
	blobStore  blob.Store
	presignTTL int
	localMode  bool // true if no S3 configured
	now        func() time.Time
}

// NewService creates a new reports service
func NewService(opts Options) *Service {
	ttl := opts.PresignTTL
	if ttl <= 0 {
		ttl = 900
	}
	return &Service{
		reports:    opts.Reports,
		products:   opts.Products,
		engine:     opts.Engine,
		profiles:   opts.Profiles,
		blobStore:  opts.BlobStore,
		presignTTL: ttl,
		localMode:  opts.BlobStore == nil,
		now:        time.Now,
	}
}

// LocalMode reports whether files are served from the metadata store.
func (s *Service) LocalMode() bool {
	return s.localMode
}

// CreateReport builds the report for the request's cart and stores it under
// the request's session.
func (s *Service) CreateReport(ctx context.Context, req CreateReportRequest) (*Report, error) {
	sessionID, ok := userctx.SessionID(ctx)
	if !ok {
		return nil, ErrNoSession
	}

	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format != FormatPDF && format != FormatCSV {
		return nil, ErrInvalidFormat
	}

	c, err := cart.Parse(req.Items)
	if err != nil {
		return nil, err
	}

	profile, err := suggest.ResolveProfile(ctx, req.Profile, s.profiles)
	if err != nil {
		return nil, err
	}

	content, err := s.content(ctx, c, profile, req.IncludeSuggestion)
	if err != nil {
		return nil, err
	}

	data, err := Generate(content, format)
	metrics.RecordReport(format, err)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report: %w", err)
	}

	report := &storage.ReportMeta{
		ID:        uuid.New(),
		SessionID: sessionID,
		Format:    format,
		SizeBytes: int64(len(data)),
		ItemCount: len(content.Aggregate.Matrix),
		Status:    StatusReady,
	}

	if s.localMode {
		report.Data = data
	} else {
		objectKey := fmt.Sprintf("reports/%s/%s.%s", sessionID, report.ID, format)
		if _, err := s.blobStore.PutObject(ctx, objectKey, data, contentType(format)); err != nil {
			return nil, fmt.Errorf("failed to upload to S3: %w", err)
		}
		report.ObjectKey = &objectKey
	}

	if err := s.reports.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to save report metadata: %w", err)
	}

	return toReport(report), nil
}

// content gathers the figures for a report. The optimizer only runs when a
// suggestion was asked for.
func (s *Service) content(ctx context.Context, c cart.Cart, profile nutrition.UserProfile, withSuggestion bool) (Content, error) {
	content := Content{Profile: profile, GeneratedAt: s.now()}

	if withSuggestion {
		ev, err := s.engine.Evaluate(ctx, c, profile)
		if err != nil {
			return Content{}, err
		}
		content.State = ev.State
		content.Target = ev.Target
		content.Aggregate = ev.Aggregate
		content.Suggestion = &ev.Suggestion
		return content, nil
	}

	target, err := nutrition.ComputeTarget(profile)
	if err != nil {
		return Content{}, err
	}
	content.Target = target
	content.Aggregate = cart.Build(c, s.products)
	content.State = suggest.Classify(content.Aggregate.Total, target)
	return content, nil
}

// GetReport retrieves a report of the request's session by ID
func (s *Service) GetReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	meta, err := s.owned(ctx, id)
	if err != nil {
		return nil, err
	}
	return toReport(meta), nil
}

// ListReports lists reports of the request's session, newest first
func (s *Service) ListReports(ctx context.Context, limit, offset int) ([]Report, error) {
	sessionID, ok := userctx.SessionID(ctx)
	if !ok {
		return nil, ErrNoSession
	}

	metaList, err := s.reports.ListReports(ctx, sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	reports := make([]Report, len(metaList))
	for i := range metaList {
		reports[i] = *toReport(&metaList[i])
	}
	return reports, nil
}

// DeleteReport deletes a report and its object
func (s *Service) DeleteReport(ctx context.Context, id uuid.UUID) error {
	meta, err := s.owned(ctx, id)
	if err != nil {
		return err
	}

	if !s.localMode && meta.ObjectKey != nil {
		if err := s.blobStore.DeleteObject(ctx, *meta.ObjectKey); err != nil {
			// метаданные важнее, объект останется сиротой
			logging.Warn().Err(err).Str("key", *meta.ObjectKey).Msg("failed to delete report object")
		}
	}

	if err := s.reports.DeleteReport(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrReportNotFound
		}
		return fmt.Errorf("failed to delete report metadata: %w", err)
	}
	return nil
}

// DownloadURL returns where the report can be fetched: the API's download
// endpoint in local mode, a presigned S3 URL otherwise.
func (s *Service) DownloadURL(ctx context.Context, report *Report, baseURL string) (string, error) {
	if s.localMode {
		return fmt.Sprintf("%s/v1/reports/%s/download", strings.TrimSuffix(baseURL, "/"), report.ID), nil
	}

	if report.ObjectKey == nil {
		return "", fmt.Errorf("object key is missing")
	}

	presignedURL, err := s.blobStore.PresignGet(ctx, *report.ObjectKey, s.presignTTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return presignedURL, nil
}

func (s *Service) owned(ctx context.Context, id uuid.UUID) (*storage.ReportMeta, error) {
	sessionID, ok := userctx.SessionID(ctx)
	if !ok {
		return nil, ErrNoSession
	}

	meta, err := s.reports.GetReport(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	// чужой отчёт не отличаем от отсутствующего
	if meta.SessionID != sessionID {
		return nil, ErrReportNotFound
	}
	return meta, nil
}

// toReport converts ReportMeta to Report model
func toReport(meta *storage.ReportMeta) *Report {
	return &Report{
		ID:        meta.ID,
		SessionID: meta.SessionID,
		Format:    meta.Format,
		ObjectKey: meta.ObjectKey,
		SizeBytes: meta.SizeBytes,
		ItemCount: meta.ItemCount,
		Status:    meta.Status,
		Error:     meta.Error,
		CreatedAt: meta.CreatedAt,
		UpdatedAt: meta.UpdatedAt,
		Data:      meta.Data,
	}
}
