package service

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"sort"
	"strings"
	"time"

	"github.com/damon-houk/forex-conversion-service/internal/domain/apperror"
	"github.com/damon-houk/forex-conversion-service/internal/domain/entity"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/logger"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/metrics"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/middleware"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultBulkWorkers bounds concurrent conversions when no limit is configured
const DefaultBulkWorkers = 8

// Required CSV header columns, matched case-insensitively
const (
	columnSourceCurrency = "sourcecurrency"
	columnTargetCurrency = "targetcurrency"
	columnAmount         = "amount"
)

// Row outcomes recorded in BulkReport.Failures and metrics
const (
	RowConverted = "converted"
	RowSkipped   = "skipped"
	RowFailed    = "failed"
)

var supportedBulkMediaTypes = map[string]bool{
	"text/csv":        true,
	"application/csv": true,
}

// Converter performs a single conversion; ConversionService satisfies it
type Converter interface {
	Convert(ctx context.Context, req entity.ConversionRequest) (*ConversionResult, error)
}

// RowFailure describes a data row that produced no result.
// Row is 1-based and excludes the header.
type RowFailure struct {
	Row     int
	Outcome string
	Reason  string
}

// BulkReport holds the successful results in input-row order and the rows that produced none
type BulkReport struct {
	Results  []*ConversionResult
	Failures []RowFailure
}

// BulkConversionService converts every row of a CSV upload concurrently
type BulkConversionService struct {
	converter Converter
	workers   int
	metrics   *metrics.ForexMetrics
	logger    logger.Logger
}

// NewBulkConversionService creates a new bulk conversion service
func NewBulkConversionService(converter Converter, workers int, m *metrics.ForexMetrics, log logger.Logger) *BulkConversionService {
	if workers < 1 {
		workers = DefaultBulkWorkers
	}

	return &BulkConversionService{
		converter: converter,
		workers:   workers,
		metrics:   m,
		logger:    logger.OrDefault(log),
	}
}

type bulkJob struct {
	row int
	req entity.ConversionRequest
}

// ProcessBulk parses the CSV in r and converts every valid row. Rows with a
// blank currency or a non-numeric amount are skipped, conversions that fail
// are dropped; neither fails the whole upload. Once parsing succeeds the
// conversions run to completion even if ctx is cancelled.
func (s *BulkConversionService) ProcessBulk(ctx context.Context, r io.Reader, mediaType string) (*BulkReport, error) {
	requestID := middleware.GetRequestID(ctx)

	br := bufio.NewReader(r)
	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperror.NewValidationError("", "empty input")
		}
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	if !isSupportedBulkMediaType(mediaType) {
		return nil, apperror.NewValidationError("", "unsupported format")
	}

	report := &BulkReport{
		Results:  []*ConversionResult{},
		Failures: []RowFailure{},
	}

	jobs, err := s.parseRows(br, report, requestID)
	if err != nil {
		s.logger.Warn("Rejected bulk upload", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		return nil, err
	}

	s.logger.Info("Processing bulk conversion", map[string]interface{}{
		"request_id": requestID,
		"rows":       len(jobs) + len(report.Failures),
		"valid_rows": len(jobs),
		"workers":    s.workers,
	})

	startTime := time.Now()
	results, errs := s.dispatch(context.WithoutCancel(ctx), jobs)

	for i, job := range jobs {
		if errs[i] != nil {
			s.metrics.RecordBulkRow(RowFailed)
			report.Failures = append(report.Failures, RowFailure{Row: job.row, Outcome: RowFailed, Reason: errs[i].Error()})
			s.logger.Warn("Bulk row conversion failed", map[string]interface{}{
				"request_id": requestID,
				"row":        job.row,
				"error":      errs[i].Error(),
			})
			continue
		}
		s.metrics.RecordBulkRow(RowConverted)
		report.Results = append(report.Results, results[i])
	}

	sort.SliceStable(report.Failures, func(i, j int) bool {
		return report.Failures[i].Row < report.Failures[j].Row
	})

	s.logger.Info("Bulk conversion completed", map[string]interface{}{
		"request_id":    requestID,
		"converted":     len(report.Results),
		"not_converted": len(report.Failures),
		"duration_ms":   time.Since(startTime).Milliseconds(),
	})

	return report, nil
}

// dispatch runs every job on a bounded worker pool; results[i] and errs[i] belong to jobs[i]
func (s *BulkConversionService) dispatch(ctx context.Context, jobs []bulkJob) ([]*ConversionResult, []error) {
	results := make([]*ConversionResult, len(jobs))
	errs := make([]error, len(jobs))

	g := new(errgroup.Group)
	g.SetLimit(s.workers)

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			results[i], errs[i] = s.convertRow(ctx, job)
			// Row failures are collected, never used to stop the group
			return nil
		})
	}
	_ = g.Wait()

	return results, errs
}

func (s *BulkConversionService) convertRow(ctx context.Context, job bulkJob) (res *ConversionResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, fmt.Errorf("row %d: conversion panicked: %v", job.row, p)
		}
	}()
	return s.converter.Convert(ctx, job.req)
}

// parseRows reads the header and data rows. Structural problems fail the
// whole upload; row-level problems are recorded as skipped in report.
func (s *BulkConversionService) parseRows(r io.Reader, report *BulkReport, requestID string) ([]bulkJob, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	// Field counts are checked below so whitespace-only lines can be ignored
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, parseFailure(err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var idx [3]int
	for i, name := range []string{columnSourceCurrency, columnTargetCurrency, columnAmount} {
		pos, ok := columns[name]
		if !ok {
			return nil, apperror.NewValidationError("", fmt.Sprintf("parse failure: missing column %q", name))
		}
		idx[i] = pos
	}

	var jobs []bulkJob
	row := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseFailure(err)
		}

		if isBlankRecord(record) {
			continue
		}
		row++
		if len(record) != len(header) {
			line, _ := reader.FieldPos(0)
			return nil, parseFailure(&csv.ParseError{StartLine: line, Line: line, Column: 1, Err: csv.ErrFieldCount})
		}

		source := strings.TrimSpace(record[idx[0]])
		target := strings.TrimSpace(record[idx[1]])
		rawAmount := strings.TrimSpace(record[idx[2]])

		reason := ""
		var amount decimal.Decimal
		if source == "" || target == "" {
			reason = "missing currency code"
		} else if amount, err = decimal.NewFromString(rawAmount); err != nil {
			reason = fmt.Sprintf("invalid amount %q", rawAmount)
		} else if err = entity.CheckAmountRange(amount); err != nil {
			reason = err.Error()
		}

		if reason != "" {
			s.metrics.RecordBulkRow(RowSkipped)
			report.Failures = append(report.Failures, RowFailure{Row: row, Outcome: RowSkipped, Reason: reason})
			s.logger.Warn("Skipping invalid CSV row", map[string]interface{}{
				"request_id": requestID,
				"row":        row,
				"reason":     reason,
			})
			continue
		}

		jobs = append(jobs, bulkJob{
			row: row,
			req: entity.ConversionRequest{
				SourceCurrency: source,
				TargetCurrency: target,
				Amount:         amount,
			},
		})
	}

	return jobs, nil
}

// isBlankRecord reports a line holding nothing but whitespace
func isBlankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func parseFailure(err error) error {
	if errors.Is(err, io.EOF) {
		return apperror.NewValidationError("", "parse failure: missing header row")
	}
	return apperror.NewValidationError("", "parse failure: "+err.Error())
}

func isSupportedBulkMediaType(mediaType string) bool {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return false
	}
	return supportedBulkMediaTypes[mt]
}
