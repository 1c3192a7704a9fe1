package sanitizer

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hannes/pellucid-sanitizer/metrics"
	"github.com/hannes/pellucid-sanitizer/pii"
	"github.com/hannes/pellucid-sanitizer/pii/detectors"
)

// Local is the in-process engine. It must be total and safe for concurrent use.
type Local interface {
	Sanitize(text string, cfg pii.PrivacyConfig) pii.SanitizationResult
}

// Remote is the external anonymization service
type Remote interface {
	Anonymize(ctx context.Context, text string, cfg pii.PrivacyConfig) (pii.SanitizationResult, error)
	AnonymizeBatch(ctx context.Context, texts []string, cfg pii.PrivacyConfig) ([]pii.SanitizationResult, error)
}

// Options are the per-call inputs
type Options struct {
	Level           detectors.PrivacyLevel
	PreserveContext bool
}

// Outcome is a result plus whether it came from the local fallback
type Outcome struct {
	pii.SanitizationResult
	Degraded bool
	// RemoteErr is the remote failure that caused the fallback
	RemoteErr error
}

type BatchItem struct {
	Result   pii.SanitizationResult
	Degraded bool
	Err      error
}

type BatchOutcome struct {
	Items []BatchItem
	// AveragePrivacyScore is taken over items without an error
	AveragePrivacyScore float64
	Degraded            bool
	RemoteErr           error
}

// Service prefers the remote engine and falls back to the local one on any
// remote error. It never retries beyond that single step.
type Service struct {
	local       Local
	remote      Remote
	metrics     *metrics.Metrics
	report      func(error)
	concurrency int
	logger      zerolog.Logger
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithErrorReporter replaces the Sentry reporter used for remote failures
func WithErrorReporter(report func(error)) Option {
	return func(s *Service) { s.report = report }
}

// WithConcurrency bounds the number of local fallbacks run at once in a batch
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// New creates the orchestrator. remote may be nil, in which case every call
// runs locally and is not marked degraded.
func New(local Local, remote Remote, opts ...Option) *Service {
	s := &Service{
		local:       local,
		remote:      remote,
		metrics:     metrics.New(),
		report:      captureRemoteFailure,
		concurrency: runtime.GOMAXPROCS(0),
		logger:      log.With().Str("component", "sanitizer").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Metrics() *metrics.Metrics {
	return s.metrics
}

// RemoteEnabled reports whether a remote engine is configured
func (s *Service) RemoteEnabled() bool {
	return s.remote != nil
}

func captureRemoteFailure(err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", "sanitizer")
		scope.SetLevel(sentry.LevelWarning)
		sentry.CaptureException(err)
	})
}

// Sanitize redacts one text. Invalid input is rejected with ErrInvalidInput;
// every other failure is absorbed by the local fallback.
func (s *Service) Sanitize(ctx context.Context, text string, opts Options) (Outcome, error) {
	s.metrics.Requests.Add(1)
	if err := s.validate(text, opts); err != nil {
		return Outcome{}, err
	}
	cfg := pii.NewPrivacyConfig(opts.Level, opts.PreserveContext)

	if s.remote == nil {
		result, err := s.sanitizeLocal(text, cfg)
		if err != nil {
			return Outcome{}, err
		}
		s.metrics.LocalOnly.Add(1)
		return Outcome{SanitizationResult: result}, nil
	}

	start := time.Now()
	result, remoteErr := s.remote.Anonymize(ctx, text, cfg)
	s.metrics.RecordRemoteLatency(time.Since(start))
	if remoteErr == nil {
		s.metrics.RemoteSuccesses.Add(1)
		s.recordReplacements(result)
		return Outcome{SanitizationResult: result}, nil
	}

	s.remoteFailed(remoteErr, 1)
	result, err := s.sanitizeLocal(text, cfg)
	if err != nil {
		return Outcome{}, err
	}
	s.metrics.Fallbacks.Add(1)
	return Outcome{SanitizationResult: result, Degraded: true, RemoteErr: remoteErr}, nil
}

// SanitizeBatch redacts texts, keeping input order. Invalid items fail
// individually; the remaining items go to the remote engine in one request
// and are sanitized locally and concurrently if that request fails.
func (s *Service) SanitizeBatch(ctx context.Context, texts []string, opts Options) (BatchOutcome, error) {
	s.metrics.BatchRequests.Add(1)
	if len(texts) == 0 {
		s.metrics.InvalidInputs.Add(1)
		return BatchOutcome{}, fmt.Errorf("%w: empty batch", ErrInvalidInput)
	}
	if !opts.Level.Valid() {
		s.metrics.InvalidInputs.Add(1)
		return BatchOutcome{}, fmt.Errorf("%w: unknown privacy level %d", ErrInvalidInput, int(opts.Level))
	}
	s.metrics.BatchItems.Add(int64(len(texts)))
	cfg := pii.NewPrivacyConfig(opts.Level, opts.PreserveContext)

	out := BatchOutcome{Items: make([]BatchItem, len(texts))}
	valid := make([]int, 0, len(texts))
	for i, text := range texts {
		if err := validateText(text); err != nil {
			s.metrics.InvalidInputs.Add(1)
			out.Items[i].Err = fmt.Errorf("item %d: %w", i, err)
			continue
		}
		valid = append(valid, i)
	}

	if len(valid) > 0 {
		if s.remote == nil {
			s.sanitizeEach(texts, valid, cfg, out.Items, false)
			s.metrics.LocalOnly.Add(int64(len(valid)))
		} else if out.RemoteErr = s.remoteBatch(ctx, texts, valid, cfg, out.Items); out.RemoteErr != nil {
			s.remoteFailed(out.RemoteErr, len(valid))
			s.sanitizeEach(texts, valid, cfg, out.Items, true)
		}
	}

	var sum float64
	var ok int
	for _, item := range out.Items {
		if item.Degraded {
			out.Degraded = true
		}
		if item.Err != nil {
			continue
		}
		sum += item.Result.PrivacyScore
		ok++
	}
	if ok > 0 {
		out.AveragePrivacyScore = sum / float64(ok)
	}
	return out, nil
}

func (s *Service) remoteBatch(ctx context.Context, texts []string, valid []int, cfg pii.PrivacyConfig, items []BatchItem) error {
	batch := make([]string, len(valid))
	for k, i := range valid {
		batch[k] = texts[i]
	}

	start := time.Now()
	results, err := s.remote.AnonymizeBatch(ctx, batch, cfg)
	s.metrics.RecordRemoteLatency(time.Since(start))
	if err != nil {
		return err
	}
	if len(results) != len(valid) {
		return fmt.Errorf("remote batch returned %d results for %d texts", len(results), len(valid))
	}

	s.metrics.RemoteSuccesses.Add(1)
	for k, i := range valid {
		items[i].Result = results[k]
		s.recordReplacements(results[k])
	}
	return nil
}

// sanitizeEach runs the local engine for every index in valid, each in its
// own goroutine and recover scope, writing into items by index
func (s *Service) sanitizeEach(texts []string, valid []int, cfg pii.PrivacyConfig, items []BatchItem, degraded bool) {
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for _, i := range valid {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := s.sanitizeLocal(texts[i], cfg)
			if err != nil {
				s.metrics.ItemFailures.Add(1)
				items[i] = BatchItem{Err: fmt.Errorf("item %d: %w", i, err)}
				return
			}
			if degraded {
				s.metrics.Fallbacks.Add(1)
			}
			items[i] = BatchItem{Result: result, Degraded: degraded}
		}(i)
	}
	wg.Wait()
}

func (s *Service) sanitizeLocal(text string, cfg pii.PrivacyConfig) (result pii.SanitizationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Int("input_len", len(text)).Msg("local sanitizer panicked")
			err = fmt.Errorf("%w: %v", ErrLocalFailure, r)
		}
	}()

	start := time.Now()
	result = s.local.Sanitize(text, cfg)
	s.metrics.RecordLocalLatency(time.Since(start))
	s.recordReplacements(result)
	return result, nil
}

func (s *Service) validate(text string, opts Options) error {
	if err := validateText(text); err != nil {
		s.metrics.InvalidInputs.Add(1)
		return err
	}
	if !opts.Level.Valid() {
		s.metrics.InvalidInputs.Add(1)
		return fmt.Errorf("%w: unknown privacy level %d", ErrInvalidInput, int(opts.Level))
	}
	return nil
}

func (s *Service) remoteFailed(err error, items int) {
	s.metrics.RemoteFailures.Add(1)
	s.logger.Warn().Err(err).Int("items", items).Msg("remote anonymizer failed, using local sanitizer")
	if s.report != nil {
		s.report(err)
	}
}

func (s *Service) recordReplacements(result pii.SanitizationResult) {
	for _, r := range result.Replacements {
		s.metrics.RecordReplacement(r.EntityType)
	}
}
