package sanitizer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hannes/pellucid-sanitizer/anonymizer"
	"github.com/hannes/pellucid-sanitizer/metrics"
	"github.com/hannes/pellucid-sanitizer/pii"
	"github.com/hannes/pellucid-sanitizer/pii/detectors"
)

type fakeRemote struct {
	mu        sync.Mutex
	err       error
	calls     int
	batchSeen [][]string
}

func (f *fakeRemote) Anonymize(ctx context.Context, text string, cfg pii.PrivacyConfig) (pii.SanitizationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return pii.SanitizationResult{}, f.err
	}
	return remoteResult(text), nil
}

func (f *fakeRemote) AnonymizeBatch(ctx context.Context, texts []string, cfg pii.PrivacyConfig) ([]pii.SanitizationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.batchSeen = append(f.batchSeen, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]pii.SanitizationResult, len(texts))
	for i, text := range texts {
		out[i] = remoteResult(text)
	}
	return out, nil
}

func remoteResult(text string) pii.SanitizationResult {
	return pii.SanitizationResult{
		SanitizedText: "remote:" + text,
		Replacements:  []pii.Replacement{},
		PrivacyScore:  0.5,
		Engine:        pii.EngineRemote,
	}
}

func newLocal() *pii.LocalSanitizer {
	return pii.NewLocalSanitizer(detectors.DefaultCatalog(), pii.WithGenerator(pii.NewGeneratorServiceWithSeed(7)))
}

// panickyLocal panics on any text containing BOOM while matching rules
func panickyLocal(t *testing.T) *pii.LocalSanitizer {
	c, err := detectors.NewCatalog(
		detectors.Entry{Type: detectors.Email, Weight: 0.95, Rules: []detectors.Rule{
			{Pattern: regexp.MustCompile(`\b[a-z]+@[a-z]+\.com\b`)},
		}},
		detectors.Entry{Type: detectors.SSN, Weight: 0.98, Rules: []detectors.Rule{
			{Pattern: regexp.MustCompile(`BOOM`), Accept: func(string, int, int) (int, int, bool) {
				panic("rule state corrupted")
			}},
		}},
	)
	require.NoError(t, err)
	return pii.NewLocalSanitizer(c, pii.WithGenerator(pii.NewGeneratorServiceWithSeed(7)))
}

func TestService_RemoteSuccess(t *testing.T) {
	remote := &fakeRemote{}
	s := New(newLocal(), remote)

	out, err := s.Sanitize(context.Background(), "mail jane@corp.com", Options{Level: detectors.Standard})
	require.NoError(t, err)
	assert.False(t, out.Degraded)
	assert.Nil(t, out.RemoteErr)
	assert.Equal(t, "remote:mail jane@corp.com", out.SanitizedText)
	assert.Equal(t, pii.EngineRemote, out.Engine)
	assert.Equal(t, int64(1), s.Metrics().RemoteSuccesses.Load())
}

func TestService_FallbackMatchesLocalShape(t *testing.T) {
	var reported []error
	remote := &fakeRemote{err: fmt.Errorf("%w: connection refused", anonymizer.ErrUnavailable)}
	s := New(newLocal(), remote, WithErrorReporter(func(err error) { reported = append(reported, err) }))

	text := "Hi, I'm John Smith, email john@x.com, phone (555) 123-4567"
	out, err := s.Sanitize(context.Background(), text, Options{Level: detectors.Standard})
	require.NoError(t, err)

	direct := newLocal().Sanitize(text, pii.NewPrivacyConfig(detectors.Standard, false))

	assert.True(t, out.Degraded)
	assert.ErrorIs(t, out.RemoteErr, anonymizer.ErrUnavailable)
	assert.Equal(t, direct.SanitizedText, out.SanitizedText)
	assert.Equal(t, direct.Replacements, out.Replacements)
	assert.Equal(t, direct.PrivacyScore, out.PrivacyScore)
	assert.Equal(t, direct.ContextPreserved, out.ContextPreserved)
	assert.Equal(t, pii.EngineLocal, out.Engine)
	assert.Len(t, reported, 1)
	assert.Equal(t, int64(1), s.Metrics().Fallbacks.Load())
}

func TestService_FallbackOnRealClientFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := New(newLocal(), anonymizer.New(srv.URL), WithErrorReporter(func(error) {}))
	out, err := s.Sanitize(context.Background(), "My SSN is 123-45-6789", Options{Level: detectors.Standard, PreserveContext: true})
	require.NoError(t, err)
	assert.True(t, out.Degraded)
	assert.NotContains(t, out.SanitizedText, "123-45-6789")
	assert.True(t, out.ContextPreserved)
}

func TestService_InvalidInput(t *testing.T) {
	remote := &fakeRemote{}
	s := New(newLocal(), remote)

	for _, text := range []string{"", "bad \xff utf8"} {
		_, err := s.Sanitize(context.Background(), text, Options{})
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
	_, err := s.Sanitize(context.Background(), "fine", Options{Level: detectors.PrivacyLevel(9)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, 0, remote.calls)
	assert.Equal(t, int64(3), s.Metrics().InvalidInputs.Load())
}

func TestService_NoRemote(t *testing.T) {
	s := New(newLocal(), nil)
	assert.False(t, s.RemoteEnabled())

	out, err := s.Sanitize(context.Background(), "Contact: jane.doe@example.com", Options{Level: detectors.Standard})
	require.NoError(t, err)
	assert.False(t, out.Degraded)
	assert.Equal(t, "Contact: [EMAIL_ADDRESS]", out.SanitizedText)
	assert.Equal(t, int64(1), s.Metrics().LocalOnly.Load())
}

func TestService_LocalPanicIsAnError(t *testing.T) {
	s := New(panickyLocal(t), nil)
	_, err := s.Sanitize(context.Background(), "this goes BOOM", Options{Level: detectors.Standard})
	assert.ErrorIs(t, err, ErrLocalFailure)
}

func TestService_BatchRemoteSuccess(t *testing.T) {
	remote := &fakeRemote{}
	s := New(newLocal(), remote)

	out, err := s.SanitizeBatch(context.Background(), []string{"a", "b", "c"}, Options{Level: detectors.Maximum})
	require.NoError(t, err)
	require.Len(t, out.Items, 3)
	for i, want := range []string{"remote:a", "remote:b", "remote:c"} {
		assert.NoError(t, out.Items[i].Err)
		assert.Equal(t, want, out.Items[i].Result.SanitizedText)
		assert.False(t, out.Items[i].Degraded)
	}
	assert.False(t, out.Degraded)
	assert.InDelta(t, 0.5, out.AveragePrivacyScore, 1e-9)
	assert.Equal(t, 1, remote.calls, "one request for the whole batch")
}

func TestService_BatchIsolation(t *testing.T) {
	remote := &fakeRemote{err: anonymizer.ErrProtocol}
	s := New(panickyLocal(t), remote, WithErrorReporter(func(error) {}))

	texts := []string{"mail jane@corp.com please", "this goes BOOM", "write to bob@mail.com"}
	out, err := s.SanitizeBatch(context.Background(), texts, Options{Level: detectors.Standard})
	require.NoError(t, err)
	require.Len(t, out.Items, 3)

	assert.NoError(t, out.Items[0].Err)
	assert.Equal(t, "mail [EMAIL_ADDRESS] please", out.Items[0].Result.SanitizedText)
	assert.True(t, out.Items[0].Degraded)

	assert.ErrorIs(t, out.Items[1].Err, ErrLocalFailure)

	assert.NoError(t, out.Items[2].Err)
	assert.Equal(t, "write to [EMAIL_ADDRESS]", out.Items[2].Result.SanitizedText)

	assert.True(t, out.Degraded)
	assert.ErrorIs(t, out.RemoteErr, anonymizer.ErrProtocol)
	expected := (out.Items[0].Result.PrivacyScore + out.Items[2].Result.PrivacyScore) / 2
	assert.InDelta(t, expected, out.AveragePrivacyScore, 1e-9)
	assert.Equal(t, int64(1), s.Metrics().ItemFailures.Load())
}

func TestService_BatchInvalidItemsSkipRemote(t *testing.T) {
	remote := &fakeRemote{}
	s := New(newLocal(), remote)

	out, err := s.SanitizeBatch(context.Background(), []string{"first", "", "third"}, Options{Level: detectors.Standard})
	require.NoError(t, err)

	require.Len(t, remote.batchSeen, 1)
	assert.Equal(t, []string{"first", "third"}, remote.batchSeen[0])
	assert.Equal(t, "remote:first", out.Items[0].Result.SanitizedText)
	assert.ErrorIs(t, out.Items[1].Err, ErrInvalidInput)
	assert.Equal(t, "remote:third", out.Items[2].Result.SanitizedText)
}

func TestService_BatchAllInvalid(t *testing.T) {
	remote := &fakeRemote{}
	s := New(newLocal(), remote)

	out, err := s.SanitizeBatch(context.Background(), []string{"", ""}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, remote.calls)
	assert.Zero(t, out.AveragePrivacyScore)
	for _, item := range out.Items {
		assert.ErrorIs(t, item.Err, ErrInvalidInput)
	}
}

func TestService_EmptyBatch(t *testing.T) {
	s := New(newLocal(), &fakeRemote{})
	_, err := s.SanitizeBatch(context.Background(), nil, Options{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestService_BatchFallbackPreservesOrder(t *testing.T) {
	var reports atomic.Int32
	remote := &fakeRemote{err: errors.New("boom")}
	s := New(newLocal(), remote,
		WithConcurrency(4),
		WithMetrics(metrics.New()),
		WithErrorReporter(func(error) { reports.Add(1) }))

	texts := make([]string, 60)
	for i := range texts {
		texts[i] = fmt.Sprintf("item %d mail user@corp.com", i)
	}
	out, err := s.SanitizeBatch(context.Background(), texts, Options{Level: detectors.Standard})
	require.NoError(t, err)

	for i, item := range out.Items {
		require.NoError(t, item.Err)
		assert.True(t, strings.HasPrefix(item.Result.SanitizedText, fmt.Sprintf("item %d mail ", i)))
		assert.True(t, item.Degraded)
	}
	assert.Equal(t, int32(1), reports.Load(), "one report per failed remote call")
	assert.Equal(t, int64(60), s.Metrics().Fallbacks.Load())
}
