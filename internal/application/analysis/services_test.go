package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/nog/internal/application"
	"github.com/bryanwahyu/nog/internal/application/retry"
	domain "github.com/bryanwahyu/nog/internal/domain/analysis"
	"github.com/bryanwahyu/nog/internal/domain/checks"
	aiopenai "github.com/bryanwahyu/nog/internal/infra/ai/openai"
	"github.com/bryanwahyu/nog/internal/infra/db/memory"
)

var fixedNow = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

// scriptedRequester returns the queued outcomes in order, repeating the last
type scriptedRequester struct {
	mu       sync.Mutex
	results  []domain.Result
	errs     []error
	calls    int
	requests []domain.Request
}

func (s *scriptedRequester) Analyze(_ context.Context, req domain.Request) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	s.requests = append(s.requests, req)
	if i >= len(s.errs) {
		i = len(s.errs) - 1
	}
	if i >= 0 && s.errs[i] != nil {
		return domain.Result{}, s.errs[i]
	}
	if len(s.results) == 0 {
		return domain.Result{Status: domain.StatusSafe, FlaggedIngredients: []string{}}, nil
	}
	return s.results[0], nil
}

// countingRepo records calls and can fail every Save
type countingRepo struct {
	*memory.CheckRepository
	saves   int
	saveErr error
}

func (r *countingRepo) Save(ctx context.Context, rec *checks.Record) (string, error) {
	r.saves++
	if r.saveErr != nil {
		return "", r.saveErr
	}
	return r.CheckRepository.Save(ctx, rec)
}

type recordingReporter struct {
	finished []error
	attempts []int
	failures []error
	users    []string
}

func (r *recordingReporter) AnalysisFinished(_ context.Context, _ domain.Kind, attempts int, err error) {
	r.attempts = append(r.attempts, attempts)
	r.finished = append(r.finished, err)
}

func (r *recordingReporter) PersistenceFailed(_ context.Context, userID string, err error) {
	r.users = append(r.users, userID)
	r.failures = append(r.failures, err)
}

type fakeArchive struct {
	key, mime string
	data      []byte
	err       error
}

func (a *fakeArchive) Put(_ context.Context, key string, data []byte, mime string) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.key, a.data, a.mime = key, data, mime
	return "http://minio:9000/labels/" + key, nil
}

// noWait records the retry delays without sleeping
type noWait struct{ delays []time.Duration }

func (n *noWait) sleep(ctx context.Context, d time.Duration) error {
	n.delays = append(n.delays, d)
	return ctx.Err()
}

func newService(req domain.Requester, repo checks.Repository, rep Reporter, wait *noWait) *Service {
	return &Service{
		Image:    req,
		Text:     req,
		Checks:   repo,
		Reporter: rep,
		Clock:    application.FixedClock{T: fixedNow},
		Backoff:  retry.Backoff{Sleep: wait.sleep},
		NewID:    func() string { return "check-1" },
	}
}

func TestAnalyze_AnonymousNeverTouchesRepository(t *testing.T) {
	repo := &countingRepo{CheckRepository: memory.NewCheckRepository()}
	req := &scriptedRequester{results: []domain.Result{{Status: domain.StatusUnsafe, FlaggedIngredients: []string{"wheat"}}}}
	svc := newService(req, repo, &recordingReporter{}, &noWait{})

	res, err := svc.Analyze(context.Background(), domain.NewTextRequest("wheat", nil), "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnsafe, res.Status)
	assert.Equal(t, 0, repo.saves)
	assert.Equal(t, 0, repo.Len())
}

func TestAnalyze_PersistenceFailureStillReturnsResult(t *testing.T) {
	boom := errors.New("database unavailable")
	repo := &countingRepo{CheckRepository: memory.NewCheckRepository(), saveErr: boom}
	rep := &recordingReporter{}
	want := domain.Result{Status: domain.StatusSafe, FlaggedIngredients: []string{}, Explanation: "No gluten."}
	svc := newService(&scriptedRequester{results: []domain.Result{want}}, repo, rep, &noWait{})

	res, err := svc.Analyze(context.Background(), domain.NewTextRequest("rice", nil), "u1")
	require.NoError(t, err)
	assert.Equal(t, want, res)
	assert.Equal(t, 1, repo.saves)
	require.Len(t, rep.failures, 1)
	assert.ErrorIs(t, rep.failures[0], boom)
	assert.Equal(t, []string{"u1"}, rep.users)
}

func TestAnalyze_RetriesThenSucceeds(t *testing.T) {
	req := &scriptedRequester{errs: []error{domain.ErrTransport, domain.ErrRateLimited, nil}}
	rep := &recordingReporter{}
	wait := &noWait{}
	svc := newService(req, nil, rep, wait)

	_, err := svc.Analyze(context.Background(), domain.NewTextRequest("rice", nil), "")
	require.NoError(t, err)
	assert.Equal(t, 3, req.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, wait.delays)
	assert.Equal(t, []int{3}, rep.attempts)
	assert.Nil(t, rep.finished[0])
}

func TestAnalyze_ExhaustedRetriesClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind domain.ErrorKind
	}{
		{"rate limited", domain.ErrRateLimited, domain.ErrorRateLimited},
		{"network", domain.ErrTransport, domain.ErrorNetwork},
		{"server error", &domain.ProviderStatusError{StatusCode: 503, Err: errors.New("overloaded")}, domain.ErrorUnrecoverable},
		{"malformed", domain.ErrMalformedEnvelope, domain.ErrorUnrecoverable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &scriptedRequester{errs: []error{tt.err}}
			repo := &countingRepo{CheckRepository: memory.NewCheckRepository()}
			rep := &recordingReporter{}
			wait := &noWait{}
			svc := newService(req, repo, rep, wait)

			_, err := svc.Analyze(context.Background(), domain.NewTextRequest("rice", nil), "u1")
			var ae *domain.AnalysisError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.kind, ae.Kind)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 3, req.calls)
			assert.Len(t, wait.delays, 2)
			assert.Equal(t, 0, repo.saves)
			assert.Equal(t, []int{3}, rep.attempts)
		})
	}
}

func TestAnalyze_CanceledReturnsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	req := &scriptedRequester{errs: []error{domain.ErrTransport}}
	svc := newService(req, nil, &recordingReporter{}, &noWait{})
	svc.Backoff.Sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	_, err := svc.Analyze(ctx, domain.NewTextRequest("rice", nil), "")
	assert.ErrorIs(t, err, context.Canceled)
	var ae *domain.AnalysisError
	assert.False(t, errors.As(err, &ae))
	assert.Equal(t, 1, req.calls)
}

func TestAnalyze_InvalidRequest(t *testing.T) {
	req := &scriptedRequester{}
	svc := newService(req, nil, nil, &noWait{})

	_, err := svc.Analyze(context.Background(), domain.NewTextRequest("   ", nil), "u1")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = svc.Analyze(context.Background(), domain.NewImageRequest(nil, "image/png", nil), "u1")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	svc.Image = nil
	_, err = svc.Analyze(context.Background(), domain.NewImageRequest([]byte{1}, "image/png", nil), "u1")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Equal(t, 0, req.calls)
}

func TestAnalyze_ImageCheckIsArchivedAndSaved(t *testing.T) {
	text := "Ingredients: rice, salt"
	req := &scriptedRequester{results: []domain.Result{{
		Status: domain.StatusSafe, FlaggedIngredients: []string{}, Explanation: "ok", ExtractedText: &text,
	}}}
	repo := &countingRepo{CheckRepository: memory.NewCheckRepository()}
	archive := &fakeArchive{}
	svc := newService(req, repo, &recordingReporter{}, &noWait{})
	svc.Images = archive

	_, err := svc.Analyze(context.Background(), domain.NewImageRequest([]byte("png"), "image/png", []string{"caffeine"}), "u7")
	require.NoError(t, err)

	assert.Equal(t, "u7/check-1.png", archive.key)
	assert.Equal(t, "image/png", archive.mime)
	rec, err := repo.Get(context.Background(), "check-1")
	require.NoError(t, err)
	assert.Equal(t, checks.CheckTypeImage, rec.CheckType)
	assert.Equal(t, text, rec.IngredientText)
	assert.Equal(t, "http://minio:9000/labels/u7/check-1.png", rec.ImageURL)
	assert.Equal(t, []string{"gluten", "caffeine"}, rec.Allergens)
	assert.True(t, rec.Result.Safe)
	assert.Equal(t, fixedNow, rec.Timestamp)
}

func TestAnalyze_ArchiveFailureStillSaves(t *testing.T) {
	repo := &countingRepo{CheckRepository: memory.NewCheckRepository()}
	rep := &recordingReporter{}
	svc := newService(&scriptedRequester{}, repo, rep, &noWait{})
	svc.Images = &fakeArchive{err: errors.New("bucket missing")}

	_, err := svc.Analyze(context.Background(), domain.NewImageRequest([]byte("jpg"), "", nil), "u1")
	require.NoError(t, err)

	rec, err := repo.Get(context.Background(), "check-1")
	require.NoError(t, err)
	assert.Equal(t, checks.ImagePlaceholderText, rec.IngredientText)
	assert.Empty(t, rec.ImageURL)
	assert.Len(t, rep.failures, 1)
}

func TestAnalyze_PersistOutlivesCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	repo := &ctxRepo{CheckRepository: memory.NewCheckRepository()}
	req := &cancelAfter{cancel: cancel}
	svc := newService(req, repo, &recordingReporter{}, &noWait{})

	_, err := svc.Analyze(ctx, domain.NewTextRequest("rice", nil), "u1")
	require.NoError(t, err)
	assert.NoError(t, repo.seen)
	assert.Equal(t, 1, repo.Len())
}

// cancelAfter succeeds and then cancels the caller's context
type cancelAfter struct{ cancel func() }

func (c *cancelAfter) Analyze(context.Context, domain.Request) (domain.Result, error) {
	defer c.cancel()
	return domain.Result{Status: domain.StatusSafe, FlaggedIngredients: []string{}}, nil
}

type ctxRepo struct {
	*memory.CheckRepository
	seen error
}

func (r *ctxRepo) Save(ctx context.Context, rec *checks.Record) (string, error) {
	r.seen = ctx.Err()
	return r.CheckRepository.Save(ctx, rec)
}

// Gluten and caffeine selected, signed in as u1, provider answers UNSAFE.
func TestAnalyze_GlutenCaffeineScenario(t *testing.T) {
	completion := `{"status":"UNSAFE","flaggedIngredients":["wheat flour","coffee extract"],"explanation":"contains gluten and caffeine"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: completion},
			}},
		})
	}))
	defer srv.Close()

	client, err := aiopenai.NewClient(aiopenai.Config{APIKey: "test-key", BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	repo := memory.NewCheckRepository()
	svc := newService(&aiopenai.TextRequester{Client: client}, repo, &recordingReporter{}, &noWait{})

	res, err := svc.Analyze(context.Background(),
		domain.NewTextRequest("wheat flour, coffee extract, sugar", []string{"gluten", "caffeine"}), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnsafe, res.Status)
	assert.Equal(t, []string{"wheat flour", "coffee extract"}, res.FlaggedIngredients)
	assert.Equal(t, "contains gluten and caffeine", res.Explanation)
	assert.Nil(t, res.ExtractedText)

	list, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	rec := list[0]
	assert.Equal(t, checks.CheckTypeManual, rec.CheckType)
	assert.Equal(t, "wheat flour, coffee extract, sugar", rec.IngredientText)
	assert.Equal(t, []string{"gluten", "caffeine"}, rec.Allergens)
	assert.False(t, rec.Result.Safe)
	assert.False(t, rec.IsFavorite)
	assert.Equal(t, fixedNow, rec.Timestamp)
}
