package analysis

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/nog/internal/application"
	"github.com/bryanwahyu/nog/internal/application/retry"
	domain "github.com/bryanwahyu/nog/internal/domain/analysis"
	"github.com/bryanwahyu/nog/internal/domain/checks"
)

const defaultPersistTimeout = 10 * time.Second

// Reporter receives analysis outcomes and persistence failures. It is the
// only channel persistence errors travel on.
type Reporter interface {
	AnalysisFinished(ctx context.Context, kind domain.Kind, attempts int, err error)
	PersistenceFailed(ctx context.Context, userID string, err error)
}

// Service is the analysis entry point used by the HTTP layer.
// Each Analyze call is independent; callers are responsible for not
// submitting the same user action twice while one is in flight.
type Service struct {
	Image    domain.Requester
	Text     domain.Requester
	Checks   checks.Repository
	Images   checks.ImageArchive // optional
	Reporter Reporter
	Clock    application.Clock
	Backoff  retry.Backoff
	Logger   *zap.Logger

	// PersistTimeout bounds the save that follows a successful analysis.
	PersistTimeout time.Duration
	NewID          func() string
}

// Analyze runs req through the matching requester with bounded retry. When
// userID is non-empty the result is also saved as a check; that save is
// best-effort and never changes what Analyze returns.
//
// Errors: ErrInvalidRequest for bad input, ctx.Err() on cancellation, and
// *AnalysisError once every attempt has failed.
func (s *Service) Analyze(ctx context.Context, req domain.Request, userID string) (domain.Result, error) {
	if err := req.Validate(); err != nil {
		return domain.Result{}, err
	}
	requester, err := s.requester(req.Kind)
	if err != nil {
		return domain.Result{}, err
	}

	attempts := 0
	res, err := retry.Do(ctx, s.Backoff, func(ctx context.Context) (domain.Result, error) {
		attempts++
		return requester.Analyze(ctx, req)
	})
	if err != nil {
		if !canceled(ctx, err) {
			err = domain.Classify(err)
		}
		s.reporter().AnalysisFinished(ctx, req.Kind, attempts, err)
		return domain.Result{}, err
	}
	s.reporter().AnalysisFinished(ctx, req.Kind, attempts, nil)

	if userID != "" {
		s.persist(ctx, req, res, userID)
	}
	return res, nil
}

func (s *Service) requester(kind domain.Kind) (domain.Requester, error) {
	var r domain.Requester
	switch kind {
	case domain.KindImage:
		r = s.Image
	case domain.KindText:
		r = s.Text
	}
	if r == nil {
		return nil, fmt.Errorf("%w: no requester for kind %q", domain.ErrInvalidRequest, kind)
	}
	return r, nil
}

// persist saves the check on a context detached from the caller so a client
// navigating away after the verdict arrived does not lose the record.
func (s *Service) persist(ctx context.Context, req domain.Request, res domain.Result, userID string) {
	if s.Checks == nil {
		return
	}
	timeout := s.PersistTimeout
	if timeout <= 0 {
		timeout = defaultPersistTimeout
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	rec := s.record(req, res, userID)
	if req.Kind == domain.KindImage && s.Images != nil {
		key := path.Join(userID, rec.ID+extension(req.MimeType))
		url, err := s.Images.Put(pctx, key, req.Image, req.MimeType)
		if err != nil {
			s.reporter().PersistenceFailed(pctx, userID, fmt.Errorf("archive image: %w", err))
		} else {
			rec.ImageURL = url
		}
	}

	if _, err := s.Checks.Save(pctx, rec); err != nil {
		s.reporter().PersistenceFailed(pctx, userID, err)
		return
	}
	s.logger().Debug("check saved", zap.String("user_id", userID), zap.String("check_id", rec.ID))
}

func (s *Service) record(req domain.Request, res domain.Result, userID string) *checks.Record {
	rec := &checks.Record{
		ID:        s.newID(),
		UserID:    userID,
		Allergens: append([]string(nil), req.Allergens...),
		Result: checks.Result{
			Safe:               res.Status == domain.StatusSafe,
			FlaggedIngredients: append([]string{}, res.FlaggedIngredients...),
			Explanation:        res.Explanation,
		},
		Timestamp: s.now(),
	}
	switch req.Kind {
	case domain.KindImage:
		rec.CheckType = checks.CheckTypeImage
		rec.IngredientText = checks.ImagePlaceholderText
		if res.ExtractedText != nil && *res.ExtractedText != "" {
			rec.IngredientText = *res.ExtractedText
		}
	default:
		rec.CheckType = checks.CheckTypeManual
		rec.IngredientText = req.Content
	}
	return rec
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return application.SystemClock{}.Now()
}

func (s *Service) reporter() Reporter {
	if s.Reporter != nil {
		return s.Reporter
	}
	return nopReporter{}
}

func (s *Service) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

type nopReporter struct{}

func (nopReporter) AnalysisFinished(context.Context, domain.Kind, int, error) {}
func (nopReporter) PersistenceFailed(context.Context, string, error)        {}

// canceled reports whether err comes from the caller's own context rather
// than from a provider call that timed out.
func canceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil && errors.Is(err, ctx.Err())
}

func extension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/heic":
		return ".heic"
	default:
		return ".jpg"
	}
}
