// Package scraper owns the end-to-end scrape workflow: one browsing
// session at a time, authenticated through the session manager, fed
// through the extraction pipeline and persisted post by post.
package scraper

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"groupfeed-backend/lib/browser"
	"groupfeed-backend/lib/browser/chrome"
	"groupfeed-backend/lib/media"
	"groupfeed-backend/lib/poststore"
	"groupfeed-backend/lib/scrapers/facebook"
	"groupfeed-backend/lib/sessionstore"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/scraper")

type Credentials struct {
	Email    string
	Password string
}

// SessionOutcome is the user-facing summary of an authentication
// attempt.
type SessionOutcome struct {
	Success bool
	Status  string
	Message string
}

// ScrapeResult summarizes one feed scrape, including how the dedup gate
// split the extracted posts.
type ScrapeResult struct {
	Success      bool
	Message      string
	FeedName     string
	MemberCount  int
	Posts        []poststore.Post
	SavedCount   int
	SkippedCount int
}

type Options struct {
	DB      *sql.DB
	Jar     sessionstore.Store
	JarName string
	// Headless only applies to the default chrome-backed sessions.
	Headless bool
	// ProbeImages verifies scraped image urls with HEAD requests before
	// posts are persisted.
	ProbeImages bool
	// NewSession overrides how browsing sessions are created. Tests
	// inject fakes here.
	NewSession func(ctx context.Context) (browser.Session, error)
}

type Service struct {
	store      poststore.Store
	manager    *facebook.SessionManager
	pipeline   *facebook.Pipeline
	prober     *media.Prober
	newSession func(ctx context.Context) (browser.Session, error)

	mu   sync.Mutex
	sess browser.Session
}

func NewService(opts Options) *Service {
	if opts.JarName == "" {
		opts.JarName = "facebook"
	}
	newSession := opts.NewSession
	if newSession == nil {
		newSession = func(ctx context.Context) (browser.Session, error) {
			return chrome.NewSession(ctx, chrome.Options{Headless: opts.Headless})
		}
	}
	var prober *media.Prober
	if opts.ProbeImages {
		prober = media.NewProber()
	}
	return &Service{
		store: poststore.NewStore(opts.DB),
		manager: &facebook.SessionManager{
			Jar:     opts.Jar,
			JarName: opts.JarName,
		},
		pipeline:   &facebook.Pipeline{},
		prober:     prober,
		newSession: newSession,
	}
}

// EstablishSession opens a browsing session and drives it to an
// authentication outcome. The session is kept alive only when
// authentication fully succeeded; every other outcome releases it.
func (s *Service) EstablishSession(ctx context.Context, creds Credentials) (SessionOutcome, error) {
	ctx, span := tracer.Start(ctx, "EstablishSession")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess != nil {
		err := fmt.Errorf("a browsing session is already active")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return SessionOutcome{}, err
	}

	sess, err := s.newSession(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return SessionOutcome{}, err
	}

	outcome, err := s.manager.Establish(ctx, sess, creds.Email, creds.Password)
	span.SetAttributes(attribute.String("outcome", outcome.String()))
	if err != nil {
		s.closeSession(ctx, sess)
		span.RecordError(err)
		span.SetStatus(codes.Error, "authentication failed")
		return SessionOutcome{
			Status:  outcome.String(),
			Message: err.Error(),
		}, err
	}

	switch outcome {
	case facebook.OutcomeAuthenticated:
		s.sess = sess
		return SessionOutcome{
			Success: true,
			Status:  outcome.String(),
			Message: "session established",
		}, nil
	case facebook.OutcomeTwoFactorPending:
		s.closeSession(ctx, sess)
		return SessionOutcome{
			Status:  outcome.String(),
			Message: "two-factor challenge was not completed in time",
		}, nil
	default:
		s.closeSession(ctx, sess)
		return SessionOutcome{
			Status:  outcome.String(),
			Message: "could not determine login status",
		}, nil
	}
}

// ScrapeFeed extracts the group feed over the active session and runs
// every post through the dedup gate. A pipeline failure releases the
// session, since the browser is in an unknown state afterwards.
func (s *Service) ScrapeFeed(ctx context.Context, req facebook.Request) (ScrapeResult, error) {
	ctx, span := tracer.Start(ctx, "ScrapeFeed")
	defer span.End()
	span.SetAttributes(attribute.String("group_id", req.GroupID))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess == nil {
		err := fmt.Errorf("no active browsing session, establish one first")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ScrapeResult{}, err
	}

	feed, err := s.pipeline.ScrapeGroup(ctx, s.sess, req)
	if err != nil {
		s.closeSession(ctx, s.sess)
		s.sess = nil
		span.RecordError(err)
		span.SetStatus(codes.Error, "scrape failed")
		return ScrapeResult{Message: err.Error()}, err
	}

	result := ScrapeResult{
		Success:     true,
		FeedName:    feed.GroupName,
		MemberCount: feed.MemberCount,
		Posts:       feed.Posts,
	}
	for i := range result.Posts {
		if s.prober != nil {
			result.Posts[i].Images = s.prober.FilterLive(ctx, result.Posts[i].Images)
		}
		saved, err := s.store.Save(ctx, result.Posts[i])
		if err != nil {
			slog.WarnContext(ctx, "failed to save post",
				"url", result.Posts[i].Url, "err", err)
			continue
		}
		if saved == poststore.SaveSaved {
			result.SavedCount++
		} else {
			result.SkippedCount++
		}
	}
	result.Message = fmt.Sprintf(
		"extracted %d posts, saved %d, skipped %d duplicates",
		len(result.Posts), result.SavedCount, result.SkippedCount,
	)

	span.SetAttributes(
		attribute.Int("extracted", len(result.Posts)),
		attribute.Int("saved", result.SavedCount),
		attribute.Int("skipped", result.SkippedCount),
	)
	return result, nil
}

// ReleaseSession closes the active browsing session. Releasing when no
// session is active is a no-op.
func (s *Service) ReleaseSession(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "ReleaseSession")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return
	}
	s.closeSession(ctx, s.sess)
	s.sess = nil
}

// SessionActive reports whether a browsing session is currently held.
func (s *Service) SessionActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess != nil
}

func (s *Service) Posts(ctx context.Context) ([]poststore.Post, error) {
	return s.store.List(ctx)
}

func (s *Service) PostCount(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

func (s *Service) ClearPosts(ctx context.Context) error {
	return s.store.DeleteAll(ctx)
}

func (s *Service) closeSession(ctx context.Context, sess browser.Session) {
	err := sess.Close(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to close browsing session", "err", err)
	}
}
