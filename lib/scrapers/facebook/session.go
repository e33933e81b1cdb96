package facebook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"groupfeed-backend/lib/browser"
	"groupfeed-backend/lib/sessionstore"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

// Outcome is the terminal result of one restore-or-login cycle.
type Outcome int

const (
	OutcomeAuthenticated Outcome = iota
	OutcomeTwoFactorPending
	OutcomeUnknown
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeTwoFactorPending:
		return "two_factor_pending"
	case OutcomeUnknown:
		return "unknown"
	default:
		return "failed"
	}
}

type state int

const (
	stateNoSession state = iota
	stateRestoring
	stateCredentialExpired
	stateFreshLogin
	stateAuthenticated
	stateTwoFactorPending
	stateUnknown
	stateFailed
)

// SessionManager owns the authentication state machine. Each call to
// Establish performs exactly one restore-or-login cycle; there is no
// retry loop around it.
type SessionManager struct {
	Jar     sessionstore.Store
	JarName string

	// ControlWait bounds every per-candidate wait while locating login
	// controls.
	ControlWait time.Duration
	// TwoFactorWait bounds how long a detected two-factor challenge is
	// given to be completed out-of-band, polled at TwoFactorPoll.
	TwoFactorWait time.Duration
	TwoFactorPoll time.Duration
}

func (m *SessionManager) controlWait() time.Duration {
	if m.ControlWait > 0 {
		return m.ControlWait
	}
	return time.Second * 5
}

func (m *SessionManager) twoFactorWait() time.Duration {
	if m.TwoFactorWait > 0 {
		return m.TwoFactorWait
	}
	return time.Minute * 2
}

func (m *SessionManager) twoFactorPoll() time.Duration {
	if m.TwoFactorPoll >= time.Second*5 {
		return m.TwoFactorPoll
	}
	return time.Second * 5
}

// Establish drives the state machine to a terminal outcome. A non-nil
// error is only returned alongside OutcomeFailed; the caller remains
// responsible for releasing the browsing session.
func (m *SessionManager) Establish(ctx context.Context, sess browser.Session, email, password string) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "session:Establish")
	defer span.End()

	st := stateNoSession
	var failure error
	for {
		switch st {
		case stateNoSession:
			if m.Jar.Exists(m.JarName) {
				st = stateRestoring
			} else {
				st = stateFreshLogin
			}

		case stateRestoring:
			err := m.restore(ctx, sess)
			switch {
			case err == nil:
				st = stateAuthenticated
			case errors.Is(err, ErrSessionInvalid):
				slog.WarnContext(ctx, "persisted session rejected, performing fresh login")
				st = stateCredentialExpired
			default:
				failure = err
				st = stateFailed
			}

		case stateCredentialExpired:
			err := m.Jar.Delete(m.JarName)
			if err != nil {
				slog.WarnContext(ctx, "failed to discard expired session jar", "err", err)
			}
			st = stateFreshLogin

		case stateFreshLogin:
			if email == "" || password == "" {
				failure = fmt.Errorf("no valid session and no credentials provided")
				st = stateFailed
				break
			}
			outcome, err := m.login(ctx, sess, email, password)
			if err != nil {
				failure = err
				st = stateFailed
				break
			}
			switch outcome {
			case OutcomeAuthenticated:
				st = stateAuthenticated
			case OutcomeTwoFactorPending:
				st = stateTwoFactorPending
			default:
				st = stateUnknown
			}

		case stateAuthenticated:
			m.persistJar(ctx, sess)
			return OutcomeAuthenticated, nil

		case stateTwoFactorPending:
			// deliberately leaves any previously persisted jar intact
			return OutcomeTwoFactorPending, nil

		case stateUnknown:
			slog.WarnContext(ctx, "login finished in an unknown state")
			return OutcomeUnknown, nil

		case stateFailed:
			span.RecordError(failure)
			span.SetStatus(codes.Error, "authentication failed")
			return OutcomeFailed, failure
		}
	}
}

// restore applies the persisted jar to the session and revalidates it
// with a forced reload.
func (m *SessionManager) restore(ctx context.Context, sess browser.Session) error {
	ctx, span := tracer.Start(ctx, "session:restore")
	defer span.End()

	cookies, err := m.Jar.Load(m.JarName)
	if err != nil {
		return err
	}

	// cookies need a loaded origin before they can be attached
	err = sess.Navigate(ctx, DesktopURL)
	if err != nil {
		return err
	}
	if err := sess.Sleep(ctx, time.Second); err != nil {
		return err
	}
	for _, c := range cookies {
		err := sess.AddCookie(ctx, c)
		if err != nil {
			slog.WarnContext(ctx, "failed to attach cookie", "name", c.Name, "err", err)
		}
	}
	if err := sess.Reload(ctx); err != nil {
		return err
	}
	if err := sess.Sleep(ctx, time.Second*3); err != nil {
		return err
	}

	ok, err := m.isLoggedIn(ctx, sess)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionInvalid
	}
	return nil
}

// isLoggedIn is the single login-status heuristic. Layered checks, most
// reliable first: challenge url, login-form fields in the markup, feed
// or navigation landmarks, then a main-domain fallback.
func (m *SessionManager) isLoggedIn(ctx context.Context, sess browser.Session) (bool, error) {
	url, err := sess.CurrentURL(ctx)
	if err != nil {
		return false, err
	}
	if strings.Contains(url, "login.php") ||
		strings.Contains(url, "/login/") ||
		strings.Contains(url, "checkpoint") {
		return false, nil
	}

	markup, err := sess.PageMarkup(ctx)
	if err != nil {
		return false, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return false, err
	}
	if doc.Find("input#email").Length() > 0 && doc.Find("input#pass").Length() > 0 {
		return false, nil
	}

	landmarks, err := sess.FindAll(ctx, browser.Css(`div[role="feed"], div[role="main"], div[role="navigation"]`))
	if err != nil {
		return false, err
	}
	if len(landmarks) > 0 {
		return true, nil
	}

	return strings.Contains(url, "facebook.com"), nil
}

var emailCandidates = []browser.Locator{
	browser.Css("input#email"),
	browser.Css(`input[name="email"]`),
	browser.Css(`input[type="email"]`),
	browser.Css(`input[data-testid="royal_email"]`),
}

var passwordCandidates = []browser.Locator{
	browser.Css("input#pass"),
	browser.Css(`input[name="pass"]`),
	browser.Css(`input[type="password"]`),
	browser.Css(`input[data-testid="royal_pass"]`),
}

var submitCandidates = []browser.Locator{
	browser.Css(`button[name="login"]`),
	browser.Css(`button[type="submit"]`),
	browser.Css(`input[type="submit"]`),
	browser.Css(`button[data-testid="royal_login_button"]`),
}

var twoFactorMarkers = []string{
	"Two-factor authentication",
	"two_step_verification",
	"approve your login",
}

var rejectionMarkers = []string{
	"The password that you",
	"incorrect password",
	"Wrong credentials",
}

func (m *SessionManager) login(ctx context.Context, sess browser.Session, email, password string) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "session:login")
	defer span.End()

	url, err := sess.CurrentURL(ctx)
	if err != nil {
		return OutcomeFailed, err
	}
	if !strings.Contains(url, "facebook.com") {
		if err := sess.Navigate(ctx, DesktopURL); err != nil {
			return OutcomeFailed, err
		}
	}
	if err := sess.Sleep(ctx, time.Second*2); err != nil {
		return OutcomeFailed, err
	}

	emailField, err := m.findControl(ctx, sess, "email field", emailCandidates)
	if err != nil {
		return OutcomeFailed, err
	}
	if err := fillControl(ctx, emailField, email); err != nil {
		return OutcomeFailed, err
	}
	if err := sess.Sleep(ctx, time.Millisecond*500); err != nil {
		return OutcomeFailed, err
	}

	passwordField, err := m.findControl(ctx, sess, "password field", passwordCandidates)
	if err != nil {
		return OutcomeFailed, err
	}
	if err := fillControl(ctx, passwordField, password); err != nil {
		return OutcomeFailed, err
	}
	if err := sess.Sleep(ctx, time.Millisecond*500); err != nil {
		return OutcomeFailed, err
	}

	submit, err := m.findControl(ctx, sess, "login button", submitCandidates)
	if err != nil {
		return OutcomeFailed, err
	}
	if err := submit.Click(ctx); err != nil {
		return OutcomeFailed, err
	}
	if err := sess.Sleep(ctx, time.Second*3); err != nil {
		return OutcomeFailed, err
	}

	markup, err := sess.PageMarkup(ctx)
	if err != nil {
		return OutcomeFailed, err
	}
	url, err = sess.CurrentURL(ctx)
	if err != nil {
		return OutcomeFailed, err
	}

	if containsAny(markup, twoFactorMarkers) || strings.Contains(url, "checkpoint") {
		slog.InfoContext(ctx, "two-factor challenge detected, waiting for out-of-band approval",
			"bound", m.twoFactorWait())
		return m.awaitTwoFactor(ctx, sess)
	}
	if containsAny(markup, rejectionMarkers) {
		return OutcomeFailed, ErrAuthRejected
	}

	ok, err := m.isLoggedIn(ctx, sess)
	if err != nil {
		return OutcomeFailed, err
	}
	if ok {
		return OutcomeAuthenticated, nil
	}
	return OutcomeUnknown, nil
}

// awaitTwoFactor gives the human operator a bounded window to finish
// the challenge. Success is only ever concluded from page state, never
// from elapsed time.
func (m *SessionManager) awaitTwoFactor(ctx context.Context, sess browser.Session) (Outcome, error) {
	deadline := time.Now().Add(m.twoFactorWait())
	for time.Now().Before(deadline) {
		if err := sess.Sleep(ctx, m.twoFactorPoll()); err != nil {
			return OutcomeFailed, err
		}
		ok, err := m.isLoggedIn(ctx, sess)
		if err == nil && ok {
			return OutcomeAuthenticated, nil
		}
	}

	ok, err := m.isLoggedIn(ctx, sess)
	if err == nil && ok {
		return OutcomeAuthenticated, nil
	}
	return OutcomeTwoFactorPending, nil
}

func (m *SessionManager) findControl(ctx context.Context, sess browser.Session, name string, candidates []browser.Locator) (browser.Element, error) {
	for _, loc := range candidates {
		el, err := sess.WaitUntilPresent(ctx, loc, m.controlWait())
		if err != nil {
			continue
		}
		slog.DebugContext(ctx, "located login control", "control", name, "locator", loc.String())
		return el, nil
	}
	return nil, FieldNotFoundError{Field: name}
}

func fillControl(ctx context.Context, el browser.Element, value string) error {
	err := el.Clear(ctx)
	if err != nil {
		return err
	}
	return el.SendKeys(ctx, value)
}

// persistJar saves the live cookie jar so later runs can skip login.
// Best effort: a persistence failure never downgrades a successful
// authentication.
func (m *SessionManager) persistJar(ctx context.Context, sess browser.Session) {
	cookies, err := sess.Cookies(ctx)
	if err != nil {
		slog.WarnContext(ctx, "could not read cookies for persistence", "err", err)
		return
	}
	err = m.Jar.Save(m.JarName, cookies)
	if err != nil {
		slog.WarnContext(ctx, "could not persist session jar", "err", err)
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
