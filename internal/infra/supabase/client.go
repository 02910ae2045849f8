package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"quiz-portal/internal/auth"
	"quiz-portal/internal/domain"
	"quiz-portal/internal/metrics"

	"github.com/sirupsen/logrus"
)

// Provider talks to the GoTrue REST API of a Supabase project.
type Provider struct {
	baseURL    string
	apiKey     string
	jwtSecret  string
	httpClient *http.Client
	log        *logrus.Entry
	metrics    *metrics.Metrics
}

// NewProvider returns a GoTrue client. When jwtSecret is set, access tokens are
// verified locally before any user lookup.
func NewProvider(baseURL, apiKey, jwtSecret string, log *logrus.Entry, m *metrics.Metrics) *Provider {
	return &Provider{
		baseURL:    strings.TrimRight(baseURL, "/") + "/auth/v1",
		apiKey:     apiKey,
		jwtSecret:  jwtSecret,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log.WithField("component", "supabase_auth"),
		metrics:    m,
	}
}

var _ auth.Provider = (*Provider)(nil)

type gotrueUser struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
	ConfirmedAt      *time.Time `json:"confirmed_at"`
	Identities       *[]struct {
		ID string `json:"id"`
	} `json:"identities"`
}

func (u gotrueUser) domain() domain.User {
	confirmed := u.ConfirmedAt
	if confirmed == nil {
		confirmed = u.EmailConfirmedAt
	}
	return domain.User{ID: u.ID, Email: u.Email, ConfirmedAt: confirmed}
}

type tokenResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	User         gotrueUser `json:"user"`
}

// apiError covers both the legacy and the current GoTrue error shapes.
type apiError struct {
	Status           int    `json:"-"`
	Code             string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Err              string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e *apiError) Error() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.Err} {
		if s != "" {
			return fmt.Sprintf("gotrue %d: %s", e.Status, s)
		}
	}
	return fmt.Sprintf("gotrue %d", e.Status)
}

func (e *apiError) text() string {
	return strings.ToLower(strings.Join([]string{e.Code, e.Msg, e.Message, e.Err, e.ErrorDescription}, " "))
}

// classify maps GoTrue errors onto the domain taxonomy.
func classify(err error) error {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		return err
	}
	text := apiErr.text()
	switch {
	case strings.Contains(text, "email_not_confirmed"), strings.Contains(text, "email not confirmed"):
		return fmt.Errorf("%w: %v", domain.ErrEmailNotConfirmed, err)
	case strings.Contains(text, "invalid_credentials"), strings.Contains(text, "invalid login credentials"),
		strings.Contains(text, "invalid_grant"):
		return fmt.Errorf("%w: %v", domain.ErrInvalidCredentials, err)
	case apiErr.Status == http.StatusUnauthorized, apiErr.Status == http.StatusForbidden:
		return fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}
	return err
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (auth.Session, error) {
	var resp tokenResponse
	err := p.do(ctx, http.MethodPost, "/token?grant_type=password", "", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	p.metrics.ObserveExternal("gotrue_sign_in", err)
	if err != nil {
		return auth.Session{}, classify(err)
	}
	return auth.Session{User: resp.User.domain(), AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}, nil
}

// SignUp registers an account. GoTrue answers a sign-up for an already
// registered email with a user that has no identities.
func (p *Provider) SignUp(ctx context.Context, email, password, redirectURL string) (auth.SignUpResult, error) {
	path := "/signup"
	if redirectURL != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectURL)
	}

	var raw json.RawMessage
	err := p.do(ctx, http.MethodPost, path, "", map[string]string{
		"email":    email,
		"password": password,
	}, &raw)
	p.metrics.ObserveExternal("gotrue_sign_up", err)
	if err != nil {
		return auth.SignUpResult{}, classify(err)
	}

	// Autoconfirmed projects return a session, others return the bare user.
	var withSession tokenResponse
	if err := json.Unmarshal(raw, &withSession); err == nil && withSession.AccessToken != "" {
		user := withSession.User.domain()
		return auth.SignUpResult{
			User: user,
			Session: &auth.Session{
				User:         user,
				AccessToken:  withSession.AccessToken,
				RefreshToken: withSession.RefreshToken,
			},
		}, nil
	}

	var user gotrueUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return auth.SignUpResult{}, fmt.Errorf("decode sign up response: %w", err)
	}
	existing := user.Identities != nil && len(*user.Identities) == 0
	return auth.SignUpResult{User: user.domain(), Existing: existing}, nil
}

func (p *Provider) SignOut(ctx context.Context, accessToken string) error {
	err := p.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
	p.metrics.ObserveExternal("gotrue_sign_out", err)
	if err != nil {
		return classify(err)
	}
	return nil
}

func (p *Provider) GetUser(ctx context.Context, accessToken string) (domain.User, error) {
	if p.jwtSecret != "" {
		if _, err := auth.ValidateToken(accessToken, p.jwtSecret); err != nil {
			return domain.User{}, err
		}
	}

	var user gotrueUser
	err := p.do(ctx, http.MethodGet, "/user", accessToken, nil, &user)
	p.metrics.ObserveExternal("gotrue_user", err)
	if err != nil {
		return domain.User{}, classify(err)
	}
	return user.domain(), nil
}

func (p *Provider) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gotrue request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			p.log.WithError(err).WithField("status", resp.StatusCode).Debug("undecodable gotrue error body")
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gotrue response: %w", err)
	}
	return nil
}
