package identity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	oidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/desertthunder/transcribeflow/internal/models"
	"github.com/desertthunder/transcribeflow/internal/server"
	"github.com/desertthunder/transcribeflow/internal/shared"
)

// OAuthProviderOpts configures an [OAuthProvider]. Nil fields get defaults.
type OAuthProviderOpts struct {
	Config          shared.IdentityConfig
	Store           TokenStore
	Logger          *log.Logger
	HTTPClient      *http.Client
	CallbackTimeout time.Duration
	// OpenBrowser launches the authorization URL; defaults to [shared.OpenBrowser].
	OpenBrowser func(url string) error
}

// OAuthProvider implements [Provider] over an OAuth2 session.
type OAuthProvider struct {
	cfg             shared.IdentityConfig
	store           TokenStore
	logger          *log.Logger
	httpClient      *http.Client
	callbackTimeout time.Duration
	openBrowser     func(string) error

	mu       sync.Mutex
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
	token    *oauth2.Token
	user     *models.User
}

// NewOAuthProvider creates an [OAuthProvider]. No network calls are made until Load or Login.
func NewOAuthProvider(opts OAuthProviderOpts) *OAuthProvider {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}
	return &OAuthProvider{
		cfg:             opts.Config,
		store:           opts.Store,
		logger:          opts.Logger,
		httpClient:      opts.HTTPClient,
		callbackTimeout: opts.CallbackTimeout,
		openBrowser:     opts.OpenBrowser,
	}
}

type claims struct {
	jwt.RegisteredClaims
	Email             string `json:"email"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
}

func (p *OAuthProvider) clientContext(ctx context.Context) context.Context {
	ctx = oidc.ClientContext(ctx, p.httpClient)
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// oauthConfig builds the OAuth2 config once, discovering endpoints when an issuer is set.
func (p *OAuthProvider) oauthConfig(ctx context.Context) (*oauth2.Config, error) {
	if p.oauth != nil {
		return p.oauth, nil
	}
	if !p.cfg.Configured() {
		return nil, ErrNotConfigured
	}

	scopes := p.cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "email", "profile"}
	}

	config := &oauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		RedirectURL:  p.cfg.RedirectURI,
		Scopes:       scopes,
		Endpoint:     oauth2.Endpoint{AuthURL: p.cfg.AuthURL, TokenURL: p.cfg.TokenURL},
	}

	if p.cfg.Issuer != "" {
		provider, err := oidc.NewProvider(p.clientContext(ctx), p.cfg.Issuer)
		if err != nil {
			return nil, fmt.Errorf("discover oidc provider: %w", err)
		}
		config.Endpoint = provider.Endpoint()
		p.verifier = provider.Verifier(&oidc.Config{ClientID: p.cfg.ClientID})
	}

	p.oauth = config
	return config, nil
}

// Load reads the stored session, refreshes it if expired and resolves the user from its ID token.
func (p *OAuthProvider) Load(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.user = nil
	p.token = nil

	if p.store == nil {
		return nil
	}

	token, err := p.store.LoadToken(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}
	if token == nil {
		return nil
	}

	token, err = p.fresh(ctx, token)
	if err != nil {
		return err
	}

	user, err := p.resolveUser(ctx, token)
	if err != nil {
		return err
	}

	p.token = token
	p.user = user
	p.logger.Debug("session loaded", "user", user.DisplayName(), "expires", token.Expiry)
	return nil
}

// fresh returns token, refreshing and persisting it first when it has expired.
func (p *OAuthProvider) fresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	if token.Valid() {
		return token, nil
	}
	if token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: session expired at %s", shared.ErrTokenExpired, token.Expiry.Format(time.RFC3339))
	}

	config, err := p.oauthConfig(ctx)
	if err != nil {
		return nil, err
	}

	idToken, _ := token.Extra("id_token").(string)

	refreshed, err := config.TokenSource(p.clientContext(ctx), token).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	// Refresh responses may omit the id_token; keep the previous one.
	if _, ok := refreshed.Extra("id_token").(string); !ok && idToken != "" {
		refreshed = refreshed.WithExtra(map[string]any{"id_token": idToken})
	}

	if err := p.store.SaveToken(ctx, refreshed); err != nil {
		p.logger.Warn("failed to persist refreshed session", "error", err)
	}
	return refreshed, nil
}

func (p *OAuthProvider) resolveUser(ctx context.Context, token *oauth2.Token) (*models.User, error) {
	raw, _ := token.Extra("id_token").(string)
	if raw == "" {
		raw = token.AccessToken
	}

	if p.cfg.Issuer != "" {
		if _, err := p.oauthConfig(ctx); err != nil {
			return nil, err
		}
	}

	var c claims
	if p.verifier != nil {
		idToken, err := p.verifier.Verify(p.clientContext(ctx), raw)
		if err != nil {
			return nil, fmt.Errorf("%w: verify id token: %v", shared.ErrAuthFailed, err)
		}
		if err := idToken.Claims(&c); err != nil {
			return nil, fmt.Errorf("%w: parse id token claims: %v", shared.ErrAuthFailed, err)
		}
	} else if _, _, err := jwt.NewParser().ParseUnverified(raw, &c); err != nil {
		// opaque access token: the session is real but anonymous
		p.logger.Debug("session token carries no readable claims", "error", err)
		return &models.User{ExpiresAt: token.Expiry}, nil
	}

	name := c.Name
	if name == "" {
		name = c.PreferredUsername
	}

	user := &models.User{ID: c.Subject, Email: c.Email, Name: name, ExpiresAt: token.Expiry}
	if c.ExpiresAt != nil && user.ExpiresAt.IsZero() {
		user.ExpiresAt = c.ExpiresAt.Time
	}
	return user, nil
}

// CurrentUser returns the user resolved by the last Load or Login.
func (p *OAuthProvider) CurrentUser() *models.User {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.user
}

// SessionToken returns the session's access token, refreshing it if it has expired.
func (p *OAuthProvider) SessionToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token == nil {
		return "", nil
	}

	token, err := p.fresh(ctx, p.token)
	if err != nil {
		return "", err
	}
	p.token = token
	return token.AccessToken, nil
}

// Login runs the authorization code flow through the browser and stores the resulting session.
func (p *OAuthProvider) Login(ctx context.Context) (*models.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	config, err := p.oauthConfig(ctx)
	if err != nil {
		return nil, err
	}

	addr, err := callbackAddr(config.RedirectURL)
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server on %s: %w", addr, err)
	}

	state, err := shared.GenerateState()
	if err != nil {
		ln.Close()
		return nil, err
	}

	handler := server.NewOAuthHandler(config, state, oauth2.GenerateVerifier())
	authURL := handler.AuthCodeURL(oauth2.AccessTypeOffline)

	p.logger.Info("waiting for browser sign-in", "url", authURL)

	cs := server.NewCallbackServer(ln, handler, p.logger, p.callbackTimeout)
	token, err := cs.Await(p.clientContext(ctx), func() error { return p.openBrowser(authURL) })
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	user, err := p.resolveUser(ctx, token)
	if err != nil {
		return nil, err
	}

	if p.store != nil {
		if err := p.store.SaveToken(ctx, token); err != nil {
			return nil, fmt.Errorf("failed to save session: %w", err)
		}
	}

	p.token = token
	p.user = user
	return user, nil
}

// Logout forgets the session locally.
func (p *OAuthProvider) Logout(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.token = nil
	p.user = nil
	if p.store == nil {
		return nil
	}
	return p.store.ClearToken(ctx)
}

func callbackAddr(redirect string) (string, error) {
	if redirect == "" {
		return "", fmt.Errorf("%w: set identity.redirect_uri or server.port", shared.ErrMissingConfig)
	}
	u, err := url.Parse(redirect)
	if err != nil || u.Host == "" {
		return "", errors.Join(shared.ErrInvalidConfig, fmt.Errorf("identity.redirect_uri %q", redirect), err)
	}
	return u.Host, nil
}
