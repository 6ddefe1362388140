package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/domain"
	apperrors "github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/errors"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/httpclient"
)

const (
	ProviderGoogle = "google"

	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	maxUserInfoBytes  = 1 << 20
)

var errEmailNotVerified = errors.New("email address is not verified")

// GoogleConfig configures sign-in with Google.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Endpoint and UserInfoURL default to Google's production endpoints.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

// GoogleProvider signs people in with their Google account.
type GoogleProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
	client      *http.Client
	logger      *slog.Logger
}

// NewGoogleProvider creates a Google provider. client carries every call to
// Google, token exchange included; pass one built by httpclient.New.
func NewGoogleProvider(cfg GoogleConfig, client *http.Client, logger *slog.Logger) *GoogleProvider {
	if cfg.Endpoint.AuthURL == "" {
		cfg.Endpoint = endpoints.Google
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = googleUserInfoURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     cfg.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: cfg.UserInfoURL,
		client:      client,
		logger:      logger,
	}
}

func (p *GoogleProvider) Name() string { return ProviderGoogle }

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type googleUserInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Exchange redeems code and reads the userinfo endpoint. Only verified
// addresses are accepted, since the email is what links accounts.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*domain.ExternalProfile, error) {
	if code == "" {
		return nil, apperrors.InvalidInput("authorization code is required")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, p.fail(ctx, "exchange code", err)
	}

	info, err := p.userInfo(ctx, tok)
	if err != nil {
		return nil, p.fail(ctx, "fetch userinfo", err)
	}
	if !info.EmailVerified {
		return nil, p.fail(ctx, "check email", errEmailNotVerified)
	}

	return &domain.ExternalProfile{
		Provider:  ProviderGoogle,
		Subject:   info.Subject,
		Email:     info.Email,
		Name:      info.Name,
		AvatarURL: info.Picture,
	}, nil
}

func (p *GoogleProvider) userInfo(ctx context.Context, tok *oauth2.Token) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := p.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, err
	}
	if err := httpclient.CheckResponse(resp, ProviderGoogle); err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var info googleUserInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxUserInfoBytes)).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &info, nil
}

func (p *GoogleProvider) fail(ctx context.Context, step string, err error) error {
	p.logger.ErrorContext(ctx, "identity provider request failed",
		slog.String("provider", ProviderGoogle),
		slog.String("step", step),
		slog.String("error", err.Error()),
	)
	return apperrors.ProviderError(ProviderGoogle, fmt.Errorf("%s: %w", step, err))
}
