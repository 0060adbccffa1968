// Package sso implements the credential broker: it exchanges a stored
// refresh token for a short-lived access token on demand and persists
// rotated credential pairs.
package sso

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eve-companion/internal/config"
	"github.com/eve-companion/internal/logging"
	"github.com/eve-companion/internal/models"
	"github.com/eve-companion/internal/storage"
	"github.com/eve-companion/internal/syncerr"
)

// tokenExpirySkew refreshes slightly early so a token never expires
// mid-request.
const tokenExpirySkew = 30 * time.Second

// ErrInvalidGrant means the refresh token was rejected terminally (revoked
// grant). The owning account must re-authenticate.
var ErrInvalidGrant = errors.New("sso: invalid grant")

// TokenStore persists rotated credential pairs.
type TokenStore interface {
	UpdateTokens(ctx context.Context, characterID int64, accessToken string, expires time.Time, refreshToken string) error
}

// Broker exchanges refresh tokens for access tokens against the SSO token
// endpoint, with a Redis cache in front so a token is refreshed only when
// it is near expiry.
type Broker struct {
	tokenURL  string
	clientID  string
	secretKey string
	userAgent string
	client    *http.Client
	store     TokenStore
	cache     *storage.RedisCache
}

// NewBroker creates a credential broker. cache may be nil.
func NewBroker(cfg *config.SSOConfig, store TokenStore, cache *storage.RedisCache) (*Broker, error) {
	if cfg.ClientID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("sso client credentials are required")
	}
	if store == nil {
		return nil, fmt.Errorf("token store cannot be nil")
	}

	return &Broker{
		tokenURL:  cfg.TokenURL,
		clientID:  cfg.ClientID,
		secretKey: cfg.SecretKey,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: 15 * time.Second},
		store:     store,
		cache:     cache,
	}, nil
}

// tokenResponse is the SSO token endpoint payload
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Error        string `json:"error"`
}

// AccessToken returns a valid access token for the character, refreshing via
// the token endpoint when the stored one is expired. A successful refresh
// mutates the character's stored credential pair. Returns ErrInvalidGrant
// (wrapped in a credential-class FetchError) on terminal invalidity.
func (b *Broker) AccessToken(ctx context.Context, character *models.Character) (string, error) {
	cacheKey := fmt.Sprintf("sso:access:%d", character.CharacterID)

	if b.cache != nil {
		token, err := b.cache.Get(ctx, cacheKey)
		if err == nil && token != "" {
			return token, nil
		}
	}

	now := time.Now()
	if character.AccessToken != "" && !character.TokenExpired(now) {
		b.cacheToken(ctx, cacheKey, character.AccessToken, character.AccessTokenExpires)
		return character.AccessToken, nil
	}

	return b.Refresh(ctx, character)
}

// Refresh forces a token refresh regardless of stored expiry.
func (b *Broker) Refresh(ctx context.Context, character *models.Character) (string, error) {
	logger := logging.FromContext(ctx).WithField("character_id", character.CharacterID)

	if character.RefreshToken == "" {
		return "", syncerr.NewCredentialError(character.CharacterID, "token_refresh",
			fmt.Errorf("no refresh token stored"))
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", character.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", syncerr.NewTransientError(character.CharacterID, "token_refresh", err)
	}
	req.SetBasicAuth(b.clientID, b.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", b.userAgent)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", syncerr.NewTransientError(character.CharacterID, "token_refresh", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", syncerr.NewTransientError(character.CharacterID, "token_refresh", err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil && resp.StatusCode == http.StatusOK {
		return "", syncerr.NewTransientError(character.CharacterID, "token_refresh",
			fmt.Errorf("malformed token response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		// invalid_grant means the user revoked access; anything else 4xx from
		// the token endpoint is equally unrecoverable without re-login.
		logger.WithField("sso_error", tr.Error).Warn("Refresh token rejected")
		return "", syncerr.NewCredentialError(character.CharacterID, "token_refresh",
			fmt.Errorf("%w: %s", ErrInvalidGrant, tr.Error))
	default:
		return "", syncerr.NewTransientError(character.CharacterID, "token_refresh",
			fmt.Errorf("token endpoint returned status %d", resp.StatusCode))
	}

	expires := time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	refreshToken := tr.RefreshToken
	if refreshToken == "" {
		refreshToken = character.RefreshToken
	}

	if err := b.store.UpdateTokens(ctx, character.CharacterID, tr.AccessToken, expires, refreshToken); err != nil {
		// The token is still usable for this run even if persistence failed.
		logger.WithError(err).Error("Failed to persist rotated tokens")
	}

	character.AccessToken = tr.AccessToken
	character.AccessTokenExpires = expires
	character.RefreshToken = refreshToken

	b.cacheToken(ctx, fmt.Sprintf("sso:access:%d", character.CharacterID), tr.AccessToken, expires)

	return tr.AccessToken, nil
}

// Invalidate drops any cached access token for the character
func (b *Broker) Invalidate(ctx context.Context, characterID int64) {
	if b.cache == nil {
		return
	}
	_ = b.cache.Del(ctx, fmt.Sprintf("sso:access:%d", characterID)) // nolint:errcheck // best-effort
}

func (b *Broker) cacheToken(ctx context.Context, key, token string, expires time.Time) {
	if b.cache == nil {
		return
	}
	ttl := time.Until(expires) - tokenExpirySkew
	if ttl <= 0 {
		return
	}
	if err := b.cache.Set(ctx, key, token, ttl); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Failed to cache access token")
	}
}
