package storage

import (
	"context"
	"sync"
	"time"

	"go.lumeweb.com/backup-agent/internal/config"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
)

// NewTokenSource exchanges the long-lived refresh token for short-lived
// access tokens on demand. Tokens live in memory only.
func NewTokenSource(ctx context.Context, cfg config.OAuthConfig, endpoint oauth2.Endpoint, logger *zap.Logger) oauth2.TokenSource {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}

	// Config.TokenSource already caches until expiry
	base := oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	return &loggingTokenSource{
		base:   base,
		logger: logger,
	}
}

type loggingTokenSource struct {
	base   oauth2.TokenSource
	logger *zap.Logger

	mu         sync.Mutex
	lastExpiry time.Time
}

func (s *loggingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		s.logger.Error("Failed to refresh access token", zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !token.Expiry.Equal(s.lastExpiry) {
		s.lastExpiry = token.Expiry
		s.logger.Debug("Access token refreshed",
			zap.Time("expiry", token.Expiry),
		)
	}

	return token, nil
}
