package transport

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
)

// TokenSource supplies OAuth2 bearer tokens for outgoing calls.
type TokenSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// NewServiceAccountTokenSource builds a token source from a
// service-account JSON key, downloaded from
// https://console.firebase.google.com/project/_/settings/serviceaccounts/adminsdk
//
// Tokens are cached and re-minted only after they expire.
func NewServiceAccountTokenSource(serviceAccount []byte, scopes ...string) (TokenSource, error) {

	cfg, err := google.JWTConfigFromJSON(serviceAccount, scopes...)
	if err != nil {
		return nil, errors.Wrap(err, "jwt config")
	}

	return &serviceAccountSource{cfg: cfg}, nil
}

type serviceAccountSource struct {
	cfg   *jwt.Config
	token atomic.Value
}

func (s *serviceAccountSource) Token(ctx context.Context) (*oauth2.Token, error) {

	if src := s.token.Load(); src != nil {
		token := src.(*oauth2.Token)
		if token.Valid() {
			return token, nil
		}
	}

	token, err := s.cfg.TokenSource(ctx).Token()
	if err != nil {
		return nil, errors.Wrap(err, "jwt token")
	}

	s.token.Store(token)

	return token, nil
}

// StaticTokenSource returns a source that always yields the same bearer
// token. Intended for callers that manage credentials themselves and for
// tests.
func StaticTokenSource(accessToken string) TokenSource {
	return staticSource{
		token: &oauth2.Token{
			AccessToken: accessToken,
			TokenType:   "Bearer",
		},
	}
}

type staticSource struct {
	token *oauth2.Token
}

func (s staticSource) Token(context.Context) (*oauth2.Token, error) {
	return s.token, nil
}
