// Package firebase is a server-side SDK for the Firebase REST APIs:
// Cloud Messaging sends (single and batched) and Auth account listing.
// An App owns the credentials and the HTTP transport; per-API clients
// are handed out by Messaging and Auth.
package firebase

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ROR44/firebase-admin-go/pkg/auth"
	"github.com/ROR44/firebase-admin-go/pkg/messaging"
	"github.com/ROR44/firebase-admin-go/pkg/metric"
	"github.com/ROR44/firebase-admin-go/pkg/transport"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// https://firebase.google.com/docs/reference/fcm/rest/v1/projects.messages/send#authorization-scopes
	scopeMessaging = "https://www.googleapis.com/auth/firebase.messaging"
	// https://cloud.google.com/identity-platform/docs/reference/rest/v1/projects.accounts/batchGet
	scopeIdentityToolkit = "https://www.googleapis.com/auth/identitytoolkit"

	defaultTimeout = 10 * time.Second
)

// App is the entry point of the SDK.
type App struct {
	projectID string
	transport *transport.Client
	logger    *zap.Logger
	metrics   *metric.Service
}

type appOptions struct {
	httpClient *http.Client
	tokens     transport.TokenSource
	logger     *zap.Logger
	metrics    *metric.Service
}

type Option func(*appOptions)

// WithHTTPClient replaces the default HTTP client (and with it the
// timeout from Config).
func WithHTTPClient(hc *http.Client) Option {
	return func(o *appOptions) { o.httpClient = hc }
}

// WithTokenSource injects already-managed credentials; the
// service-account file in Config is then ignored.
func WithTokenSource(tokens transport.TokenSource) Option {
	return func(o *appOptions) { o.tokens = tokens }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *appOptions) { o.logger = logger }
}

// WithMetrics registers prometheus counters for every client the App
// hands out.
func WithMetrics(m *metric.Service) Option {
	return func(o *appOptions) { o.metrics = m }
}

func NewApp(cfg *Config, opts ...Option) (*App, error) {

	if cfg == nil {
		cfg = &Config{}
	}

	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	projectID := cfg.ProjectID

	if o.tokens == nil {
		if cfg.ServiceAccount == "" {
			return nil, errors.New("service-account file or token source is required")
		}

		serviceAccount, err := readServiceAccount(cfg.ServiceAccount)
		if err != nil {
			return nil, errors.Wrap(err, "service account")
		}

		o.tokens, err = transport.NewServiceAccountTokenSource(serviceAccount,
			scopeMessaging, scopeIdentityToolkit)
		if err != nil {
			return nil, err
		}

		if projectID == "" {
			projectID, err = projectIDFromServiceAccount(serviceAccount)
			if err != nil {
				return nil, err
			}
		}
	}

	if projectID == "" {
		return nil, errors.New("project id is required")
	}

	if o.httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		o.httpClient = &http.Client{Timeout: timeout}
	}

	return &App{
		projectID: projectID,
		transport: transport.NewClient(o.httpClient, o.tokens),
		logger:    o.logger,
		metrics:   o.metrics,
	}, nil
}

func (a *App) ProjectID() string {
	return a.projectID
}

// Messaging returns a Cloud Messaging client backed by the App's
// transport.
func (a *App) Messaging() (*messaging.Client, error) {

	opts := []messaging.Option{
		messaging.WithLogger(a.logger.With(zap.String("api", "messaging"))),
	}

	if a.metrics != nil {
		m, err := a.metrics.GetClientMetrics("messaging", a.projectID)
		if err != nil {
			return nil, err
		}
		opts = append(opts, messaging.WithMetrics(m))
	}

	return messaging.NewClient(a.transport, a.projectID, opts...)
}

// Auth returns a Firebase Auth client backed by the App's transport.
func (a *App) Auth() (*auth.Client, error) {
	return auth.NewClient(a.transport, a.projectID,
		auth.WithLogger(a.logger.With(zap.String("api", "auth"))))
}

func projectIDFromServiceAccount(serviceAccount []byte) (string, error) {

	account := &struct {
		ProjectID string `json:"project_id"`
	}{}

	if err := json.Unmarshal(serviceAccount, account); err != nil {
		return "", errors.Wrap(err, "account")
	}

	if account.ProjectID == "" {
		return "", errors.New("service account has no project_id")
	}

	return account.ProjectID, nil
}
