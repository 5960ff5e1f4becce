package drive

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/tonimelisma/drivegate/internal/credential"
)

// ScopeDrive grants full read/write on the caller's Drive hierarchy.
const ScopeDrive = gdrive.DriveScope

// DefaultScopes are requested when a SessionFactory has none configured.
var DefaultScopes = []string{ScopeDrive}

// Session is an authenticated handle to the Drive API for one request.
// It is never cached or shared: a new bundle always means a new Session.
type Session struct {
	files     *gdrive.FilesService
	chunkSize int
	logger    *slog.Logger
}

// SessionFactory turns credential bundles into Sessions. The zero value
// talks to the production endpoints with DefaultScopes.
type SessionFactory struct {
	Scopes []string

	// TokenURL and Endpoint override the provider's OAuth2 token URI and
	// API base URL. Both are empty in production.
	TokenURL string
	Endpoint string

	// UploadChunkSize is passed to content uploads; 0 keeps the client
	// library's default.
	UploadChunkSize int

	// HTTPClient carries the token exchange when set.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Open authenticates bundle and returns a Session scoped to f.Scopes.
// The token handshake happens here, so a malformed bundle, a rejected
// signature and a network failure all surface as ErrNotAuthenticated.
func (f *SessionFactory) Open(ctx context.Context, bundle credential.Bundle) (*Session, error) {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}

	scopes := f.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	if err := bundle.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
	}

	keyJSON, err := bundle.ServiceAccountJSON(f.TokenURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
	}

	if f.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, f.HTTPClient)
	}

	jwtCfg, err := google.JWTConfigFromJSON(keyJSON, scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing service account: %w", ErrNotAuthenticated, err)
	}

	ts := jwtCfg.TokenSource(ctx)
	if _, err := ts.Token(); err != nil {
		logger.Warn("service account handshake failed",
			slog.String("client_email", bundle.ClientEmail),
			slog.String("error", err.Error()),
		)

		return nil, fmt.Errorf("%w: token exchange: %w", ErrNotAuthenticated, err)
	}

	opts := []option.ClientOption{option.WithTokenSource(ts)}
	if f.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(f.Endpoint))
	}

	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: building drive service: %w", ErrNotAuthenticated, err)
	}

	logger.Debug("drive session opened",
		slog.String("client_email", bundle.ClientEmail),
		slog.String("project_id", bundle.ProjectID),
	)

	return &Session{
		files:     svc.Files,
		chunkSize: f.UploadChunkSize,
		logger:    logger,
	}, nil
}
