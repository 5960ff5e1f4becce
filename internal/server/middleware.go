package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tonimelisma/drivegate/internal/credential"
	"github.com/tonimelisma/drivegate/internal/drive"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// TokenHeader is the header the bearer token is read from. An
// "Authorization: Bearer" header is accepted as well.
const TokenHeader = "token"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	sessionKey
)

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func sessionFrom(ctx context.Context) *drive.Session {
	s, _ := ctx.Value(sessionKey).(*drive.Session)
	return s
}

// requestID keeps a caller-supplied X-Request-ID or assigns a new one, and
// echoes it on the response.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// statusRecorder remembers the status a handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}

	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}

	n, err := s.ResponseWriter.Write(b)
	s.bytes += n

	return n, err
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// logRequests emits one line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		s.logger.Info("request",
			slog.String("request_id", requestIDFrom(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Int("bytes", rec.bytes),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// recoverPanics turns a handler panic into the 500 envelope.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rv := recover()
			if rv == nil {
				return
			}

			if rv == http.ErrAbortHandler {
				panic(rv)
			}

			writeError(w, r, s.logger, fmt.Errorf("panic: %v", rv))
		}()

		next.ServeHTTP(w, r)
	})
}

// bearerToken reads the token header, falling back to Authorization.
func bearerToken(r *http.Request) string {
	if tok := strings.TrimSpace(r.Header.Get(TokenHeader)); tok != "" {
		return tok
	}

	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, tok, ok := strings.Cut(auth, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(tok)
	}

	return ""
}

// authenticate turns the bearer token into a Session for this request
// only. The Fernet key is looked up per request, so a missing key fails
// requests rather than startup.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, r, s.logger, NotAuthenticated())
			return
		}

		key := s.key()
		if key == "" {
			writeError(w, r, s.logger, &APIError{Status: http.StatusInternalServerError, Message: msgKeyMissing})
			return
		}

		bundle, err := credential.Codec{Key: key, TTL: s.tokenTTL}.Decrypt(token)
		if err != nil {
			if errors.Is(err, credential.ErrInvalidKey) {
				writeError(w, r, s.logger, Internal(err))
				return
			}

			writeError(w, r, s.logger, err)

			return
		}

		session, err := s.factory.Open(r.Context(), bundle)
		if err != nil {
			writeError(w, r, s.logger, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, session)))
	})
}
