package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ms-venues/internal/logger"

	"github.com/coreos/go-oidc/v3/oidc"
)

type contextKey string

const (
	subjectKey contextKey = "subject"
	emailKey   contextKey = "email"
)

// Middleware verifies bearer tokens against the OIDC issuer and stores the
// subject and email claims in the request context.
func Middleware(ctx context.Context, issuer string, log *logger.Logger) (func(http.Handler) http.Handler, error) {
	if issuer == "" {
		return nil, errors.New("OIDC issuer not configured")
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("create OIDC provider: %w", err)
	}
	// No client id check: admin tokens come from several clients of the realm.
	verifier := provider.Verifier(&oidc.Config{SkipClientIDCheck: true})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := bearerToken(r)
			if err != nil {
				log.LogSecurity("AUTH", err.Error())
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			idToken, err := verifier.Verify(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("AUTH", fmt.Sprintf("invalid token: %v", err))
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			var claims struct {
				Sub   string `json:"sub"`
				Email string `json:"email"`
			}
			if err := idToken.Claims(&claims); err != nil {
				http.Error(w, "failed to parse claims", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), claims.Sub, claims.Email)))
		})
	}, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing Authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid Authorization header format")
	}
	return parts[1], nil
}

// WithIdentity stores the caller in ctx. The OIDC middleware uses it, and so
// do tests and local runs with auth disabled.
func WithIdentity(ctx context.Context, subject, email string) context.Context {
	ctx = context.WithValue(ctx, subjectKey, subject)
	return context.WithValue(ctx, emailKey, email)
}

func Subject(ctx context.Context) string {
	if v, ok := ctx.Value(subjectKey).(string); ok {
		return v
	}
	return ""
}

func Email(ctx context.Context) string {
	if v, ok := ctx.Value(emailKey).(string); ok {
		return v
	}
	return ""
}

// StaffChecker answers whether an email belongs to an active staff identity.
type StaffChecker interface {
	IsStaffEmail(ctx context.Context, email string) (bool, error)
}

// RequireStaff admits only callers whose identity has admin access.
func RequireStaff(checker StaffChecker, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email := Email(r.Context())
			if email == "" {
				log.LogSecurity("STAFF", "token carries no email claim")
				http.Error(w, "unauthenticated", http.StatusUnauthorized)
				return
			}
			ok, err := checker.IsStaffEmail(r.Context(), email)
			if err != nil {
				log.Error("AUTH", fmt.Sprintf("staff lookup for %s: %v", email, err))
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if !ok {
				log.LogSecurity("STAFF", fmt.Sprintf("%s denied admin access", email))
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
