package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/infra/logging"
	"github.com/abdulbosit19980204/journal/internal/usecase"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Claims are issued by the accounts service. Subject is the user id.
// Role is informational; the admin flags stored with the user decide access.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
	issuer string
	users  usecase.UserUseCase
	log    *zerolog.Logger
}

func NewAuthenticator(secret, issuer string, users usecase.UserUseCase, logger *zerolog.Logger) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer, users: users, log: logger}
}

// Mint signs a token for userID. Used by the seed tool and tests.
func (a *Authenticator) Mint(userID, email, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) parse(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !tok.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return &claims, nil
}

type userKey struct{}

// UserFrom returns the authenticated billing user.
func UserFrom(ctx context.Context) *model.User {
	u, _ := ctx.Value(userKey{}).(*model.User)
	return u
}

// Authenticate requires a Bearer token and loads (or creates) the billing user.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "UNAUTHENTICATED", Message: "missing bearer token"})
			return
		}
		claims, err := a.parse(strings.TrimSpace(raw))
		if err != nil {
			logging.With(r.Context(), a.log).Debug().Err(err).Msg("token rejected")
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "UNAUTHENTICATED", Message: "invalid token"})
			return
		}

		ctx := logging.WithUserID(r.Context(), claims.Subject)
		user, err := a.users.RegisterOrFetch(ctx, claims.Subject, claims.Email)
		if err != nil {
			writeError(w, logging.With(ctx, a.log), err)
			return
		}
		if claims.Role != "" {
			logging.With(ctx, a.log).Trace().Str("role", claims.Role).Msg("authenticated")
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, userKey{}, user)))
	})
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := UserFrom(r.Context()); u == nil || !u.IsAdmin {
			writeJSON(w, http.StatusForbidden, errorBody{Error: "FORBIDDEN", Message: "admin role required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireFinance admits admins and finance admins.
func RequireFinance(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !UserFrom(r.Context()).CanManageFinance() {
			writeJSON(w, http.StatusForbidden, errorBody{Error: "FORBIDDEN", Message: "finance role required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
