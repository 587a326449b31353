package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/isdelr/microblog-be/internal/flash"
	"github.com/isdelr/microblog-be/internal/models"
	"github.com/rs/zerolog/log"
)

// Token lifetimes for a normal sign-in and for "remember me".
const (
	SessionTTL  = 24 * time.Hour
	RememberTTL = 30 * 24 * time.Hour
)

// CookieName is the cookie carrying the viewer's token.
const CookieName = "token"

// Claims defines the JWT claims structure.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserClaimsKey is the context key for user claims.
type contextKey string

const UserClaimsKey = contextKey("userClaims")

// Authenticator issues and checks viewer tokens.
type Authenticator struct {
	key    []byte
	secure bool
}

// NewAuthenticator creates an Authenticator signing with secret. secure marks
// cookies as HTTPS-only.
func NewAuthenticator(secret string, secure bool) *Authenticator {
	return &Authenticator{key: []byte(secret), secure: secure}
}

// GenerateJWT creates a new JWT for a given user valid for ttl.
func (a *Authenticator) GenerateJWT(user models.User, ttl time.Duration) (string, time.Time, error) {
	expirationTime := time.Now().Add(ttl)
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expirationTime),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.key)
	return signed, expirationTime, err
}

// ValidateJWT parses and validates a JWT string.
func (a *Authenticator) ValidateJWT(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return a.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// SetCookie stores token in the session cookie. A remembered sign-in gets a
// persistent cookie, otherwise it ends with the browser session.
func (a *Authenticator) SetCookie(w http.ResponseWriter, token string, expires time.Time, remember bool) {
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	}
	if remember {
		cookie.Expires = expires
	}
	http.SetCookie(w, cookie)
}

// ClearCookie ends the cookie session.
func (a *Authenticator) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})
}

// tokenFromRequest reads the bearer token from the Authorization header or
// falls back to the cookie.
func tokenFromRequest(r *http.Request) (token string, bearer bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if t, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
			return t, true
		}
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value, false
	}
	return "", false
}

// Viewer attaches the claims of a valid token to the request context. Requests
// without a valid token pass through anonymously.
func (a *Authenticator) Viewer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, _ := tokenFromRequest(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := a.ValidateJWT(tokenStr)
			if err != nil {
				log.Debug().Err(err).Msg("Ignoring invalid auth token")
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// Require rejects anonymous requests. API clients using a bearer token get a
// 401; browser clients are sent to loginPath with a next parameter.
func Require(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := ClaimsFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}
			if _, bearer := tokenFromRequest(r); bearer {
				http.Error(w, "Invalid auth token", http.StatusUnauthorized)
				return
			}
			flash.Add(w, r, "Please log in to access this page.")
			http.Redirect(w, r, loginPath+"?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
		})
	}
}

// WithClaims returns a copy of ctx carrying the viewer's claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, UserClaimsKey, claims)
}

// ClaimsFromContext returns the viewer's claims, if the request is authenticated.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*Claims)
	return claims, ok && claims != nil
}
