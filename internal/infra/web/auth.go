package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"course-enrollment/internal/domain/model"
	"course-enrollment/internal/infra/logging"
)

var (
	errUnauthenticated = errors.New("unauthenticated")
	errForbidden       = errors.New("forbidden")
)

// Claims identify the caller. Identity proofing happens upstream; this
// service only verifies the signature and reads uid and role.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) UID() string { return c.Subject }

// AuthManager signs and verifies HS256 identity tokens.
type AuthManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthManager(secret string, ttl time.Duration) *AuthManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AuthManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue mints a token for uid. Used by operators and tests.
func (a *AuthManager) Issue(uid string, role model.Role) (string, error) {
	now := a.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *AuthManager) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, errUnauthenticated
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errUnauthenticated
	}
	if claims.Role == "" {
		claims.Role = model.RoleStudent
	}
	return claims, nil
}

type claimsKey struct{}

func claimsFrom(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// authenticate attaches verified claims to the request context.
func (a *AuthManager) authenticate(r *http.Request) (*http.Request, *Claims, error) {
	tok := bearer(r)
	if tok == "" {
		return r, nil, errUnauthenticated
	}
	c, err := a.Parse(tok)
	if err != nil {
		return r, nil, err
	}
	ctx := context.WithValue(r.Context(), claimsKey{}, c)
	ctx = logging.WithUserID(ctx, c.UID())
	ctx = logging.WithRole(ctx, string(c.Role))
	return r.WithContext(ctx), c, nil
}

// RequireRole admits callers whose token carries one of roles. An empty
// list admits any authenticated caller.
func (a *AuthManager) RequireRole(roles ...model.Role) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r2, c, err := a.authenticate(r)
			if err != nil {
				writeError(w, err)
				return
			}
			if !hasRole(c.Role, roles) {
				writeError(w, errForbidden)
				return
			}
			next.ServeHTTP(w, r2)
		})
	}
}

// RequireJobTokenOrStaff admits schedulers presenting X-Job-Token, or staff.
func (a *AuthManager) RequireJobTokenOrStaff(jobToken string) Middleware {
	staff := a.RequireRole(model.RoleStaff)
	return func(next http.Handler) http.Handler {
		staffNext := staff(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("X-Job-Token"); got != "" && jobToken != "" &&
				subtle.ConstantTimeCompare([]byte(got), []byte(jobToken)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
			staffNext.ServeHTTP(w, r)
		})
	}
}

func hasRole(role model.Role, allowed []model.Role) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
