package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	apperrors "tradeflow/internal/errors"
	"tradeflow/internal/server/respond"
)

// Claims are issued by the external session service. The subject is the user id.
type Claims struct {
	Role          Role `json:"role"`
	DistributorID int  `json:"distributorId,omitempty"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
	issuer string
	logger *zap.Logger
}

func NewAuthenticator(secret, issuer string, logger *zap.Logger) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer, logger: logger}
}

// Parse verifies an HS256 token and returns the caller it names.
func (a *Authenticator) Parse(token string) (Principal, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return Principal{}, fmt.Errorf("parsing token: %w", err)
	}

	if claims.Subject == "" {
		return Principal{}, errors.New("token has no subject")
	}
	switch claims.Role {
	case RoleAdmin, RoleDistributor, RoleRetailer, RoleGateway:
	default:
		return Principal{}, fmt.Errorf("unknown role %q", claims.Role)
	}

	return Principal{
		UserID:        claims.Subject,
		Role:          claims.Role,
		DistributorID: claims.DistributorID,
	}, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// caller in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respond.Error(w, r, a.logger, apperrors.NewUnauthorizedError("missing bearer token"))
			return
		}

		p, err := a.Parse(token)
		if err != nil {
			a.logger.Debug("rejected token", zap.Error(err))
			respond.Error(w, r, a.logger, apperrors.NewUnauthorizedError("invalid or expired token"))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// Require admits only callers whose role grants c.
func (a *Authenticator) Require(c Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := FromContext(r.Context())
			if !ok {
				respond.Error(w, r, a.logger, apperrors.NewUnauthorizedError("not authenticated"))
				return
			}
			if !p.Can(c) {
				respond.Error(w, r, a.logger, apperrors.NewForbiddenError(fmt.Sprintf("role %s lacks %s", p.Role, c)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
