package echoapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/smartclass/portal/core"
	"github.com/smartclass/portal/core/account"
)

const (
	contextClaimsKey    = "sessionClaims"
	contextPrincipalKey = "principal"
	bearerPrefix        = "Bearer "
)

// Claims represents the session claims transmitted via a JWT.
// The token ID (jti) is what logout revokes.
type Claims struct {
	jwt.StandardClaims
	Username string       `json:"username,omitempty"`
	Role     account.Role `json:"role"`
}

func (c Claims) AccountID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

func newClaims(conf *core.Config, p account.Principal) *Claims {
	now := time.Now()
	acc := p.GetAccount()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Issuer:    conf.AppName,
			Subject:   strconv.FormatInt(acc.ID, 10),
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: acc.Username,
		Role:     p.Role(),
	}
}

// GenerateToken generates a signed JWT token string representing the session Claims.
func GenerateToken(secret string, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func parseToken(secret, tokenStr string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errUnauthorized
	}
	return claims, nil
}

func (s *Server) tokenFromRequest(ctx echo.Context) string {
	if cookie, err := ctx.Cookie(s.Conf.Server.SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if auth := ctx.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, bearerPrefix) {
		return strings.TrimPrefix(auth, bearerPrefix)
	}
	return ""
}

// sessionMiddleware authenticates the request and, when role is set, requires a principal of that role.
func (s *Server) sessionMiddleware(role account.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			tokenStr := s.tokenFromRequest(ctx)
			if tokenStr == "" {
				return errUnauthorized
			}
			claims, err := parseToken(s.Conf.SecretKey, tokenStr)
			if err != nil {
				return err
			}

			rctx := ctx.Request().Context()
			revoked, err := s.Revoker.IsRevoked(rctx, claims.Id)
			if err != nil {
				return errors.Wrap(err, "checking session revocation")
			}
			if revoked {
				return errUnauthorized
			}
			if role != "" && claims.Role != role {
				return errHttpForbidden
			}

			accID, err := claims.AccountID()
			if err != nil {
				return errUnauthorized
			}
			p, err := s.AccountSvc.ResolvePrincipal(rctx, accID, claims.Role)
			if err != nil {
				if core.IsNotFound(err) {
					return errUnauthorized
				}
				return errors.Wrap(err, "resolving principal")
			}
			if !p.GetAccount().IsActive {
				return errAccountDeactivated
			}

			ctx.Set(contextClaimsKey, claims)
			ctx.Set(contextPrincipalKey, p)
			return next(ctx)
		}
	}
}

func getContextClaims(ctx echo.Context) (*Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*Claims); ok {
		return claims, nil
	}
	return nil, errUnauthorized
}

func getContextPrincipal(ctx echo.Context) (account.Principal, error) {
	if p, ok := ctx.Get(contextPrincipalKey).(account.Principal); ok {
		return p, nil
	}
	return nil, errUnauthorized
}

func getContextStudent(ctx echo.Context) (*account.Student, error) {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	return account.AsStudent(p)
}

func getContextFaculty(ctx echo.Context) (*account.Faculty, error) {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return nil, err
	}
	return account.AsFaculty(p)
}

// startSession issues a token for p and sets it as the session cookie.
func (s *Server) startSession(ctx echo.Context, p account.Principal) (string, error) {
	claims := newClaims(s.Conf, p)
	token, err := GenerateToken(s.Conf.SecretKey, claims)
	if err != nil {
		return "", err
	}
	ctx.SetCookie(&http.Cookie{
		Name:     s.Conf.Server.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Unix(claims.ExpiresAt, 0),
		HttpOnly: true,
		Secure:   !s.Conf.Debug,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

func (s *Server) logout(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err := s.Revoker.Revoke(ctx.Request().Context(), claims.Id, time.Unix(claims.ExpiresAt, 0)); err != nil {
		return errors.Wrap(err, "revoking session")
	}
	ctx.SetCookie(&http.Cookie{
		Name:     s.Conf.Server.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return ctx.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}
