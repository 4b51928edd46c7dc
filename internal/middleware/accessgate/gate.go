package accessgate

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ordovik/eshop/internal/tokens"
	"github.com/ordovik/eshop/pkg/logging"
)

const (
	ContextUserID = "user_id"
	ContextRole   = "role"
	ContextClaims = "claims"
)

// Policy is the access rule attached to a route. Zero value means
// "authenticated, any role, no ownership check".
type Policy struct {
	// Public skips every check, token included.
	Public bool
	// Roles is the set of roles allowed through; empty means any role.
	Roles []string
	// OwnerParam names the path parameter carrying the owning user id. The
	// caller must match it unless their role is admin.
	OwnerParam string
}

type Gate struct {
	AccessSecret []byte
}

type check func(c echo.Context, claims *tokens.Claims) error

// Require builds the middleware for one route policy. Checks run in a fixed
// order and the first failure ends the request: public bypass, bearer token
// verification, role requirement, ownership requirement.
func (g *Gate) Require(p Policy) echo.MiddlewareFunc {
	checks := []check{
		roleCheck(p),
		ownershipCheck(p),
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if p.Public {
				return next(c)
			}

			claims, err := g.authenticate(c)
			if err != nil {
				return err
			}
			setUserContext(c, claims)

			for _, chk := range checks {
				if err := chk(c, claims); err != nil {
					return err
				}
			}
			return next(c)
		}
	}
}

func (g *Gate) authenticate(c echo.Context) (*tokens.Claims, error) {
	raw, err := bearerToken(c.Request())
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "no bearer token provided")
	}

	claims, err := tokens.Parse(raw, g.AccessSecret)
	if err != nil {
		logging.FromContext(c.Request().Context()).Warn("auth_failed", "error", err)
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	}
	return claims, nil
}

func roleCheck(p Policy) check {
	return func(c echo.Context, claims *tokens.Claims) error {
		if len(p.Roles) == 0 {
			return nil
		}
		for _, role := range p.Roles {
			if claims.Role == role {
				return nil
			}
		}
		return echo.NewHTTPError(http.StatusForbidden,
			fmt.Sprintf("requires one of roles [%s]", strings.Join(p.Roles, ", ")))
	}
}

func ownershipCheck(p Policy) check {
	return func(c echo.Context, claims *tokens.Claims) error {
		if p.OwnerParam == "" {
			return nil
		}
		owner := c.Param(p.OwnerParam)
		if owner == claims.Subject || claims.Role == "admin" {
			return nil
		}
		return echo.NewHTTPError(http.StatusForbidden, "you are not allowed to access this resource")
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", errors.New("no authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("not a bearer token")
	}
	return parts[1], nil
}

func setUserContext(c echo.Context, claims *tokens.Claims) {
	c.Set(ContextUserID, claims.Subject)
	c.Set(ContextRole, claims.Role)
	c.Set(ContextClaims, claims)
}
