package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HeaderActorID carries the verified actor identity supplied by the
// external auth collaborator in front of this service.
const HeaderActorID = "X-Actor-Id"

// ActorIdentity rejects admin requests without an actor identity and makes
// it available to handlers for audit attribution.
func ActorIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actorID := c.Request().Header.Get(HeaderActorID)
			if actorID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing actor identity")
			}
			c.Set("actor_id", actorID)
			return next(c)
		}
	}
}
