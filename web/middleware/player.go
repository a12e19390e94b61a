package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	PlayerCookieName = "dialog_player"
	PlayerHeader     = "X-Player-ID"
	CookieMaxAge     = 30 * 24 * 60 * 60 // 30 days
)

// PlayerMiddleware resolves the player id from the X-Player-ID header or the
// player cookie. A request carrying neither is assigned a fresh id, returned
// as a cookie.
func PlayerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(PlayerHeader)
		if raw == "" {
			cookie, err := c.Cookie(PlayerCookieName)
			if err != nil && err != http.ErrNoCookie {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Failed to parse player cookie"})
				return
			}
			raw = cookie
		}

		var playerID uuid.UUID
		if raw == "" {
			playerID = uuid.New()
			c.SetCookie(PlayerCookieName, playerID.String(), CookieMaxAge, "/", "", false, true)
		} else {
			parsed, err := uuid.Parse(raw)
			if err != nil || parsed == uuid.Nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid player ID"})
				return
			}
			playerID = parsed
		}

		c.Set("playerID", playerID)
		c.Next()
	}
}
