package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yukikurage/taskflow-api/internal/constants"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
)

// RequireAuth rejects requests without a session user. The user id is
// copied into the context as a uint64.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionUserID(sessions.Default(c))
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		c.Set(constants.ContextKeyUserID, userID)
		c.Next()
	}
}

// StartSession replaces whatever the session held with userID.
func StartSession(c *gin.Context, userID uint64) error {
	session := sessions.Default(c)
	session.Clear()
	session.Set(constants.ContextKeyUserID, userID)
	return session.Save()
}

// EndSession clears the session and expires its cookie.
func EndSession(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	return session.Save()
}

// sessionUserID reads the user id back from the store. Depending on the
// store's codec it comes back as any integer kind.
func sessionUserID(session sessions.Session) (uint64, bool) {
	switch v := session.Get(constants.ContextKeyUserID).(type) {
	case uint64:
		return v, v != 0
	case uint:
		return uint64(v), v != 0
	case int64:
		return uint64(v), v > 0
	case int:
		return uint64(v), v > 0
	case float64:
		return uint64(v), v >= 1
	default:
		return 0, false
	}
}

// GetUserID returns the id RequireAuth stored.
func GetUserID(c *gin.Context) (uint64, bool) {
	id, ok := c.Get(constants.ContextKeyUserID)
	if !ok {
		return 0, false
	}
	userID, ok := id.(uint64)
	return userID, ok
}
