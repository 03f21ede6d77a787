// Package auth resolves the calling user from gateway-provided identity
// headers. Token verification happens upstream; by the time a request reaches
// this service, X-User-Id is trusted.
package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chroniclekeep/chronicle-backend/internal/users"
)

const (
	CtxExternalUID = "external_uid"
	CtxUserDBID    = "user_db_id"
)

func WithUser(userRepo *users.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if uid == "" {
			uid = "demo-user"
		}

		id, err := userRepo.EnsureUser(c.Request.Context(), users.UpsertUser{
			ExternalUID: uid,
			Email:       c.GetHeader("X-User-Email"),
			DisplayName: c.GetHeader("X-User-Name"),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ensure user: " + err.Error()})
			c.Abort()
			return
		}

		c.Set(CtxExternalUID, uid)
		c.Set(CtxUserDBID, id)
		c.Next()
	}
}

// UserDBID returns the internal user id set by WithUser, empty when absent.
func UserDBID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxUserDBID))
}
