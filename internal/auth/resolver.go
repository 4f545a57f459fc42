// Package auth resolves the requesting user's identity. Verification itself
// is an external collaborator (API gateway / hosted identity provider); this
// package only decides where the verified identifier is read from.
package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/jobtrackr/jobtrackr-api/internal/apperrors"
)

// UserIDHeader is the claims header the gateway attaches after verifying
// the bearer token.
const UserIDHeader = "x-user-id"

// bodyUserIDKey is where handlers stash a body-supplied user_id for the
// BodyResolver.
const bodyUserIDKey = "body_user_id"

// Resolver maps an incoming request to a user identifier or rejects it.
type Resolver interface {
	Resolve(c *gin.Context) (string, *apperrors.AppError)
}

// NewResolver returns the resolver for the configured auth mode.
func NewResolver(mode string) Resolver {
	if mode == "body" {
		return BodyResolver{}
	}
	return HeaderResolver{}
}

// HeaderResolver reads the identity claim forwarded by the gateway.
type HeaderResolver struct{}

func (HeaderResolver) Resolve(c *gin.Context) (string, *apperrors.AppError) {
	userID := c.GetHeader(UserIDHeader)
	if userID == "" {
		return "", apperrors.Unauthorized("missing identity claim")
	}
	return userID, nil
}

// BodyResolver reads user_id from the request itself: the stashed body
// field for writes, the user_id query parameter otherwise. Legacy
// multi-tenant mode; deployments with an identity layer use HeaderResolver.
type BodyResolver struct{}

func (BodyResolver) Resolve(c *gin.Context) (string, *apperrors.AppError) {
	if userID := c.GetString(bodyUserIDKey); userID != "" {
		return userID, nil
	}
	if userID := c.Query("user_id"); userID != "" {
		return userID, nil
	}
	return "", apperrors.Unauthorized("user_id is required")
}

// StashBodyUserID records a body-supplied user_id for later resolution.
func StashBodyUserID(c *gin.Context, userID string) {
	if userID != "" {
		c.Set(bodyUserIDKey, userID)
	}
}
