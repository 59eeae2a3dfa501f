package handler

import (
	"time"

	"pix-transfer-gateway/internal/adapter/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// actingAccount extracts the authenticated account ID set by JWTAuth.
func actingAccount(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(middleware.CtxAccountID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// sessionToken extracts the token id and expiry set by JWTAuth.
func sessionToken(c *gin.Context) (tokenID string, expiresAt time.Time, ok bool) {
	idVal, idOK := c.Get(middleware.CtxTokenID)
	expVal, expOK := c.Get(middleware.CtxTokenExpiry)
	if !idOK || !expOK {
		return "", time.Time{}, false
	}
	tokenID, idOK = idVal.(string)
	expiresAt, expOK = expVal.(time.Time)
	return tokenID, expiresAt, idOK && expOK
}
