package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pix-transfer-gateway/internal/core/ports"
	"pix-transfer-gateway/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func authTestRouter(t *testing.T, tokenSvc ports.TokenService, sessions ports.SessionRevoker) *gin.Engine {
	t.Helper()
	r := gin.New()
	r.GET("/protected", JWTAuth(tokenSvc, sessions, zerolog.Nop()), func(c *gin.Context) {
		id, _ := c.Get(CtxAccountID)
		c.JSON(http.StatusOK, gin.H{"account_id": id.(uuid.UUID).String()})
	})
	return r
}

func TestJWTAuth_ValidToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	tokenSvc := mocks.NewMockTokenService(ctrl)
	sessions := mocks.NewMockSessionRevoker(ctrl)

	accountID := uuid.New()
	tokenSvc.EXPECT().Validate("good-token").Return(&ports.TokenClaims{
		AccountID: accountID,
		TokenID:   "jti-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil)
	sessions.EXPECT().IsRevoked(gomock.Any(), "jti-1").Return(false, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	authTestRouter(t, tokenSvc, sessions).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), accountID.String())
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	tokenSvc := mocks.NewMockTokenService(ctrl)
	sessions := mocks.NewMockSessionRevoker(ctrl)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	authTestRouter(t, tokenSvc, sessions).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_005")
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	tokenSvc := mocks.NewMockTokenService(ctrl)
	sessions := mocks.NewMockSessionRevoker(ctrl)

	tokenSvc.EXPECT().Validate("bad-token").Return(nil, errors.New("parsing token: invalid"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	authTestRouter(t, tokenSvc, sessions).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_RevokedToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	tokenSvc := mocks.NewMockTokenService(ctrl)
	sessions := mocks.NewMockSessionRevoker(ctrl)

	tokenSvc.EXPECT().Validate("logged-out").Return(&ports.TokenClaims{
		AccountID: uuid.New(),
		TokenID:   "jti-revoked",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil)
	sessions.EXPECT().IsRevoked(gomock.Any(), "jti-revoked").Return(true, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer logged-out")
	authTestRouter(t, tokenSvc, sessions).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_005", "revoked token is indistinguishable from an invalid one")
}

func TestJWTAuth_DenylistUnavailableAllowsRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	tokenSvc := mocks.NewMockTokenService(ctrl)
	sessions := mocks.NewMockSessionRevoker(ctrl)

	tokenSvc.EXPECT().Validate("good-token").Return(&ports.TokenClaims{
		AccountID: uuid.New(),
		TokenID:   "jti-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil)
	sessions.EXPECT().IsRevoked(gomock.Any(), "jti-1").Return(false, errors.New("redis down"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	authTestRouter(t, tokenSvc, sessions).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecovery_CatchesPanic(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zerolog.Nop()))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "SYS_001")
}

func TestMaxBodySize_RejectsOversizedBody(t *testing.T) {
	r := gin.New()
	r.Use(MaxBodySize(16))
	r.POST("/echo", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, body)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"key":"`+strings.Repeat("a", 64)+`"}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
