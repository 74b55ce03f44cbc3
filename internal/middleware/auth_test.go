package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"messaging-service/internal/mocks"
)

var _ TokenValidator = (*mocks.TokenValidatorMock)(nil)

func authRouter(validator TokenValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(validator))
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("userID")})
	})
	return r
}

func doAuth(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	validator := new(mocks.TokenValidatorMock)
	validator.On("ValidateToken", mock.Anything, "tok-123").Return("u1", nil)

	w := doAuth(authRouter(validator), "Bearer tok-123")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"u1"`)
	validator.AssertExpectations(t)
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	validator := new(mocks.TokenValidatorMock)

	w := doAuth(authRouter(validator), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	validator.AssertNotCalled(t, "ValidateToken")
}

func TestAuthMiddlewareMalformedHeader(t *testing.T) {
	validator := new(mocks.TokenValidatorMock)

	w := doAuth(authRouter(validator), "Token abc")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	validator.AssertNotCalled(t, "ValidateToken")
}

func TestAuthMiddlewareRejectedToken(t *testing.T) {
	validator := new(mocks.TokenValidatorMock)
	validator.On("ValidateToken", mock.Anything, "bad").Return("", errors.New("expired"))

	w := doAuth(authRouter(validator), "Bearer bad")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInsecureValidatorEchoesToken(t *testing.T) {
	userID, err := InsecureValidator{}.ValidateToken(context.Background(), "u1")

	assert.NoError(t, err)
	assert.Equal(t, "u1", userID)
}
