package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arslant84/l1a-test-sub000/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTokenValidator_RoundTrip 测试签发的令牌可以通过验证
func TestTokenValidator_RoundTrip(t *testing.T) {
	v := auth.NewTokenValidator("test-secret", "l1a-training")

	token, err := v.IssueToken("emp-1", "Aisha Rahman", time.Hour)
	require.NoError(t, err)

	claims, err := v.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "emp-1", claims.Subject)
	assert.Equal(t, "Aisha Rahman", claims.Name)
}

// TestTokenValidator_Rejections 测试各种非法令牌
func TestTokenValidator_Rejections(t *testing.T) {
	v := auth.NewTokenValidator("test-secret", "l1a-training")

	t.Run("过期令牌", func(t *testing.T) {
		token, err := v.IssueToken("emp-1", "Aisha Rahman", -time.Minute)
		require.NoError(t, err)
		_, err = v.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("错误密钥", func(t *testing.T) {
		other := auth.NewTokenValidator("other-secret", "l1a-training")
		token, err := other.IssueToken("emp-1", "Aisha Rahman", time.Hour)
		require.NoError(t, err)
		_, err = v.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("错误签发者", func(t *testing.T) {
		other := auth.NewTokenValidator("test-secret", "someone-else")
		token, err := other.IssueToken("emp-1", "Aisha Rahman", time.Hour)
		require.NoError(t, err)
		_, err = v.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("畸形令牌", func(t *testing.T) {
		_, err := v.ValidateToken("not-a-jwt")
		assert.Error(t, err)
	})
}

// TestAuthMiddleware 测试认证中间件
func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := auth.NewTokenValidator("test-secret", "l1a-training")

	router := gin.New()
	router.Use(auth.AuthMiddleware(v))
	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id")})
	})

	t.Run("缺少令牌", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("非法令牌", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("合法令牌", func(t *testing.T) {
		token, err := v.IssueToken("emp-1", "Aisha Rahman", time.Hour)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "emp-1")
	})
}
