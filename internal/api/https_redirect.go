package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HTTPSRedirectMiddleware HTTPS 重定向中间件
// enabled 为 false 时不做任何处理,生产环境由配置开启
func HTTPSRedirectMiddleware(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if IsHTTPS(c) {
			c.Next()
			return
		}

		host := c.Request.Host
		if host == "" {
			host = "localhost"
		}
		httpsURL := "https://" + host + c.Request.RequestURI

		c.Redirect(http.StatusMovedPermanently, httpsURL)
		c.Abort()
	}
}

// IsHTTPS 检查请求是否通过 HTTPS
func IsHTTPS(c *gin.Context) bool {
	// 优先检查反向代理设置的头
	proto := strings.ToLower(c.GetHeader("X-Forwarded-Proto"))
	if proto == "https" {
		return true
	}
	if c.GetHeader("X-Forwarded-SSL") == "on" {
		return true
	}
	if c.Request.URL.Scheme == "https" {
		return true
	}
	// 直接 TLS 连接
	if c.Request.TLS != nil {
		return true
	}
	return false
}
