package controller

import (
	"net"
	"strings"

	"github.com/userhub/userhub/web/entity"

	"github.com/gin-gonic/gin"
)

// getRemoteIp extracts the real IP address from the request headers or remote address.
func getRemoteIp(c *gin.Context) string {
	value := c.GetHeader("X-Real-IP")
	if value != "" {
		return value
	}
	value = c.GetHeader("X-Forwarded-For")
	if value != "" {
		ips := strings.Split(value, ",")
		return strings.TrimSpace(ips[0])
	}
	addr := c.Request.RemoteAddr
	ip, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return ip
}

// detailMsg aborts the request with {"detail": msg}.
func detailMsg(c *gin.Context, statusCode int, msg string) {
	c.AbortWithStatusJSON(statusCode, entity.ErrorDetail{Detail: msg})
}
