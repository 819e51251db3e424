package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/krzysztof-programista/NotesApp/internal/pkg/token"
)

// Auth 校验 Bearer 会话令牌并将解析出的身份写入上下文。
//
// 缺少 Authorization 头返回 401；令牌校验失败（过期、被篡改、
// 用途不符）一律返回 403，不向客户端区分具体原因。
func Auth(tokens *token.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Missing authentication token."})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.JSON(http.StatusForbidden, gin.H{"message": "Invalid token."})
			c.Abort()
			return
		}

		claims, err := tokens.Verify(parts[1], token.KindSession)
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{"message": "Invalid token."})
			c.Abort()
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{"message": "Invalid token."})
			c.Abort()
			return
		}

		c.Set("userID", int(userID))
		c.Set("email", claims.Email)
		c.Next()
	}
}
