package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaWS "github.com/gorilla/websocket"
)

var upgrader = gorillaWS.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 鉴权由外部网关负责,这里不检查 Origin
		return true
	},
}

// Handler WebSocket 订阅处理器
// 订阅者身份从 query 参数 actor 获取,由外部认证层保证可信
func Handler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.Query("actor")
		if actor == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing actor"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade connection"})
			return
		}

		client := NewClient(uuid.NewString(), actor, hub, conn)
		hub.Register <- client

		go client.ReadPump()
		go client.WritePump()
	}
}
