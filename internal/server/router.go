package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/otlabs/collabtext/internal/auth"
	"github.com/otlabs/collabtext/internal/transport"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewRouter builds the gin.Engine exposing the collaboration websocket
// endpoint, authenticated by authn, and a health check.
func NewRouter(hubs *HubSet, authn *auth.Authenticator, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ginLogger(log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	collab := r.Group("/collab")
	collab.Use(authMiddleware(authn))
	collab.GET("/ws", func(c *gin.Context) {
		handleWebsocket(c, hubs, log)
	})

	return r
}

func ginLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("server: request")
	}
}

func authMiddleware(authn *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = c.GetHeader("Authorization")
		}
		claims, err := authn.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("clientId", claims.ClientID)
		c.Set("docId", claims.DocID)
		c.Next()
	}
}

func handleWebsocket(c *gin.Context, hubs *HubSet, log zerolog.Logger) {
	docID := c.GetString("docId")
	clientID := c.GetString("clientId")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("server: websocket upgrade failed")
		return
	}

	hub := hubs.Get(c.Request.Context(), docID)
	wsConn := transport.NewConnection(clientID, conn, log)
	content, revision := hub.Subscribe(wsConn)
	defer hub.Unsubscribe(wsConn)

	if err := wsConn.WriteInit(revision, content); err != nil {
		log.Warn().Err(err).Msg("server: write init failed")
		return
	}

	for {
		select {
		case <-wsConn.Closed:
			return
		case env, ok := <-wsConn.Operations:
			if !ok {
				return
			}
			if env.Type != transport.MsgOperation || env.Op == nil {
				continue
			}
			if err := hub.Submit(c.Request.Context(), wsConn, clientID, env.Revision, env.Op); err != nil {
				log.Warn().Err(err).Str("client_id", clientID).Msg("server: submit rejected")
				return
			}
		}
	}
}
