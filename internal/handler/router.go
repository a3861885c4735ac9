package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/rekew/web-dev-project/internal/service"
	"github.com/rekew/web-dev-project/pkg/log"
)

// Router bundles every HTTP-facing handler of the server.
type Router struct {
	Auth     *AuthHandler
	Users    *UserHandler
	Chats    *ChatHandler
	WS       *WSHandler
	Verifier service.TokenVerifier
}

// Register mounts all routes on the engine. The websocket endpoint
// authenticates in-band, so it sits outside the bearer-token group.
func (r *Router) Register(engine *gin.Engine) {
	engine.Use(log.GinMiddleware(log.L()))

	engine.GET("/ws", func(c *gin.Context) {
		r.WS.HandleWebSocket(c.Writer, c.Request)
	})

	api := engine.Group("/api")
	{
		api.POST("/auth/register", r.Auth.Register)
		api.POST("/auth/login", r.Auth.Login)
		api.POST("/auth/refresh", r.Auth.Refresh)

		authed := api.Group("", AuthMiddleware(r.Verifier))
		{
			authed.GET("/users", r.Users.Search)
			authed.GET("/users/me", r.Users.Me)
			authed.PATCH("/users/me", r.Users.Update)
			authed.POST("/users/me/avatar", r.Users.UploadAvatar)
			authed.GET("/users/:id", r.Users.GetUser)
			authed.GET("/users/:id/avatar", r.Users.GetAvatar)

			authed.GET("/chats", r.Chats.ListChats)
			authed.POST("/chats", r.Chats.CreateChat)
			authed.GET("/chats/:id", r.Chats.GetChat)
			authed.GET("/chats/:id/messages", r.Chats.ListMessages)
			authed.POST("/messages", r.Chats.CreateMessage)
			authed.POST("/messages/:id/image", r.Chats.UploadMessageImage)
			authed.GET("/messages/:id/image", r.Chats.GetMessageImage)
		}
	}
}
