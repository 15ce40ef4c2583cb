package server

import "github.com/gin-gonic/gin"

// SetupRouter configures and returns a gin engine with the API routes.
func SetupRouter(h *Handler, jwtSecret string) *gin.Engine {
	r := gin.Default()

	r.POST("/api/login", h.Login)

	authed := r.Group("/api")
	authed.Use(AuthMiddleware(jwtSecret))
	{
		authed.GET("/templates", h.ListTemplates)
		authed.GET("/chats", h.ListChats)
		authed.POST("/chats", h.CreateChat)
		authed.GET("/chats/:id/messages", h.ListMessages)
		authed.POST("/chats/:id/messages", h.PostMessage)
	}

	return r
}
