package http

import "github.com/gin-gonic/gin"

// Register mounts the suggestion engine routes on an authenticated group.
func (h *Handler) Register(api gin.IRouter) {
	campaigns := api.Group("/campaigns/:id")
	campaigns.GET("/suggestions", h.ListSuggestions)
	campaigns.GET("/cooldown", h.GetCooldown)
	campaigns.POST("/analyze", h.Analyze)

	suggestions := api.Group("/suggestions")
	suggestions.PATCH("/:id", h.ResolveSuggestion)
	suggestions.POST("/:id/undo", h.UndoSuggestion)
	suggestions.DELETE("/:id", h.DeleteSuggestion)
	suggestions.POST("/batch", h.BatchResolve)
}
