package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"recipe-vault/internal/app"
	"recipe-vault/internal/apperr"
	"recipe-vault/internal/logger"
)

// Server is the thin HTTP JSON surface over the application core.
// Requests arrive already authenticated: the X-User-ID header carries the
// resolved user id and the server never performs authentication itself.
type Server struct {
	app *app.App
	log *logger.Logger
}

// New creates a Server.
func New(a *app.App) *Server {
	return &Server{app: a, log: a.Log}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1", requireUser())

	api.POST("/recipes", s.createRecipe)
	api.GET("/recipes", s.listRecipes)
	api.GET("/recipes/:id", s.getRecipe)
	api.PUT("/recipes/:id", s.updateRecipe)
	api.DELETE("/recipes/:id", s.deleteRecipe)

	api.GET("/recipes/:id/available-children", s.listAvailableChildren)
	api.POST("/recipes/:id/relations", s.attachSubRecipes)
	api.GET("/recipes/:id/descendants", s.listDescendants)
	api.GET("/recipes/:id/ancestors", s.listAncestors)
	api.PUT("/relations/:id", s.replaceRelation)
	api.DELETE("/relations/:id", s.detachRelation)

	api.GET("/meal-plans/:week", s.getMealPlan)
	api.POST("/meal-plans/:week/items", s.addMealPlanItem)
	api.DELETE("/meal-plan-items/:id", s.removeMealPlanItem)
	api.POST("/meal-plans/:week/shopping-list", s.generateShoppingList)

	api.GET("/shopping-items", s.listShoppingItems)
	api.PATCH("/shopping-items/:id", s.setShoppingItemChecked)
	api.PUT("/shopping-items/order", s.reorderShoppingItems)
	api.DELETE("/shopping-items/:id", s.deleteShoppingItem)

	return r
}

const userIDKey = "userID"

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetHeader("X-User-ID")
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing X-User-ID header"})
			return
		}
		c.Set(userIDKey, uid)
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// fail maps an apperr code onto an HTTP status and writes the error body.
func (s *Server) fail(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	status := http.StatusServiceUnavailable
	switch code {
	case apperr.CodeInvalidRelation, apperr.CodeEmptyPlan:
		status = http.StatusUnprocessableEntity
	case apperr.CodeForbidden:
		status = http.StatusForbidden
	case apperr.CodeCycleDetected:
		status = http.StatusConflict
	case apperr.CodeNotFound:
		status = http.StatusNotFound
	}
	if code == apperr.CodeInfrastructure {
		s.log.Error("request failed", "path", c.FullPath(), "error", err.Error())
	}
	c.JSON(status, gin.H{"code": string(code), "error": err.Error()})
}
