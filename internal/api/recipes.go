// Package api exposes the repository over HTTP for UI collaborators.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pantrybook/internal/ingredient"
	"pantrybook/internal/loader"
	"pantrybook/internal/models"
	"pantrybook/internal/repository"
	"pantrybook/internal/transport"
)

// RecipeAPI represents the main API handler for recipes
type RecipeAPI struct {
	Router *gin.Engine
	Repo   *repository.Repository
}

// NewRecipeAPI creates a new recipe API instance
func NewRecipeAPI(repo *repository.Repository) *RecipeAPI {
	router := gin.Default()

	api := &RecipeAPI{
		Router: router,
		Repo:   repo,
	}

	api.setupRoutes()
	return api
}

// setupRoutes configures all API endpoints
func (a *RecipeAPI) setupRoutes() {
	// Health check
	a.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Pantrybook API is running"})
	})

	v1 := a.Router.Group("/api/v1")
	{
		// Recipe access
		v1.GET("/recipes", a.ListRecipes)
		v1.GET("/recipes/:key", a.GetRecipe)
		v1.PUT("/recipes/:key", a.UpdateRecipe)

		// Ingredient tools
		v1.POST("/ingredients/scale", a.ScaleIngredients)
		v1.POST("/ingredients/parse", a.ParseIngredients)

		// Cache administration
		v1.GET("/cache/status", a.GetCacheStatus)
		v1.POST("/cache/sweep", a.SweepCache)
		v1.DELETE("/cache", a.InvalidateCache)
		v1.DELETE("/cache/:key", a.InvalidateCache)
	}

	// Event stream
	a.Router.GET("/ws", a.handleWebSocket)
}

// ListRecipes returns the full recipe set, refreshing when ?refresh=true.
func (a *RecipeAPI) ListRecipes(c *gin.Context) {
	force := c.Query("refresh") == "true"
	recipes, err := a.Repo.GetAll(c.Request.Context(), force)
	if err != nil {
		status := http.StatusBadGateway
		var discovery *loader.DiscoveryError
		if errors.As(err, &discovery) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, recipes)
}

// GetRecipe returns one recipe by key.
func (a *RecipeAPI) GetRecipe(c *gin.Context) {
	doc, err := a.Repo.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		if errors.Is(err, transport.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, doc)
}

type updateRequest struct {
	Data       models.RecipeDocument `json:"data" binding:"required"`
	Sync       string                `json:"sync"`
	Optimistic bool                  `json:"optimistic"`
}

// UpdateRecipe writes a new document for key.
func (a *RecipeAPI) UpdateRecipe(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := repository.UpdateOptions{
		Sync:       repository.SyncStrategy(req.Sync),
		Optimistic: req.Optimistic,
	}
	if err := a.Repo.Update(c.Request.Context(), c.Param("key"), &req.Data, opts); err != nil {
		if errors.Is(err, repository.ErrUpdatePending) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated", "key": c.Param("key")})
}

type scaleRequest struct {
	Ingredients []models.RawIngredient `json:"ingredients"`
	Factor      float64                `json:"factor" binding:"required"`
}

// ScaleIngredients normalizes an ingredient list and scales every entry.
func (a *RecipeAPI) ScaleIngredients(c *gin.Context) {
	var req scaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	normalized := ingredient.Normalize(req.Ingredients)
	scaled := make([]models.NormalizedIngredient, 0, len(normalized))
	for _, ing := range normalized {
		scaled = append(scaled, ingredient.Scale(ing, req.Factor))
	}
	c.JSON(http.StatusOK, gin.H{"ingredients": scaled, "factor": req.Factor})
}

type parseRequest struct {
	Lines []string `json:"lines"`
}

// ParseIngredients parses raw ingredient lines without scaling them.
func (a *RecipeAPI) ParseIngredients(c *gin.Context) {
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	parsed := make([]models.ParsedIngredient, 0, len(req.Lines))
	for _, line := range req.Lines {
		parsed = append(parsed, ingredient.Parse(line))
	}
	c.JSON(http.StatusOK, gin.H{"ingredients": parsed})
}

// GetCacheStatus returns the cache metadata snapshot.
func (a *RecipeAPI) GetCacheStatus(c *gin.Context) {
	c.JSON(http.StatusOK, a.Repo.CacheMetadata())
}

// SweepCache removes expired cache entries.
func (a *RecipeAPI) SweepCache(c *gin.Context) {
	removed := a.Repo.SweepCache()
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// InvalidateCache removes one entry or, without a key, the whole cache.
func (a *RecipeAPI) InvalidateCache(c *gin.Context) {
	var removed []string
	if key := c.Param("key"); key != "" {
		removed = a.Repo.InvalidateCache(key)
	} else {
		removed = a.Repo.InvalidateCache()
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
