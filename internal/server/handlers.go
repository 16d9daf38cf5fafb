package server

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"recipe-vault/internal/apperr"
	"recipe-vault/internal/mealplan"
	"recipe-vault/internal/recipe"
	"recipe-vault/internal/relation"
)

type recipeRequest struct {
	Title          string              `json:"title" binding:"required"`
	Ingredients    []recipe.Ingredient `json:"ingredients"`
	Steps          []recipe.Step       `json:"steps"`
	ParentRecipeID *string             `json:"parent_recipe_id"`
}

func (s *Server) createRecipe(c *gin.Context) {
	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec := &recipe.Recipe{
		ID:          uuid.NewString(),
		UserID:      userID(c),
		Title:       req.Title,
		Ingredients: req.Ingredients,
		Steps:       req.Steps,
	}
	// A declared parent becomes both the convenience pointer and a
	// derivation edge, so the graph invariants get checked up front.
	rec.ParentRecipeID = req.ParentRecipeID

	if err := s.app.Recipes.Create(c.Request.Context(), rec); err != nil {
		s.fail(c, apperr.Infra(err, "failed to create recipe"))
		return
	}
	if req.ParentRecipeID != nil {
		_, err := s.app.Relations.ProposeEdges(c.Request.Context(), rec.UserID, *req.ParentRecipeID,
			[]relation.ChildSpec{{RecipeID: rec.ID}})
		if err != nil {
			// Roll the recipe back so a rejected parent leaves nothing behind.
			if delErr := s.app.Recipes.Delete(c.Request.Context(), rec.ID); delErr != nil {
				s.log.Error("failed to roll back recipe after rejected parent",
					"recipe_id", rec.ID, "error", delErr.Error())
			}
			s.fail(c, err)
			return
		}
	}
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) listRecipes(c *gin.Context) {
	recipes, err := s.app.Recipes.ListByUser(c.Request.Context(), userID(c), c.QueryArray("exclude"), c.Query("search"))
	if err != nil {
		s.fail(c, apperr.Infra(err, "failed to list recipes"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

// ownedRecipe loads a recipe and enforces that the caller owns it.
func (s *Server) ownedRecipe(c *gin.Context, id string) (*recipe.Recipe, error) {
	rec, err := s.app.Recipes.Get(c.Request.Context(), id)
	if err != nil {
		return nil, apperr.Infra(err, "failed to load recipe")
	}
	if rec == nil {
		return nil, apperr.New(apperr.CodeNotFound, "recipe not found")
	}
	if rec.UserID != userID(c) {
		return nil, apperr.New(apperr.CodeForbidden, "recipe belongs to another user")
	}
	return rec, nil
}

func (s *Server) getRecipe(c *gin.Context) {
	rec, err := s.ownedRecipe(c, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) updateRecipe(c *gin.Context) {
	rec, err := s.ownedRecipe(c, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// A newly declared parent goes through the graph service like on
	// create, so ownership, self-reference, and acyclicity hold before
	// the pointer is persisted.
	if req.ParentRecipeID != nil && (rec.ParentRecipeID == nil || *rec.ParentRecipeID != *req.ParentRecipeID) {
		_, err := s.app.Relations.ProposeEdges(c.Request.Context(), userID(c), *req.ParentRecipeID,
			[]relation.ChildSpec{{RecipeID: rec.ID}})
		if err != nil {
			s.fail(c, err)
			return
		}
	}

	rec.Title = req.Title
	rec.Ingredients = req.Ingredients
	rec.Steps = req.Steps
	rec.ParentRecipeID = req.ParentRecipeID

	if err := s.app.Recipes.Update(c.Request.Context(), rec); err != nil {
		s.fail(c, apperr.Infra(err, "failed to update recipe"))
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) deleteRecipe(c *gin.Context) {
	rec, err := s.ownedRecipe(c, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.app.Recipes.Delete(c.Request.Context(), rec.ID); err != nil {
		s.fail(c, apperr.Infra(err, "failed to delete recipe"))
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listAvailableChildren(c *gin.Context) {
	recipes, err := s.app.Relations.ListAvailableChildren(
		c.Request.Context(), userID(c), c.Param("id"), c.QueryArray("exclude"), c.Query("search"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

type attachRequest struct {
	Children []relation.ChildSpec `json:"children" binding:"required,min=1,dive"`
}

func (s *Server) attachSubRecipes(c *gin.Context) {
	var req attachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	edges, err := s.app.Relations.ProposeEdges(c.Request.Context(), userID(c), c.Param("id"), req.Children)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"relations": edges})
}

func (s *Server) listDescendants(c *gin.Context) {
	ids, err := s.app.Relations.Descendants(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe_ids": ids})
}

func (s *Server) listAncestors(c *gin.Context) {
	ids, err := s.app.Relations.Ancestors(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe_ids": ids})
}

type relationMetadataRequest struct {
	Quantity *string `json:"quantity"`
	Notes    *string `json:"notes"`
}

func (s *Server) replaceRelation(c *gin.Context) {
	var req relationMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	edge, err := s.app.Relations.ReplaceEdge(c.Request.Context(), userID(c), c.Param("id"), req.Quantity, req.Notes)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, edge)
}

func (s *Server) detachRelation(c *gin.Context) {
	if err := s.app.Relations.DetachEdge(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// parseWeek accepts a YYYY-MM-DD date and normalizes it to its week start.
func parseWeek(c *gin.Context) (time.Time, bool) {
	week, err := time.ParseInLocation("2006-01-02", c.Param("week"), time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "week must be a YYYY-MM-DD date"})
		return time.Time{}, false
	}
	return mealplan.NormalizeWeekStart(week), true
}

func (s *Server) getMealPlan(c *gin.Context) {
	week, ok := parseWeek(c)
	if !ok {
		return
	}
	plan, err := s.app.Plans.GetByWeek(c.Request.Context(), userID(c), week)
	if err != nil {
		s.fail(c, apperr.Infra(err, "failed to load meal plan"))
		return
	}
	if plan == nil {
		s.fail(c, apperr.New(apperr.CodeNotFound, "no meal plan for this week"))
		return
	}
	c.JSON(http.StatusOK, plan)
}

type planItemRequest struct {
	DayOfWeek *int   `json:"day_of_week" binding:"required,min=0,max=6"`
	RecipeID  string `json:"recipe_id" binding:"required"`
}

func (s *Server) addMealPlanItem(c *gin.Context) {
	week, ok := parseWeek(c)
	if !ok {
		return
	}
	var req planItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := s.ownedRecipe(c, req.RecipeID); err != nil {
		s.fail(c, err)
		return
	}
	item, err := s.app.Plans.AddItem(c.Request.Context(), userID(c), week, *req.DayOfWeek, req.RecipeID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) removeMealPlanItem(c *gin.Context) {
	if err := s.app.Plans.RemoveItem(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) generateShoppingList(c *gin.Context) {
	week, ok := parseWeek(c)
	if !ok {
		return
	}
	created, err := s.app.Lists.GenerateFromMealPlan(c.Request.Context(), userID(c), week)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"created": created})
}

func (s *Server) listShoppingItems(c *gin.Context) {
	items, err := s.app.Shopping.ListByUser(c.Request.Context(), userID(c))
	if err != nil {
		s.fail(c, apperr.Infra(err, "failed to list shopping items"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type checkRequest struct {
	IsChecked *bool `json:"is_checked" binding:"required"`
}

func (s *Server) setShoppingItemChecked(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.app.Shopping.SetChecked(c.Request.Context(), userID(c), c.Param("id"), *req.IsChecked); err != nil {
		s.fail(c, mapItemErr(err))
		return
	}
	c.Status(http.StatusNoContent)
}

type reorderRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

func (s *Server) reorderShoppingItems(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.app.Shopping.Reorder(c.Request.Context(), userID(c), req.IDs); err != nil {
		s.fail(c, mapItemErr(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteShoppingItem(c *gin.Context) {
	if err := s.app.Shopping.Delete(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		s.fail(c, mapItemErr(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// mapItemErr classifies shopping repository errors: a missing or foreign
// row is not_found, anything else is a storage fault.
func mapItemErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.New(apperr.CodeNotFound, "shopping item not found")
	}
	return apperr.Infra(err, "shopping list operation failed")
}
