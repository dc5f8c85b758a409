package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/erazemk/shramba/internal/inventory"
	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/recipe"
)

// Recipes suggests a recipe for a set of pantry items.
type Recipes interface {
	Suggest(ctx context.Context, items []model.Item) (string, error)
}

// RecipeHandler handles recipe suggestions.
type RecipeHandler struct {
	Engines *inventory.Registry
	Recipes Recipes
}

type recipeRequest struct {
	ItemIDs []string `json:"item_ids"`
}

type recipeResponse struct {
	Recipe string `json:"recipe"`
}

// Create handles POST /api/recipe. Items are resolved from the session's
// local list.
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req recipeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.ItemIDs) == 0 {
		jsonError(w, http.StatusBadRequest, recipe.ErrNoIngredients.Error())
		return
	}

	e, ok := sessionEngine(w, r, h.Engines)
	if !ok {
		return
	}

	items := make([]model.Item, 0, len(req.ItemIDs))
	for _, id := range req.ItemIDs {
		item, ok := e.Lookup(id)
		if !ok {
			engineError(w, r, inventory.ErrItemNotFound)
			return
		}
		items = append(items, item)
	}

	text, err := h.Recipes.Suggest(r.Context(), items)
	if errors.Is(err, recipe.ErrNoIngredients) {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, recipeResponse{Recipe: text})
}
