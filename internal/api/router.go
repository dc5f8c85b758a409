package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/shramba/internal/backend"
	"github.com/erazemk/shramba/internal/inventory"
)

// Config holds the dependencies of the API.
type Config struct {
	DB         *sql.DB
	JWTSecret  string
	Collection *backend.Collection
	Blobs      *backend.Blobs
	Engines    *inventory.Registry
	Recipes    Recipes
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(cfg Config) http.Handler {
	mux := http.NewServeMux()

	sessionHandler := &SessionHandler{DB: cfg.DB, JWTSecret: cfg.JWTSecret, Engines: cfg.Engines}
	itemsHandler := &ItemsHandler{Engines: cfg.Engines}
	eventsHandler := &EventsHandler{Collection: cfg.Collection}
	blobsHandler := &BlobsHandler{Blobs: cfg.Blobs}
	exportHandler := &ExportHandler{Engines: cfg.Engines}
	recipeHandler := &RecipeHandler{Engines: cfg.Engines, Recipes: cfg.Recipes}

	authMW := AuthMiddleware(cfg.JWTSecret, cfg.DB)

	// Public: sign in to a group.
	mux.HandleFunc("POST /api/session", sessionHandler.Create)
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Session.
	mux.Handle("GET /api/session", authMW(http.HandlerFunc(sessionHandler.Get)))
	mux.Handle("DELETE /api/session", authMW(http.HandlerFunc(sessionHandler.Delete)))

	// Items.
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(http.HandlerFunc(itemsHandler.Create)))
	mux.Handle("GET /api/items/events", authMW(http.HandlerFunc(eventsHandler.Stream)))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PUT /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Update)))
	mux.Handle("DELETE /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Delete)))
	mux.Handle("POST /api/items/{id}/decrement", authMW(http.HandlerFunc(itemsHandler.Decrement)))

	// Images.
	mux.Handle("GET /api/blobs/{key...}", authMW(http.HandlerFunc(blobsHandler.Get)))

	// Export and recipes.
	mux.Handle("GET /api/export", authMW(http.HandlerFunc(exportHandler.Get)))
	mux.Handle("POST /api/recipe", authMW(http.HandlerFunc(recipeHandler.Create)))

	return mux
}
