package api

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/erazemk/shramba/internal/imaging"
	"github.com/erazemk/shramba/internal/inventory"
	"github.com/erazemk/shramba/internal/model"
)

// ItemsHandler handles item endpoints. Every handler acts through the
// caller's session engine.
type ItemsHandler struct {
	Engines *inventory.Registry
}

type itemRequest struct {
	Name        string `json:"name"`
	Quantity    *int   `json:"quantity"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

type createItemResponse struct {
	ID string `json:"id"`
}

type outcomeResponse struct {
	Outcome string `json:"outcome"`
}

// maxFormSize bounds a multipart item form: the image plus the text fields.
const maxFormSize = imaging.MaxUploadSize + 1<<20

// readDraft decodes a JSON body or a multipart form with an optional
// "image" file. A JSON "image" is a stored reference that is kept as is.
func readDraft(w http.ResponseWriter, r *http.Request) (inventory.Draft, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req itemRequest
		if err := decodeJSON(r, &req); err != nil {
			return inventory.Draft{}, &inventory.ValidationError{Field: "body", Message: "invalid request body"}
		}
		if req.Quantity == nil {
			return inventory.Draft{}, &inventory.ValidationError{Field: "quantity", Message: "quantity is required"}
		}
		return inventory.Draft{
			Name:        req.Name,
			Quantity:    *req.Quantity,
			Description: req.Description,
			Image:       model.StoredImage(req.Image),
		}, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		return inventory.Draft{}, &inventory.ValidationError{Field: "image", Message: "file too large or invalid multipart form"}
	}

	quantity, err := inventory.ParseQuantity(r.FormValue("quantity"))
	if err != nil {
		return inventory.Draft{}, err
	}
	d := inventory.Draft{
		Name:        r.FormValue("name"),
		Quantity:    quantity,
		Description: r.FormValue("description"),
		Image:       model.StoredImage(r.FormValue("image")),
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return d, nil
	}
	if err != nil {
		return inventory.Draft{}, &inventory.ValidationError{Field: "image", Message: "invalid image upload"}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return inventory.Draft{}, &inventory.ValidationError{Field: "image", Message: "failed to read image"}
	}
	d.Image = model.PendingImage(data, header.Filename)
	return d, nil
}

// List handles GET /api/items. The optional q parameter filters by name
// prefix.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	e, ok := sessionEngine(w, r, h.Engines)
	if !ok {
		return
	}

	items := e.View(r.URL.Query().Get("q"))
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items. The item is in the caller's listing once
// the response is sent.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	e, ok := sessionEngine(w, r, h.Engines)
	if !ok {
		return
	}

	d, err := readDraft(w, r)
	if err != nil {
		engineError(w, r, err)
		return
	}

	id, err := e.AddItem(r.Context(), d)
	if err != nil {
		engineError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusCreated, createItemResponse{ID: id})
}

// Get handles GET /api/items/{id}. It opens the session's detail view on
// the item.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, ok := sessionEngine(w, r, h.Engines)
	if !ok {
		return
	}

	item, err := e.OpenDetail(r.PathValue("id"))
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}. A quantity below one deletes the item.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	e, ok := sessionEngine(w, r, h.Engines)
	if !ok {
		return
	}

	d, err := readDraft(w, r)
	if err != nil {
		engineError(w, r, err)
		return
	}

	outcome, err := e.UpdateItem(r.Context(), r.PathValue("id"), d)
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, outcomeResponse{Outcome: outcome.String()})
}

// Decrement handles POST /api/items/{id}/decrement.
func (h *ItemsHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	e, ok := sessionEngine(w, r, h.Engines)
	if !ok {
		return
	}

	outcome, err := e.DecrementOrDelete(r.Context(), r.PathValue("id"))
	if err != nil {
		engineError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, outcomeResponse{Outcome: outcome.String()})
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	e, ok := sessionEngine(w, r, h.Engines)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := e.DeleteItem(r.Context(), id); err != nil {
		engineError(w, r, err)
		return
	}

	slog.Debug("item deleted over api", "group", e.GroupID(), "item", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}
