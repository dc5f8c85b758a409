package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/shramba/internal/auth"
	"github.com/erazemk/shramba/internal/inventory"
	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/store"
)

// SessionHandler handles group sign-in and sign-out.
type SessionHandler struct {
	DB        *sql.DB
	JWTSecret string
	Engines   *inventory.Registry
}

// Sign-in modes. The empty mode creates an unknown group or joins a known one.
const (
	modeCreate = "create"
	modeJoin   = "join"
)

type signInRequest struct {
	GroupID    string `json:"group_id"`
	Passphrase string `json:"passphrase"`
	Mode       string `json:"mode,omitempty"`
}

type signInResponse struct {
	Token   string `json:"token"`
	GroupID string `json:"group_id"`
	Created bool   `json:"created"`
}

// Create handles POST /api/session. An unknown group is created, optionally
// protected by the passphrase; a known group is joined. Mode "create" fails
// with 409 on a known group and mode "join" fails with 404 on an unknown one.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Mode {
	case "", modeCreate, modeJoin:
	default:
		jsonError(w, http.StatusBadRequest, "mode must be create or join")
		return
	}

	groupID, err := model.NormalizeGroupID(req.GroupID)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	created := false
	if req.Mode != modeJoin {
		hash, err := auth.HashPassphrase(req.Passphrase)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "failed to hash passphrase")
			return
		}
		created, err = store.CreateGroup(r.Context(), h.DB, groupID, hash)
		if err != nil {
			slog.Error("creating group", "group", groupID, "error", err)
			jsonError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if created {
			slog.Info("group created", "group", groupID, "protected", hash != "")
		} else if req.Mode == modeCreate {
			jsonError(w, http.StatusConflict, "group already exists")
			return
		}
	}

	if !created && !h.join(w, r, groupID, req.Passphrase) {
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, groupID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	slog.Info("signed in", "group", groupID)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	jsonResponse(w, status, signInResponse{Token: token, GroupID: groupID, Created: created})
}

// join checks the passphrase of an existing group, writing the error
// response itself on failure.
func (h *SessionHandler) join(w http.ResponseWriter, r *http.Request, groupID, passphrase string) bool {
	group, err := store.GetGroup(r.Context(), h.DB, groupID)
	if err != nil {
		slog.Error("loading group", "group", groupID, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return false
	}
	if group == nil {
		jsonError(w, http.StatusNotFound, "group not found")
		return false
	}
	if err := auth.CheckPassphrase(group.PassphraseHash, passphrase); err != nil {
		slog.Warn("group sign-in failed", "group", groupID, "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "invalid group passphrase")
		return false
	}
	return true
}

// Get handles GET /api/session.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	jsonResponse(w, http.StatusOK, claims.Session())
}

// Delete handles DELETE /api/session. The token is revoked and the
// session's engine released.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if claims.ExpiresAt == nil {
		jsonError(w, http.StatusBadRequest, "token has no expiry")
		return
	}
	if err := store.RevokeSession(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
		slog.Error("revoking session", "group", claims.GroupID, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to sign out")
		return
	}
	h.Engines.Release(claims.ID)

	slog.Info("signed out", "group", claims.GroupID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "signed out"})
}

// sessionEngine returns the caller's subscribed engine, writing the error
// response itself when none is available.
func sessionEngine(w http.ResponseWriter, r *http.Request, engines *inventory.Registry) (*inventory.Engine, bool) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return nil, false
	}

	e, err := engines.Engine(r.Context(), claims.Session())
	if err != nil {
		engineError(w, r, err)
		return nil, false
	}
	return e, true
}
