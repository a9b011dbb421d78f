package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/jonwraymond/listicons/auth"
	"github.com/jonwraymond/listicons/identity"
	"github.com/jonwraymond/listicons/observe"
)

const maxJoinBody = 4 << 10

// JoinRequest is the POST /v1/joins body.
type JoinRequest struct {
	UUID    string `json:"uuid"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// FaviconResponse is the GET /v1/favicon body.
type FaviconResponse struct {
	Favicon string `json:"favicon"`
}

func (s *Server) handleIcon(w http.ResponseWriter, r *http.Request) {
	icon, ok := s.iconForAddress(w, r)
	if !ok {
		return
	}
	writePNG(w, icon)
}

func (s *Server) handleFavicon(w http.ResponseWriter, r *http.Request) {
	icon, ok := s.iconForAddress(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, FaviconResponse{
		Favicon: "data:image/png;base64," + base64.StdEncoding.EncodeToString(icon),
	})
}

// handlePlayerIcon serves the icon for an explicit uuid. Permissions may match
// display names, so the name query parameter is honoured for admin callers
// only; anonymous callers get the uuid-only identity.
func (s *Server) handlePlayerIcon(w http.ResponseWriter, r *http.Request) {
	var name string
	if auth.IdentityFromContext(r.Context()).HasRole("admin") {
		name = r.URL.Query().Get("name")
	}
	player, err := identity.ParsePlayer(r.PathValue("uuid"), name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	icon, ok := s.icon(w, r, player)
	if !ok {
		return
	}
	writePNG(w, icon)
}

// iconForAddress resolves the address query parameter to an icon. It writes
// the response itself and returns false when there is nothing to serve.
func (s *Server) iconForAddress(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return nil, false
	}
	player, err := s.cfg.Directory.Lookup(r.Context(), address)
	switch {
	case errors.Is(err, identity.ErrNotFound):
		w.WriteHeader(http.StatusNoContent)
		return nil, false
	case errors.Is(err, identity.ErrInvalidAddress):
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	case err != nil:
		s.logger.Error(r.Context(), "directory lookup failed", observe.F("address", address), observe.Err(err))
		writeError(w, http.StatusInternalServerError, "directory unavailable")
		return nil, false
	}
	return s.icon(w, r, player)
}

func (s *Server) icon(w http.ResponseWriter, r *http.Request, player identity.Player) ([]byte, bool) {
	icon, err := s.cfg.Icons.Icon(r.Context(), player)
	if err == nil {
		return icon, true
	}
	if r.Context().Err() != nil {
		// The client went away; nobody reads the response.
		return nil, false
	}
	s.logger.Warn(r.Context(), "icon unavailable", observe.F("player", player.String()), observe.Err(err))
	w.WriteHeader(http.StatusNoContent)
	return nil, false
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJoinBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid join body: "+err.Error())
		return
	}
	player, err := identity.ParsePlayer(req.UUID, req.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	err = s.cfg.Directory.Record(r.Context(), player, req.Address)
	switch {
	case errors.Is(err, identity.ErrInvalidAddress):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Error(r.Context(), "record join failed", observe.F("player", player.String()), observe.Err(err))
		writeError(w, http.StatusInternalServerError, "directory unavailable")
		return
	}
	s.logger.Debug(r.Context(), "recorded join", observe.F("player", player.String()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Directory.Clear(r.Context()); err != nil {
		s.logger.Error(r.Context(), "clear directory failed", observe.Err(err))
		writeError(w, http.StatusInternalServerError, "directory unavailable")
		return
	}
	s.logger.Info(r.Context(), "cleared address directory")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearPlayer(w http.ResponseWriter, r *http.Request) {
	player, err := identity.ParsePlayer(r.PathValue("uuid"), "")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.cfg.Directory.ClearPlayer(r.Context(), player.ID); err != nil {
		s.logger.Error(r.Context(), "clear player failed", observe.F("player", player.String()), observe.Err(err))
		writeError(w, http.StatusInternalServerError, "directory unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	player, err := identity.ParsePlayer(r.PathValue("uuid"), r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.cfg.Icons.Invalidate(r.Context(), player); err != nil {
		s.logger.Error(r.Context(), "invalidate icon failed", observe.F("player", player.String()), observe.Err(err))
		writeError(w, http.StatusInternalServerError, "cache unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
