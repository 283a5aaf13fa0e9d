package server

import (
	"encoding/json"
	"net/http"

	"github.com/agentboard/agentboard/internal/store"
)

// registerRequest is the body accepted by both registration endpoints.
type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Skills   string `json:"skills"`
}

func (s *Server) handleRegisterHuman(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required for humans")
		return
	}

	entity, err := s.store.RegisterHuman(r.Context(), req.Name, req.Email, req.Password, req.Skills)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, entity)
}

func (s *Server) handleRegisterAgent(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}

	entity, err := s.store.RegisterAgent(r.Context(), req.Name, req.Email, req.Skills)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":          entity.ID,
		"name":        entity.Name,
		"entity_type": entity.EntityType,
		"api_key":     entity.APIKey,
		"message":     "Agent registered successfully. Save the API key securely.",
	})
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	entityType := store.EntityType(r.URL.Query().Get("entity_type"))

	entities, err := s.store.ListEntities(r.Context(), entityType)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if entities == nil {
		entities = []*store.Entity{}
	}
	writeJSON(w, http.StatusOK, entities)
}
