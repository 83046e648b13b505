package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/stipe44/murmur/internal/service"
	"github.com/stipe44/murmur/internal/transport/http/middleware"
)

type UserHandler struct {
	authService *service.AuthService
	chatService *service.ChatService
}

func NewUserHandler(authService *service.AuthService, chatService *service.ChatService) *UserHandler {
	return &UserHandler{authService: authService, chatService: chatService}
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.authService.Profile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		} else {
			log.Printf("ERROR profile: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	term := r.PathValue("term")
	if term == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TERM", "Search term is required")
		return
	}

	results, err := h.chatService.Search(r.Context(), userID, term)
	if err != nil {
		log.Printf("ERROR search: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": results})
}

func (h *UserHandler) SetAvatar(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		Avatar string `json:"avatar"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if input.Avatar == "" {
		writeError(w, http.StatusBadRequest, "MISSING_AVATAR", "Avatar reference is required")
		return
	}

	if err := h.authService.SetAvatar(r.Context(), userID, input.Avatar); err != nil {
		log.Printf("ERROR set avatar: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"avatar": input.Avatar})
}

func (h *UserHandler) ClearAvatar(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.authService.ClearAvatar(r.Context(), userID); err != nil {
		switch {
		case errors.Is(err, service.ErrNoAvatar):
			writeError(w, http.StatusUnprocessableEntity, "NO_AVATAR", "Avatar already cleared")
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		default:
			log.Printf("ERROR clear avatar: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"avatar": nil})
}
