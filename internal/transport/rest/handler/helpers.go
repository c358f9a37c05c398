package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"quizprogress/internal/service"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps service errors onto HTTP statuses
func writeServiceError(w http.ResponseWriter, err error) {
	var nerr *service.NotifyError
	switch {
	case errors.As(err, &nerr):
		switch nerr.Outcome {
		case service.OutcomeNotFound:
			writeError(w, http.StatusNotFound, nerr.Message)
		case service.OutcomeBadRequest:
			writeError(w, http.StatusConflict, nerr.Message)
		default:
			writeError(w, http.StatusBadGateway, nerr.Message)
		}
	case errors.Is(err, service.ErrInvalidQuizID),
		errors.Is(err, service.ErrInvalidAttemptID),
		errors.Is(err, service.ErrInvalidContext):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// pathID reads a positive integer route variable
func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return id, nil
}

// parseIDList parses "1,2,3" into ids
func parseIDList(raw string) ([]int64, error) {
	ids := make([]int64, 0)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid quiz id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
