package httpserver

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform response shape shared with the backend:
// every reply carries success, message and data.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func respond(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}

func respondOK(w http.ResponseWriter, message string, data any) {
	respond(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

func respondError(w http.ResponseWriter, status int, message string, data any) {
	respond(w, status, Envelope{Success: false, Message: message, Data: data})
}
