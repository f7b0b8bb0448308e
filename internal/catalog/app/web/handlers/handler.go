package handlers

import (
	"encoding/json"
	"net/http"
)

// Handler is the database dependency health checks ping.
type Handler interface {
	Ping() error
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
