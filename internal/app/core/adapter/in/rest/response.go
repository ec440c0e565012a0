package rest

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse 錯誤回應格式
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, errorMsg, details string) {
	writeJSON(w, status, ErrorResponse{
		Error:   errorMsg,
		Message: details,
	})
}
