package helpers

import (
	"encoding/json"
	"net/http"
)

// APIResponse is the standardized envelope for all API responses.
// Success responses set Success true and include Data; error responses set
// Success false and carry the reason in Message.
// swagger:model APIResponse
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// WriteJSONSuccess sets Content-Type to application/json, writes statusCode,
// and encodes a success envelope with the given message and data.
func WriteJSONSuccess(w http.ResponseWriter, statusCode int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(APIResponse{Success: true, Message: message, Data: data})
}

// WriteJSONError sets Content-Type to application/json, writes statusCode,
// and encodes a failure envelope with the given message.
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(APIResponse{Success: false, Message: message})
}

// WriteJSONErrorData encodes a failure envelope that also carries structured
// details in data, such as a rejection reason.
func WriteJSONErrorData(w http.ResponseWriter, statusCode int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(APIResponse{Success: false, Message: message, Data: data})
}
