package middleware

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Success bool `json:"success"`
	Error   struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

// writeJSONError writes a failure envelope with the correct Content-Type.
func writeJSONError(w http.ResponseWriter, status int, kind, msg string) {
	var body errorBody
	body.Error.Kind = kind
	body.Error.Message = msg
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
