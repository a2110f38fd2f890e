package apperrors

import (
	"encoding/json"
	"net/http"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError escribe err como JSON. La causa (Err) nunca se serializa.
func WriteError(w http.ResponseWriter, err error) {
	ae := FromError(err)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(ae.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    ae.Code,
		Message: ae.Message,
		Detail:  ae.Detail,
	})
}
