package http

import (
	"encoding/json"
	"net/http"
)

// ErrorBody descreve falhas normalizadas. Nunca carrega pilha ou detalhes internos.
type ErrorBody struct {
	Code     string      `json:"code"`
	Mensagem string      `json:"mensagem"`
	Detalhes interface{} `json:"detalhes,omitempty"`
}

// WriteJSON escreve o payload de sucesso.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError escreve o corpo de erro e mantém formato consistente.
func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorBody{Code: code, Mensagem: message, Detalhes: details})
}
