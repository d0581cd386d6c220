package httpx

import (
	"encoding/json"
	"net/http"
)

// Stable machine codes, distinct from the human message: clients branch on the
// code, never on errmsg text.
const (
	CodeOK                = "ok"
	CodeValidation        = "validation_error"
	CodeNotFound          = "not_found"
	CodeInsufficientStock = "insufficient_stock"
	CodeCommitFailure     = "commit_failure"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, errmsg string) {
	writeJSON(w, status, map[string]string{"code": code, "errmsg": errmsg})
}
