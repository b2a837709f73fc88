package handlers

import (
	"encoding/json"
	"net/http"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// isValidAccountID applies the account id rules: 2-64 chars of lowercase
// alphanumerics with single . _ - separators
func isValidAccountID(id string) bool {
	if len(id) < 2 || len(id) > 64 {
		return false
	}
	if !isAlnum(rune(id[0])) || !isAlnum(rune(id[len(id)-1])) {
		return false
	}
	prevSeparator := false
	for _, c := range id {
		switch {
		case isAlnum(c):
			prevSeparator = false
		case c == '.' || c == '_' || c == '-':
			if prevSeparator {
				return false
			}
			prevSeparator = true
		default:
			return false
		}
	}
	return true
}

func isAlnum(c rune) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}
