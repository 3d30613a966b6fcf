package api

import (
	"net/http"

	"loothound/internal/app"
)

const bearerPrefix = "Bearer "

// bearerToken pulls the player token out of the Authorization header. The
// returned message pins down what was malformed; it is empty on success.
// Tokens are issued lowercase but validation accepts either hex case.
func bearerToken(r *http.Request) (token, errMessage string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "Authorization header is required"
	}
	if len(header) < len(bearerPrefix) || header[:len(bearerPrefix)] != bearerPrefix {
		return "", "Invalid authorization format"
	}
	token = header[len(bearerPrefix):]
	if len(token) != app.TokenLength {
		return "", "Invalid token length"
	}
	if !isHexToken(token) {
		return "", "Invalid token format"
	}
	return token, ""
}

// isHexToken reports whether s consists only of hex digits.
func isHexToken(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// authorize resolves the request to a live player token. On failure it has
// already written the 401 response and returns ok=false.
func (h *routerHandlers) authorize(w http.ResponseWriter, r *http.Request) (token string, ok bool) {
	token, errMessage := bearerToken(r)
	if errMessage != "" {
		writeError(w, r, http.StatusUnauthorized, "invalidToken", errMessage)
		return "", false
	}
	if err := h.game.Authorize(token); err != nil {
		writeError(w, r, http.StatusUnauthorized, "unknownToken", "Player token has not been found")
		return "", false
	}
	return token, true
}
