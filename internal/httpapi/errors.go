package httpapi

import (
	"encoding/json"
	"net/http"

	"speechd/internal/manager"
	"speechd/internal/session"
	"speechd/pkg/types"
)

// statusForError maps the typed error taxonomy onto HTTP status codes.
func statusForError(err error) (status int, kind string) {
	k, ok := err.(manager.Kinder)
	if !ok {
		return http.StatusInternalServerError, manager.KindUnknown
	}
	switch k.Kind() {
	case manager.KindModelNotFound:
		return http.StatusNotFound, k.Kind()
	case manager.KindInUse:
		return http.StatusConflict, k.Kind()
	case manager.KindLoadTimeout:
		return http.StatusGatewayTimeout, k.Kind()
	case manager.KindDownloadFailed:
		return http.StatusBadGateway, k.Kind()
	case manager.KindOutOfMemory:
		return http.StatusServiceUnavailable, k.Kind()
	case manager.KindIncompatibleDevice:
		return http.StatusNotImplemented, k.Kind()
	case session.KindCapacityExceeded:
		return http.StatusTooManyRequests, k.Kind()
	case session.KindInvalidAudioFormat:
		return http.StatusBadRequest, k.Kind()
	default:
		return http.StatusInternalServerError, k.Kind()
	}
}

// writeError maps a service error onto the JSON error payload.
func writeError(w http.ResponseWriter, err error) {
	status, kind := statusForError(err)
	writeJSONError(w, status, kind, err.Error())
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Kind: kind, Error: msg, Code: status})
}
