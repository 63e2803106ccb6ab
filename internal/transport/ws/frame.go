package ws

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/heartmarshall/roomcast/internal/domain"
	"github.com/heartmarshall/roomcast/internal/realtime/scope"
)

// Frame is what every outbound websocket message looks like.
type Frame struct {
	Namespace string `json:"namespace"`
	Payload   any    `json:"payload"`
}

// Response answers one inbound request.
type Response struct {
	Status    int    `json:"status"`
	Method    string `json:"method"`
	Action    string `json:"action"`
	RequestID string `json:"requestId"`
	Data      any    `json:"data"`
}

// ErrorData is the data of a non-2xx response.
type ErrorData struct {
	Error  string              `json:"error"`
	Fields []domain.FieldError `json:"fields,omitempty"`
}

// remoteFrame is the data message that carries a frame to the process
// holding the connection.
type remoteFrame struct {
	ConnectionID string          `json:"connectionId"`
	Namespace    string          `json:"namespace"`
	Payload      json.RawMessage `json:"payload"`
}

// FilterConnectionID is the data message filter key naming the target connection.
const FilterConnectionID = "connection_id"

func respond(sc *scope.Scope, data any) Response {
	return Response{
		Status:    http.StatusOK,
		Method:    sc.Method(),
		Action:    sc.Action(),
		RequestID: sc.RequestID(),
		Data:      data,
	}
}

func respondError(sc *scope.Scope, err error) Response {
	r := respond(sc, nil)
	r.Status = StatusFor(err)

	data := ErrorData{Error: http.StatusText(r.Status)}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		data.Error = ve.Error()
		data.Fields = ve.Errors
	}
	r.Data = data
	return r
}

// StatusFor maps a handler error onto an HTTP-like status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
