// Package handler implements the HTTP routes of the genai server.
package handler

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/flynn-ai/genai/internal/errors"
	"github.com/flynn-ai/genai/pkg/protocol"
)

// Transport-level error codes. Generation failures use the gateway codes.
const (
	CodeInvalidJSON     = "INVALID_JSON"
	CodeBodyTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeInvalidLimit    = "INVALID_LIMIT"
	CodeHistoryDisabled = "HISTORY_DISABLED"
	CodeHistoryFailed   = "HISTORY_ERROR"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError serializes err as the error contract. Raw error text is only
// exposed in development.
func writeError(w http.ResponseWriter, err error, dev bool) {
	gwErr, ok := errors.As(err)
	if !ok {
		gwErr = errors.Classify(err, "")
	}

	resp := protocol.ErrorResponse{
		Message:   gwErr.Message,
		ErrorCode: gwErr.Code,
		Solutions: gwErr.Remediation,
		Timestamp: protocol.Timestamp(time.Now()),
	}
	if dev {
		resp.Details = gwErr.Message
		if gwErr.Inner != nil {
			resp.Details = gwErr.Inner.Error()
		}
	}
	writeJSON(w, gwErr.Kind.HTTPStatus(), resp)
}

func writeFailure(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, protocol.ErrorResponse{
		Message:   msg,
		ErrorCode: code,
		Timestamp: protocol.Timestamp(time.Now()),
	})
}

// decodePrompt reads the prompt body. It writes the failure itself and
// reports false when the body is unusable.
func decodePrompt(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req protocol.PromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			writeFailure(w, http.StatusRequestEntityTooLarge, CodeBodyTooLarge, "Request body too large")
			return "", false
		}
		writeFailure(w, http.StatusBadRequest, CodeInvalidJSON, "Invalid JSON body")
		return "", false
	}
	return req.Prompt, true
}
