package responses

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
)

// RequestIDHeader is set on the response by the request id middleware before handlers run
const RequestIDHeader = "X-Request-ID"

// Write encodes data in the success envelope
func Write[T any](w http.ResponseWriter, statusCode int, data *T) {
	writeEnvelope(w, statusCode, APIResponse[T]{Status: string(constants.APIStatusOk), Data: data})
}

// WriteError encodes message in the error envelope
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	writeEnvelope(w, statusCode, APIResponse[any]{Status: string(constants.APIStatusError), Error: message})
}

// WriteErrorWithData encodes message in the error envelope alongside data
func WriteErrorWithData[T any](w http.ResponseWriter, statusCode int, message string, data *T) {
	writeEnvelope(w, statusCode, APIResponse[T]{Status: string(constants.APIStatusError), Error: message, Data: data})
}

func writeEnvelope[T any](w http.ResponseWriter, statusCode int, resp APIResponse[T]) {
	resp.Timestamp = time.Now().UTC()
	resp.RequestID = w.Header().Get(RequestIDHeader)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}
