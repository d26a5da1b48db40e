package api

import (
	"net/http"

	"github.com/SamSjosten/FitChallenge-sub003/internal/models/dtos/responses"
)

func respondWithSuccess[T any](w http.ResponseWriter, statusCode int, data *T) {
	responses.Write(w, statusCode, data)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	responses.WriteError(w, statusCode, message)
}
