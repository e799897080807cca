package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/strmhub/transcoder/log"
)

type apiError struct {
	Status string   `json:"status"`
	Errors []string `json:"errors"`
}

func writeHTTPError(w http.ResponseWriter, status int, messages ...string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := apiError{Status: strconv.Itoa(status), Errors: messages}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.LogNoRequestID("error writing HTTP error", "status", status, "error", err)
	}
}

func WriteHTTPBadRequest(w http.ResponseWriter, messages ...string) {
	writeHTTPError(w, http.StatusBadRequest, messages...)
}

func WriteHTTPNotFound(w http.ResponseWriter, messages ...string) {
	writeHTTPError(w, http.StatusNotFound, messages...)
}

func WriteHTTPInternalServerError(w http.ResponseWriter, messages ...string) {
	writeHTTPError(w, http.StatusInternalServerError, messages...)
}

// ArgumentError is user input that ffmpeg refused, e.g. an audio index that
// matches no stream. Maps to a 400.
type ArgumentError struct {
	Msg string
}

func (e *ArgumentError) Error() string {
	return e.Msg
}

// FFmpegError is an opaque tool failure. The collected stderr is attached as
// a diagnostic. Maps to a 500.
type FFmpegError struct {
	Stderr string
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg exited with an error: %s", e.Stderr)
}

// ReadError means an output file that should exist by now is missing from
// disk. Maps to a 500.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("could not read %s: %s", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
