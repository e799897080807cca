// Package handlers implements the HTTP surface of the transcoder.
//
// Every streaming endpoint lives under /:resource/:slug/ and is dispatched
// on the rest of the path, the router cannot mix static and wildcard
// segments at the same level.
package handlers

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/strmhub/transcoder/clients"
	"github.com/strmhub/transcoder/errors"
	"github.com/strmhub/transcoder/log"
	"github.com/strmhub/transcoder/transcoder"
	"github.com/strmhub/transcoder/video"
)

// Playlists are served as plain text, players accept it and browsers can
// display it.
const playlistContentType = "text/plain; charset=utf-8"

// Streamer is the part of the transcoder the HTTP surface needs.
type Streamer interface {
	BuildMaster(ctx context.Context, requestID, resource, slug string) (string, error)
	Transcode(ctx context.Context, requestID, clientID, path string, quality video.Quality, startTime uint32) (string, error)
	GetSegment(clientID string, chunk uint32) (string, error)
	TranscodeAudio(ctx context.Context, requestID, path string, audio uint32) (string, error)
	GetAudioSegment(path string, audio uint32, chunk uint32) string
}

// StreamHandlersCollection holds the dependencies of the streaming
// endpoints.
type StreamHandlersCollection struct {
	Resolver   transcoder.PathResolver
	Identifier transcoder.MediaIdentifier
	Transcoder Streamer
	// MetadataPath is the root of the extracted attachments and subtitles.
	MetadataPath string
}

// Ok is a minimal healthcheck.
func (c *StreamHandlersCollection) Ok() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Write([]byte("OK"))
	}
}

// writeError maps domain errors onto the HTTP error body.
func writeError(w http.ResponseWriter, requestID string, err error) {
	var argErr *errors.ArgumentError
	var ffErr *errors.FFmpegError
	var readErr *errors.ReadError
	switch {
	case stderrors.Is(err, clients.ErrNotFound):
		errors.WriteHTTPNotFound(w, "No file found for this slug")
	case stderrors.Is(err, transcoder.ErrNoTranscode):
		errors.WriteHTTPBadRequest(w, "No transcode started for the selected show/quality")
	case stderrors.As(err, &argErr):
		errors.WriteHTTPBadRequest(w, argErr.Msg)
	case stderrors.As(err, &ffErr):
		log.LogError(requestID, "ffmpeg failed", err)
		errors.WriteHTTPInternalServerError(w, "Transcode failed")
	case stderrors.As(err, &readErr):
		log.LogError(requestID, "transcode output missing", err)
		errors.WriteHTTPInternalServerError(w, "Could not read the transcoded playlist")
	default:
		log.LogError(requestID, "unhandled error", err)
		errors.WriteHTTPInternalServerError(w, "Internal Server Error")
	}
}
