package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/strmhub/transcoder/errors"
	"github.com/strmhub/transcoder/log"
	"github.com/strmhub/transcoder/requests"
	"github.com/strmhub/transcoder/video"
)

// Stream dispatches every /:resource/:slug/* request. The slugs
// "attachment" and "subtitle" are reserved for extracted metadata files,
// keyed by content sha instead of by slug.
func (c *StreamHandlersCollection) Stream() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		requestID := requests.GetRequestID(r)
		resource := ps.ByName("resource")
		slug := ps.ByName("slug")
		file := strings.TrimPrefix(ps.ByName("file"), "/")

		switch slug {
		case "attachment":
			c.serveExtracted(w, r, resource, "att", file)
			return
		case "subtitle":
			c.serveExtracted(w, r, resource, "sub", file)
			return
		}

		switch file {
		case "direct":
			c.direct(w, r, requestID, resource, slug)
		case "master.m3u8":
			c.master(w, r, requestID, resource, slug)
		case "info":
			c.info(w, r, requestID, resource, slug)
		default:
			c.rendition(w, r, requestID, resource, slug, file)
		}
	}
}

// direct serves the source file untouched. http.ServeContent handles range
// requests, seeking in direct playback depends on it.
func (c *StreamHandlersCollection) direct(w http.ResponseWriter, r *http.Request, requestID, resource, slug string) {
	path, err := c.Resolver.GetPath(r.Context(), requestID, resource, slug)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	log.AddContext(requestID, "path", path)
	http.ServeFile(w, r, path)
}

func (c *StreamHandlersCollection) master(w http.ResponseWriter, r *http.Request, requestID, resource, slug string) {
	manifest, err := c.Transcoder.BuildMaster(r.Context(), requestID, resource, slug)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	servePlaylist(w, manifest)
}

func (c *StreamHandlersCollection) info(w http.ResponseWriter, r *http.Request, requestID, resource, slug string) {
	path, err := c.Resolver.GetPath(r.Context(), requestID, resource, slug)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	info, err := c.Identifier.Identify(r.Context(), requestID, path)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(info); err != nil {
		log.LogError(requestID, "error writing media info", err)
	}
}

// rendition handles the per-quality and per-audio-track endpoints:
// {quality}/index.m3u8, {quality}/segments-NN.ts, audio/{i}/index.m3u8 and
// audio/{i}/segments-NN.ts.
func (c *StreamHandlersCollection) rendition(w http.ResponseWriter, r *http.Request, requestID, resource, slug, file string) {
	parts := strings.Split(file, "/")
	switch {
	case len(parts) == 3 && parts[0] == "audio":
		audio, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			errors.WriteHTTPBadRequest(w, "Invalid audio index")
			return
		}
		c.audio(w, r, requestID, resource, slug, uint32(audio), parts[2])
	case len(parts) == 2:
		quality, err := video.ParseQuality(parts[0])
		if err != nil {
			errors.WriteHTTPBadRequest(w, "Invalid quality")
			return
		}
		c.videoRendition(w, r, requestID, resource, slug, quality, parts[1])
	default:
		errors.WriteHTTPNotFound(w, "No endpoint found")
	}
}

func (c *StreamHandlersCollection) videoRendition(w http.ResponseWriter, r *http.Request, requestID, resource, slug string, quality video.Quality, file string) {
	clientID := r.Header.Get("X-CLIENT-ID")
	if clientID == "" {
		errors.WriteHTTPBadRequest(w, "Missing client id")
		return
	}

	if file == "index.m3u8" {
		path, err := c.Resolver.GetPath(r.Context(), requestID, resource, slug)
		if err != nil {
			writeError(w, requestID, err)
			return
		}
		startTime := parseStartTime(r)
		log.AddContext(requestID, "client_id", clientID, "quality", quality)
		manifest, err := c.Transcoder.Transcode(r.Context(), requestID, clientID, path, quality, startTime)
		if err != nil {
			writeError(w, requestID, err)
			return
		}
		servePlaylist(w, manifest)
		return
	}

	chunk, ok := parseSegment(file)
	if !ok {
		errors.WriteHTTPBadRequest(w, "Invalid segment number")
		return
	}
	segment, err := c.Transcoder.GetSegment(clientID, chunk)
	if err != nil {
		writeError(w, requestID, err)
		return
	}
	serveSegment(w, r, segment)
}

func (c *StreamHandlersCollection) audio(w http.ResponseWriter, r *http.Request, requestID, resource, slug string, audio uint32, file string) {
	path, err := c.Resolver.GetPath(r.Context(), requestID, resource, slug)
	if err != nil {
		writeError(w, requestID, err)
		return
	}

	if file == "index.m3u8" {
		manifest, err := c.Transcoder.TranscodeAudio(r.Context(), requestID, path, audio)
		if err != nil {
			writeError(w, requestID, err)
			return
		}
		servePlaylist(w, manifest)
		return
	}

	chunk, ok := parseSegment(file)
	if !ok {
		errors.WriteHTTPBadRequest(w, "Invalid segment number")
		return
	}
	serveSegment(w, r, c.Transcoder.GetAudioSegment(path, audio, chunk))
}

// serveExtracted serves a file extracted at identify time, either an
// attachment or a standalone subtitle. sha is the content key of the media.
func (c *StreamHandlersCollection) serveExtracted(w http.ResponseWriter, r *http.Request, sha, kind, name string) {
	if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		errors.WriteHTTPBadRequest(w, "Invalid file name")
		return
	}
	path := filepath.Join(c.MetadataPath, sha, kind, name)
	if _, err := os.Stat(path); err != nil {
		errors.WriteHTTPNotFound(w, "No file found")
		return
	}
	http.ServeFile(w, r, path)
}

func servePlaylist(w http.ResponseWriter, manifest string) {
	w.Header().Set("Content-Type", playlistContentType)
	w.Write([]byte(manifest))
}

// serveSegment serves one transcoded segment. The path is trusted, a
// missing file means the client guessed a segment number past the end.
func serveSegment(w http.ResponseWriter, r *http.Request, path string) {
	if _, err := os.Stat(path); err != nil {
		errors.WriteHTTPBadRequest(w, "Invalid segment number")
		return
	}
	http.ServeFile(w, r, path)
}

func parseSegment(file string) (uint32, bool) {
	rest, found := strings.CutPrefix(file, "segments-")
	if !found {
		return 0, false
	}
	rest, found = strings.CutSuffix(rest, ".ts")
	if !found {
		return 0, false
	}
	chunk, err := strconv.ParseUint(rest, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(chunk), true
}

func parseStartTime(r *http.Request) uint32 {
	raw := r.URL.Query().Get("startTime")
	if raw == "" {
		return 0
	}
	startTime, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(startTime)
}
