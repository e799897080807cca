package transcoder

import (
	"context"
	"errors"
	"os"

	"github.com/strmhub/transcoder/cache"
	"github.com/strmhub/transcoder/config"
	"github.com/strmhub/transcoder/log"
	"github.com/strmhub/transcoder/media"
	"github.com/strmhub/transcoder/metrics"
	"github.com/strmhub/transcoder/video"
)

// ErrNoTranscode is returned when a segment is requested by a client that
// never asked for a playlist.
var ErrNoTranscode = errors.New("no transcode started for this client")

// PathResolver turns a (resource, slug) pair into an absolute file path.
type PathResolver interface {
	GetPath(ctx context.Context, requestID, resource, slug string) (string, error)
}

// MediaIdentifier probes a file and returns its identified metadata.
type MediaIdentifier interface {
	Identify(ctx context.Context, requestID, path string) (*media.MediaInfo, error)
}

// session is one client's video transcode. The ready channel closes once
// the encoder produced its first segments (or failed), so concurrent
// requests for the same client can join an in-flight launch instead of
// racing it.
type session struct {
	clientID  string
	path      string
	quality   video.Quality
	startTime uint32
	sessionID string

	ready chan struct{}
	job   *Job
	err   error
}

// Transcoder owns every running encoder. Video sessions are keyed by client
// id, audio jobs by content so they are shared between clients and survive
// quality switches.
type Transcoder struct {
	layout     Layout
	identifier MediaIdentifier
	resolver   PathResolver

	sessions  *cache.Cache[*session]
	audioJobs *cache.Cache[*audioJob]

	start encoderStarter
}

type audioJob struct {
	ready chan struct{}
	job   *Job
	err   error
}

func New(layout Layout, identifier MediaIdentifier, resolver PathResolver) (*Transcoder, error) {
	if err := os.MkdirAll(layout.Root, 0755); err != nil {
		return nil, err
	}
	if err := layout.Wipe(); err != nil {
		return nil, err
	}
	return &Transcoder{
		layout:     layout,
		identifier: identifier,
		resolver:   resolver,
		sessions:   cache.New[*session](),
		audioJobs:  cache.New[*audioJob](),
		start:      startEncoder,
	}, nil
}

// Transcode returns the playlist for (path, quality), starting an encoder
// if this client has none, joining it if one is already being launched, or
// cancelling and replacing it if the client switched file or quality.
func (t *Transcoder) Transcode(ctx context.Context, requestID, clientID, path string, quality video.Quality, startTime uint32) (string, error) {
	current, created := t.acquireSession(requestID, clientID, path, quality, startTime)
	if !created {
		<-current.ready
		if current.err != nil {
			return "", current.err
		}
		return t.layout.readManifest(t.layout.SessionDir(current.sessionID))
	}

	outDir := t.layout.SessionDir(current.sessionID)
	job, err := t.start(ctx, requestID, path, outDir, videoEncodeArgs(quality), startTime)
	if err == nil {
		err = job.AwaitReady(startTime)
	}
	if err != nil {
		current.err = err
		close(current.ready)
		t.dropSession(clientID, current)
		_ = os.RemoveAll(outDir)
		return "", err
	}

	current.job = job
	close(current.ready)
	metrics.TranscodeSessionsStarted.WithLabelValues(string(quality)).Inc()
	return t.layout.readManifest(outDir)
}

// acquireSession reserves the client's slot. The returned bool is true when
// the caller owns the launch. The lock is never held while an encoder is
// being started or stopped.
func (t *Transcoder) acquireSession(requestID, clientID, path string, quality video.Quality, startTime uint32) (*session, bool) {
	for {
		candidate := &session{
			clientID:  clientID,
			path:      path,
			quality:   quality,
			startTime: startTime,
			sessionID: config.RandomID(config.SessionIDLength),
			ready:     make(chan struct{}),
		}
		current, created := t.sessions.GetOrStore(clientID, candidate)
		if created {
			metrics.ActiveSessions.Inc()
			return candidate, true
		}

		<-current.ready
		// Joiners surface a failed launch instead of retrying it, the
		// launcher already removed the entry.
		if current.err != nil || (current.path == path && current.quality == quality) {
			return current, false
		}

		// Stale entry, cancel and retry. Another caller may race us to the
		// same conclusion, dropSession makes sure only one of us wins.
		if t.dropSession(clientID, current) {
			if current.job != nil {
				log.Log(requestID, "replacing transcode session",
					"client_id", clientID, "old_quality", current.quality, "new_quality", quality)
				current.job.Interrupt()
				metrics.SessionsReplaced.Inc()
			}
			_ = os.RemoveAll(t.layout.SessionDir(current.sessionID))
		}
	}
}

// dropSession removes the entry only if it still maps to the given session.
func (t *Transcoder) dropSession(clientID string, s *session) bool {
	if current, ok := t.sessions.Get(clientID); !ok || current != s {
		return false
	}
	t.sessions.Remove(clientID)
	metrics.ActiveSessions.Dec()
	return true
}

// GetSegment returns the path of a segment from the client's current
// session. The file may not exist yet if the encoder has not reached it.
//
// TODO: key the lookup by (path, quality) as well, so a client racing its
// own quality switch cannot be served a segment from the old rendition.
func (t *Transcoder) GetSegment(clientID string, chunk uint32) (string, error) {
	current, ok := t.sessions.Get(clientID)
	if !ok {
		return "", ErrNoTranscode
	}
	return t.layout.SegmentPath(t.layout.SessionDir(current.sessionID), chunk), nil
}

// TranscodeAudio returns the playlist of an audio rendition, launching the
// encoder on first request. Audio jobs are shared across clients and are
// never cancelled, tracks are cheap enough to encode to completion.
func (t *Transcoder) TranscodeAudio(ctx context.Context, requestID, path string, audio uint32) (string, error) {
	outDir := t.layout.AudioDir(path, audio)
	current, created := t.audioJobs.GetOrStore(audioKey(path, audio), &audioJob{ready: make(chan struct{})})
	if !created {
		<-current.ready
		if current.err != nil {
			return "", current.err
		}
		return t.layout.readManifest(outDir)
	}

	job, err := t.start(ctx, requestID, path, outDir, audioEncodeArgs(audio), 0)
	if err == nil {
		err = job.AwaitReady(0)
	}
	if err != nil {
		current.err = err
		close(current.ready)
		t.audioJobs.Remove(audioKey(path, audio))
		_ = os.RemoveAll(outDir)
		return "", err
	}

	current.job = job
	close(current.ready)
	metrics.AudioJobsStarted.Inc()
	return t.layout.readManifest(outDir)
}

// GetAudioSegment returns the path of an audio segment.
func (t *Transcoder) GetAudioSegment(path string, audio uint32, chunk uint32) string {
	return t.layout.SegmentPath(t.layout.AudioDir(path, audio), chunk)
}

// Shutdown interrupts every running encoder. Called on process teardown so
// ffmpeg children do not outlive the service.
// Only jobs whose launch has completed are signalled, a launch still in
// flight exits on its own when the process does.
func (t *Transcoder) Shutdown() {
	for _, key := range t.sessions.Keys() {
		current, ok := t.sessions.Get(key)
		if !ok {
			continue
		}
		select {
		case <-current.ready:
			if current.job != nil {
				current.job.Interrupt()
			}
		default:
		}
	}
	for _, key := range t.audioJobs.Keys() {
		current, ok := t.audioJobs.Get(key)
		if !ok {
			continue
		}
		select {
		case <-current.ready:
			if current.job != nil {
				current.job.Interrupt()
			}
		default:
		}
	}
}
