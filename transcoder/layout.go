package transcoder

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"github.com/strmhub/transcoder/errors"
)

const manifestName = "stream.m3u8"

// Layout describes the purgeable on-disk tree holding transcode outputs.
// Video sessions live under a per-session random directory, audio jobs
// under a content-addressed one so they survive session replacement.
type Layout struct {
	Root string
}

func (l Layout) SessionDir(sessionID string) string {
	return filepath.Join(l.Root, sessionID)
}

func (l Layout) AudioDir(path string, audio uint32) string {
	return filepath.Join(l.Root, audioKey(path, audio))
}

func (l Layout) ManifestPath(dir string) string {
	return filepath.Join(dir, manifestName)
}

func (l Layout) SegmentPath(dir string, chunk uint32) string {
	return filepath.Join(dir, fmt.Sprintf("segments-%02d.ts", chunk))
}

// audioKey derives a stable directory name for an audio job from the source
// path and track index. Two clients asking for the same track share it.
func audioKey(path string, audio uint32) string {
	h := xxhash.New()
	_, _ = h.WriteString(path)
	_, _ = h.WriteString(fmt.Sprintf(":%d", audio))
	return fmt.Sprintf("%016x", h.Sum64())
}

// Wipe removes every direct child of the root. Sessions do not survive a
// restart, so anything found at boot is stale.
func (l Layout) Wipe() error {
	entries, err := os.ReadDir(l.Root)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(l.Root, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// readManifest returns the current content of the session's playlist.
func (l Layout) readManifest(dir string) (string, error) {
	path := l.ManifestPath(dir)
	content, err := os.ReadFile(path)
	if err != nil {
		return "", &errors.ReadError{Path: path, Err: err}
	}
	return string(content), nil
}
