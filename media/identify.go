package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/strmhub/transcoder/log"
	"github.com/strmhub/transcoder/metrics"
	"github.com/strmhub/transcoder/video"
)

// Identifier probes media files and extracts their embedded subtitles and
// attachments into the metadata directory.
type Identifier struct {
	// MetadataPath is the root of the persistent per-sha metadata tree.
	MetadataPath string

	// Replaced in tests.
	inspect func(ctx context.Context, path string) ([]byte, error)
	extract func(ctx context.Context, path, attDir string, subs []subtitleOutput) error
}

func NewIdentifier(metadataPath string) *Identifier {
	return &Identifier{
		MetadataPath: metadataPath,
		inspect:      runInspector,
		extract:      extractEmbedded,
	}
}

// Identify probes path and returns its metadata. The first identification of
// a file also extracts its attachments and extractable subtitles under
// /metadata/{sha}/; later calls find the directory and skip that step.
func (i *Identifier) Identify(ctx context.Context, requestID, path string) (*MediaInfo, error) {
	start := time.Now()
	defer func() {
		metrics.IdentifyDurationSec.Observe(time.Since(start).Seconds())
	}()

	raw, err := i.inspect(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := validateInspectorOutput(raw); err != nil {
		return nil, err
	}
	var out inspectorOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("error decoding inspector output: %w", err)
	}

	var general, videoTrack *inspectorTrack
	var audioTracks, textTracks, menuTracks []*inspectorTrack
	for idx := range out.Media.Track {
		t := &out.Media.Track[idx]
		switch t.Type {
		case "General":
			general = t
		case "Video":
			if videoTrack == nil {
				videoTrack = t
			}
		case "Audio":
			audioTracks = append(audioTracks, t)
		case "Text":
			textTracks = append(textTracks, t)
		case "Menu":
			menuTracks = append(menuTracks, t)
		}
	}
	if general == nil {
		return nil, fmt.Errorf("no general track reported for %s", path)
	}
	if videoTrack == nil {
		return nil, fmt.Errorf("file without video track: %s", path)
	}

	sha, err := contentKey(path, general.UniqueID)
	if err != nil {
		return nil, err
	}

	info := &MediaInfo{
		Sha:       sha,
		Path:      path,
		Length:    parseFloat(general.Duration),
		Container: general.Format,
		Video:     parseVideo(videoTrack, general),
		Audios:    parseAudios(audioTracks),
		Subtitles: parseSubtitles(textTracks, sha),
		Fonts:     parseFonts(general, sha),
		Chapters:  parseChapters(menuTracks),
	}

	if err := i.extractOnce(ctx, requestID, info); err != nil {
		return nil, err
	}
	return info, nil
}

// extractOnce dumps attachments and extractable subtitles to the per-sha
// metadata directories. Keyed on the existence of /metadata/{sha}/ so it
// runs at most once per content key.
func (i *Identifier) extractOnce(ctx context.Context, requestID string, info *MediaInfo) error {
	root := filepath.Join(i.MetadataPath, info.Sha)
	if _, err := os.Stat(root); err == nil {
		return nil
	}
	attDir := filepath.Join(root, "att")
	subDir := filepath.Join(root, "sub")
	if err := os.MkdirAll(attDir, 0755); err != nil {
		return err
	}
	if err := os.MkdirAll(subDir, 0755); err != nil {
		return err
	}

	var subs []subtitleOutput
	for _, sub := range info.Subtitles {
		if sub.Extension == nil {
			continue
		}
		subs = append(subs, subtitleOutput{
			Index: sub.Index,
			Path:  filepath.Join(subDir, fmt.Sprintf("%d.%s", sub.Index, *sub.Extension)),
		})
	}
	log.Log(requestID, "extracting embedded metadata", "path", info.Path, "sha", info.Sha, "subtitles", len(subs))
	return i.extract(ctx, info.Path, attDir, subs)
}

// contentKey prefers the container UniqueID when it looks legitimate
// (sentinel values are shorter than 5 characters). Files without one get a
// hash of their path and modification date, so the key stays stable across
// restarts.
func contentKey(path, uniqueID string) (string, error) {
	if len(uniqueID) >= 5 {
		return uniqueID, nil
	}
	st, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	h := xxhash.New()
	_, _ = h.WriteString(path)
	_, _ = h.WriteString(st.ModTime().UTC().Format("2006-01-02T15:04:05.999999999Z"))
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func parseVideo(t, general *inspectorTrack) Video {
	height := parseUint(t.Height)
	bitrate := parseUint(t.BitRate)
	if bitrate == 0 {
		bitrate = parseUint(general.OverallBitRate)
	}
	return Video{
		Codec:    t.Format,
		Language: optional(t.Language),
		Quality:  video.FromHeight(height),
		Width:    parseUint(t.Width),
		Height:   height,
		Bitrate:  bitrate,
	}
}

func parseAudios(tracks []*inspectorTrack) []Audio {
	audios := make([]Audio, 0, len(tracks))
	for _, t := range tracks {
		audios = append(audios, Audio{
			Index:     t.typeIndex(),
			Title:     optional(t.Title),
			Language:  optional(t.Language),
			Codec:     t.Format,
			IsDefault: t.Default == "Yes",
			IsForced:  t.Forced == "Yes",
		})
	}
	return audios
}

func parseSubtitles(tracks []*inspectorTrack, sha string) []Subtitle {
	subs := make([]Subtitle, 0, len(tracks))
	for _, t := range tracks {
		codec := strings.ToLower(t.Format)
		if codec == "utf-8" {
			codec = "subrip"
		}
		sub := Subtitle{
			Index:     t.typeIndex(),
			Title:     optional(t.Title),
			Language:  optional(t.Language),
			Codec:     codec,
			IsDefault: t.Default == "Yes",
			IsForced:  t.Forced == "Yes",
		}
		if ext, ok := SubtitleExtensions[codec]; ok {
			link := fmt.Sprintf("/video/%s/subtitle/%d.%s", sha, sub.Index, ext)
			sub.Extension = &ext
			sub.Link = &link
		}
		subs = append(subs, sub)
	}
	return subs
}

func parseFonts(general *inspectorTrack, sha string) []string {
	attachments := general.Extra["Attachments"]
	if attachments == "" {
		return []string{}
	}
	names := strings.Split(attachments, " / ")
	fonts := make([]string, 0, len(names))
	for _, name := range names {
		fonts = append(fonts, fmt.Sprintf("/video/%s/attachment/%s", sha, name))
	}
	return fonts
}

// parseChapters reads the menu track. Chapter marks are keyed by their start
// timestamp (_HH_MM_SS_mmm) and valued by their name; each chapter ends
// where the next one starts.
func parseChapters(tracks []*inspectorTrack) []Chapter {
	if len(tracks) == 0 || len(tracks[0].Extra) == 0 {
		return []Chapter{}
	}
	keys := make([]string, 0, len(tracks[0].Extra))
	for k := range tracks[0].Extra {
		keys = append(keys, k)
	}
	// Fixed-width timestamps, lexical order is chronological order.
	sort.Strings(keys)

	chapters := make([]Chapter, 0, len(keys))
	for i := 0; i+1 < len(keys); i++ {
		start, ok := menuTimeSeconds(keys[i])
		if !ok {
			continue
		}
		end, ok := menuTimeSeconds(keys[i+1])
		if !ok {
			continue
		}
		chapters = append(chapters, Chapter{
			StartTime: start,
			EndTime:   end,
			Name:      tracks[0].Extra[keys[i]],
		})
	}
	return chapters
}

func menuTimeSeconds(key string) (float64, bool) {
	parts := strings.Split(key, "_")
	// Keys look like "_00_05_23_500": empty leading part then h, m, s, ms.
	if len(parts) != 5 {
		return 0, false
	}
	var vals [4]float64
	for i, part := range parts[1:] {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, false
		}
		vals[i] = v
	}
	return (vals[0]*60+vals[1])*60 + vals[2] + vals[3]/1000, true
}

func parseUint(s string) uint32 {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
