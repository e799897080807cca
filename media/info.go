// Package media identifies files of the library: track inventory, stable
// content key and extraction of embedded subtitles and attachments.
package media

import "github.com/strmhub/transcoder/video"

// MediaInfo is the identified metadata of one file. It is immutable once
// returned.
type MediaInfo struct {
	// Sha is the stable content key of the file.
	Sha string `json:"sha"`
	// Path is the absolute path of the file on disk.
	Path string `json:"path"`
	// Length of the media in seconds.
	Length float64 `json:"length"`
	// Container format name.
	Container string     `json:"container"`
	Video     Video      `json:"video"`
	Audios    []Audio    `json:"audios"`
	Subtitles []Subtitle `json:"subtitles"`
	// Fonts are URL paths of the attachments embedded in the file.
	Fonts    []string  `json:"fonts"`
	Chapters []Chapter `json:"chapters"`
}

type Video struct {
	Codec    string  `json:"codec"`
	Language *string `json:"language"`
	// Quality is the closest rendition bucket for the source height.
	Quality video.Quality `json:"quality"`
	Width   uint32        `json:"width"`
	Height  uint32        `json:"height"`
	// Bitrate in bits per second.
	Bitrate uint32 `json:"bitrate"`
}

type Audio struct {
	// Index of this track among the audio tracks, zero based.
	Index     uint32  `json:"index"`
	Title     *string `json:"title"`
	Language  *string `json:"language"`
	Codec     string  `json:"codec"`
	IsDefault bool    `json:"isDefault"`
	IsForced  bool    `json:"isForced"`
}

type Subtitle struct {
	// Index of this track among the subtitle tracks, zero based.
	Index    uint32  `json:"index"`
	Title    *string `json:"title"`
	Language *string `json:"language"`
	// Codec is the normalized codec name ("utf-8" is reported as "subrip").
	Codec string `json:"codec"`
	// Extension is only set for codecs that can be served standalone.
	Extension *string `json:"extension"`
	IsDefault bool    `json:"isDefault"`
	IsForced  bool    `json:"isForced"`
	// Link to download this subtitle, when an extension mapping exists.
	Link *string `json:"link"`
}

type Chapter struct {
	// StartTime in seconds from the start of the media.
	StartTime float64 `json:"startTime"`
	// EndTime in seconds from the start of the media.
	EndTime float64 `json:"endTime"`
	Name    string  `json:"name"`
}

// SubtitleExtensions maps normalized subtitle codecs to the file extension
// they are extracted under. Codecs outside this table cannot be served
// standalone.
var SubtitleExtensions = map[string]string{
	"subrip": "srt",
	"ass":    "ass",
	"vtt":    "vtt",
}
