// Package video holds the fixed encoding ladder used for HLS renditions.
package video

import "fmt"

// Quality is a target rendition height. Original means the video stream is
// copied as-is (transmux); it carries no height or bitrate and every
// consumer has to special-case it.
type Quality string

const (
	P240     Quality = "240p"
	P360     Quality = "360p"
	P480     Quality = "480p"
	P720     Quality = "720p"
	P1080    Quality = "1080p"
	P1440    Quality = "1440p"
	P4k      Quality = "4k"
	P8k      Quality = "8k"
	Original Quality = "original"
)

// Qualities returns every transcoded quality in ascending height order.
// Original is purposefully excluded since it requires special treatment
// anyway.
func Qualities() []Quality {
	return []Quality{P240, P360, P480, P720, P1080, P1440, P4k, P8k}
}

// ParseQuality is strict: only the eight height tokens plus "original" are
// accepted.
func ParseQuality(s string) (Quality, error) {
	switch q := Quality(s); q {
	case P240, P360, P480, P720, P1080, P1440, P4k, P8k, Original:
		return q, nil
	default:
		return "", fmt.Errorf("invalid quality: %q", s)
	}
}

// FromHeight returns the smallest variant whose height can hold h, so a
// source never selects a bucket that would upscale it. Heights above 8k
// still map to 8k.
func FromHeight(h uint32) Quality {
	for _, q := range Qualities() {
		if q.Height() >= h {
			return q
		}
	}
	return P8k
}

func (q Quality) String() string {
	return string(q)
}

func (q Quality) Height() uint32 {
	switch q {
	case P240:
		return 240
	case P360:
		return 360
	case P480:
		return 480
	case P720:
		return 720
	case P1080:
		return 1080
	case P1440:
		return 1440
	case P4k:
		return 2160
	case P8k:
		return 4320
	}
	panic(fmt.Sprintf("quality %q has no height", q))
}

// AverageBitrate in bits per second.
func (q Quality) AverageBitrate() uint32 {
	switch q {
	case P240:
		return 400_000
	case P360:
		return 800_000
	case P480:
		return 1_200_000
	case P720:
		return 2_400_000
	case P1080:
		return 4_800_000
	case P1440:
		return 9_600_000
	case P4k:
		return 16_000_000
	case P8k:
		return 28_000_000
	}
	panic(fmt.Sprintf("quality %q has no average bitrate", q))
}

// MaxBitrate in bits per second.
func (q Quality) MaxBitrate() uint32 {
	switch q {
	case P240:
		return 700_000
	case P360:
		return 1_400_000
	case P480:
		return 2_100_000
	case P720:
		return 4_000_000
	case P1080:
		return 8_000_000
	case P1440:
		return 12_000_000
	case P4k:
		return 28_000_000
	case P8k:
		return 40_000_000
	}
	panic(fmt.Sprintf("quality %q has no max bitrate", q))
}

func (q Quality) MarshalText() ([]byte, error) {
	return []byte(q), nil
}

func (q *Quality) UnmarshalText(text []byte) error {
	parsed, err := ParseQuality(string(text))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
