package transcoder

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/strmhub/transcoder/media"
	"github.com/strmhub/transcoder/video"
)

// BuildMaster renders the master playlist of a media: the untouched source
// as first variant, every rendition strictly below the source height, and
// one audio entry per track.
func (t *Transcoder) BuildMaster(ctx context.Context, requestID, resource, slug string) (string, error) {
	path, err := t.resolver.GetPath(ctx, requestID, resource, slug)
	if err != nil {
		return "", err
	}
	info, err := t.identifier.Identify(ctx, requestID, path)
	if err != nil {
		return "", err
	}
	return masterPlaylist(info), nil
}

func masterPlaylist(info *media.MediaInfo) string {
	var master strings.Builder
	master.WriteString("#EXTM3U\n")

	// The source always comes first. Players that pick the first variant
	// before measuring bandwidth get the passthrough stream.
	master.WriteString("#EXT-X-STREAM-INF:")
	fmt.Fprintf(&master, "AVERAGE-BANDWIDTH=%d,", info.Video.Bitrate)
	// Margin for peaks, the real peak bitrate of the source is unknown.
	fmt.Fprintf(&master, "BANDWIDTH=%d,", uint32(float64(info.Video.Bitrate)*1.2))
	fmt.Fprintf(&master, "RESOLUTION=%dx%d,", info.Video.Width, info.Video.Height)
	master.WriteString("AUDIO=\"audio\"\n")
	fmt.Fprintf(&master, "./%s/index.m3u8\n", video.Original)

	aspectRatio := float64(info.Video.Width) / float64(info.Video.Height)
	for _, quality := range video.Qualities() {
		if quality.Height() >= info.Video.Quality.Height() {
			continue
		}
		master.WriteString("#EXT-X-STREAM-INF:")
		fmt.Fprintf(&master, "AVERAGE-BANDWIDTH=%d,", quality.AverageBitrate())
		fmt.Fprintf(&master, "BANDWIDTH=%d,", quality.MaxBitrate())
		fmt.Fprintf(&master, "RESOLUTION=%dx%d,",
			uint32(math.Round(aspectRatio*float64(quality.Height()))), quality.Height())
		master.WriteString("CODECS=\"avc1.640028\",")
		master.WriteString("AUDIO=\"audio\"\n")
		fmt.Fprintf(&master, "./%s/index.m3u8\n", quality)
	}

	for _, audio := range info.Audios {
		master.WriteString("#EXT-X-MEDIA:TYPE=AUDIO,")
		master.WriteString("GROUP-ID=\"audio\",")
		if audio.Language != nil {
			fmt.Fprintf(&master, "LANGUAGE=\"%s\",", *audio.Language)
		}
		fmt.Fprintf(&master, "NAME=\"%s\",", audioName(audio))
		master.WriteString("DEFAULT=YES,")
		fmt.Fprintf(&master, "URI=\"./audio/%d/index.m3u8\"\n", audio.Index)
	}
	return master.String()
}

func audioName(audio media.Audio) string {
	switch {
	case audio.Title != nil:
		return *audio.Title
	case audio.Language != nil:
		return *audio.Language
	default:
		return fmt.Sprintf("Audio %d", audio.Index)
	}
}
