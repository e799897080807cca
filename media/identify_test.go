package media

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const fixtureOutput = `{
	"media": {
		"@ref": "/library/show/s01e01.mkv",
		"track": [
			{
				"@type": "General",
				"UniqueID": "215296011979626531533584083344590270338",
				"Format": "Matroska",
				"Duration": "1421.312",
				"OverallBitRate": "4225360",
				"extra": {
					"Attachments": "OpenSans-Regular.ttf / OpenSans-Bold.ttf"
				}
			},
			{
				"@type": "Video",
				"Format": "AVC",
				"Width": "1920",
				"Height": "1080",
				"BitRate": "3976361"
			},
			{
				"@type": "Audio",
				"@typeorder": "1",
				"Format": "AAC",
				"Language": "en",
				"Default": "Yes",
				"Forced": "No"
			},
			{
				"@type": "Audio",
				"@typeorder": "2",
				"Format": "AC-3",
				"Title": "Commentary",
				"Language": "fr",
				"Default": "No",
				"Forced": "No"
			},
			{
				"@type": "Text",
				"@typeorder": "1",
				"Format": "UTF-8",
				"Language": "en",
				"Default": "Yes",
				"Forced": "No"
			},
			{
				"@type": "Text",
				"@typeorder": "2",
				"Format": "PGS",
				"Language": "fr",
				"Default": "No",
				"Forced": "Yes"
			},
			{
				"@type": "Menu",
				"extra": {
					"_00_00_00_000": "Opening",
					"_00_01_30_500": "Part 1",
					"_00_22_40_000": "Ending"
				}
			}
		]
	}
}`

func fixtureIdentifier(t *testing.T, output string, extractCalls *int) *Identifier {
	t.Helper()
	ident := NewIdentifier(t.TempDir())
	ident.inspect = func(ctx context.Context, path string) ([]byte, error) {
		return []byte(output), nil
	}
	ident.extract = func(ctx context.Context, path, attDir string, subs []subtitleOutput) error {
		if extractCalls != nil {
			*extractCalls++
		}
		return nil
	}
	return ident
}

func TestIdentify(t *testing.T) {
	ident := fixtureIdentifier(t, fixtureOutput, nil)
	info, err := ident.Identify(context.Background(), "test", "/library/show/s01e01.mkv")
	require.NoError(t, err)

	require.Equal(t, "215296011979626531533584083344590270338", info.Sha)
	require.Equal(t, "/library/show/s01e01.mkv", info.Path)
	require.Equal(t, "Matroska", info.Container)
	require.InDelta(t, 1421.312, info.Length, 0.001)

	require.Equal(t, "AVC", info.Video.Codec)
	require.EqualValues(t, 1920, info.Video.Width)
	require.EqualValues(t, 1080, info.Video.Height)
	require.EqualValues(t, 3976361, info.Video.Bitrate)
	require.Equal(t, "1080p", info.Video.Quality.String())

	require.Len(t, info.Audios, 2)
	require.EqualValues(t, 0, info.Audios[0].Index)
	require.Equal(t, "en", *info.Audios[0].Language)
	require.True(t, info.Audios[0].IsDefault)
	require.EqualValues(t, 1, info.Audios[1].Index)
	require.Equal(t, "Commentary", *info.Audios[1].Title)

	require.Len(t, info.Fonts, 2)
	require.Equal(t,
		"/video/215296011979626531533584083344590270338/attachment/OpenSans-Regular.ttf",
		info.Fonts[0])
}

func TestIdentifySubtitleNormalization(t *testing.T) {
	ident := fixtureIdentifier(t, fixtureOutput, nil)
	info, err := ident.Identify(context.Background(), "test", "/library/show/s01e01.mkv")
	require.NoError(t, err)

	require.Len(t, info.Subtitles, 2)

	srt := info.Subtitles[0]
	require.Equal(t, "subrip", srt.Codec, "utf-8 must be rewritten to subrip")
	require.NotNil(t, srt.Extension)
	require.Equal(t, "srt", *srt.Extension)
	require.NotNil(t, srt.Link)
	require.Equal(t, "/video/215296011979626531533584083344590270338/subtitle/0.srt", *srt.Link)

	pgs := info.Subtitles[1]
	require.Equal(t, "pgs", pgs.Codec)
	require.Nil(t, pgs.Extension, "codecs outside the table cannot be served standalone")
	require.Nil(t, pgs.Link)
	require.True(t, pgs.IsForced)
}

func TestIdentifyChapters(t *testing.T) {
	ident := fixtureIdentifier(t, fixtureOutput, nil)
	info, err := ident.Identify(context.Background(), "test", "/library/show/s01e01.mkv")
	require.NoError(t, err)

	require.Len(t, info.Chapters, 2)
	require.Equal(t, "Opening", info.Chapters[0].Name)
	require.InDelta(t, 0, info.Chapters[0].StartTime, 0.001)
	require.InDelta(t, 90.5, info.Chapters[0].EndTime, 0.001)
	require.Equal(t, "Part 1", info.Chapters[1].Name)
	require.InDelta(t, 90.5, info.Chapters[1].StartTime, 0.001)
	require.InDelta(t, 1360, info.Chapters[1].EndTime, 0.001)
}

func TestIdentifyExtractionIdempotent(t *testing.T) {
	calls := 0
	ident := fixtureIdentifier(t, fixtureOutput, &calls)

	first, err := ident.Identify(context.Background(), "test", "/library/show/s01e01.mkv")
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.DirExists(t, filepath.Join(ident.MetadataPath, first.Sha, "att"))
	require.DirExists(t, filepath.Join(ident.MetadataPath, first.Sha, "sub"))

	second, err := ident.Identify(context.Background(), "test", "/library/show/s01e01.mkv")
	require.NoError(t, err)
	require.Equal(t, 1, calls, "extraction must run at most once per sha")
	require.Equal(t, first, second)
}

func TestIdentifyNoVideoTrack(t *testing.T) {
	const audioOnly = `{"media": {"track": [
		{"@type": "General", "UniqueID": "12345678", "Format": "Matroska", "Duration": "10"},
		{"@type": "Audio", "@typeorder": "1", "Format": "AAC"}
	]}}`
	ident := fixtureIdentifier(t, audioOnly, nil)
	_, err := ident.Identify(context.Background(), "test", "/library/music.mka")
	require.Error(t, err)
	require.Contains(t, err.Error(), "without video")
}

func TestIdentifyInvalidOutput(t *testing.T) {
	ident := fixtureIdentifier(t, `{"media": "nope"}`, nil)
	_, err := ident.Identify(context.Background(), "test", "/library/broken.mkv")
	require.Error(t, err)

	ident = fixtureIdentifier(t, `not json`, nil)
	_, err = ident.Identify(context.Background(), "test", "/library/broken.mkv")
	require.Error(t, err)
}

func TestContentKeyFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movie.mp4")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))

	// Sentinel UniqueIDs (shorter than 5 chars) are ignored.
	key, err := contentKey(path, "0")
	require.NoError(t, err)
	require.NotEqual(t, "0", key)
	require.Regexp(t, "^[0-9a-f]{1,16}$", key)

	again, err := contentKey(path, "")
	require.NoError(t, err)
	require.Equal(t, key, again, "fallback key must be stable for an unchanged file")

	legit, err := contentKey(path, "215296011979626531533584083344590270338")
	require.NoError(t, err)
	require.Equal(t, "215296011979626531533584083344590270338", legit)
}

func TestVideoBitrateFallsBackToOverall(t *testing.T) {
	const noStreamBitrate = `{"media": {"track": [
		{"@type": "General", "UniqueID": "12345678", "Format": "MPEG-4", "Duration": "60", "OverallBitRate": "1500000"},
		{"@type": "Video", "Format": "AVC", "Width": "1280", "Height": "720"}
	]}}`
	ident := fixtureIdentifier(t, noStreamBitrate, nil)
	info, err := ident.Identify(context.Background(), "test", "/library/movie.mp4")
	require.NoError(t, err)
	require.EqualValues(t, 1500000, info.Video.Bitrate)
	require.Equal(t, "720p", info.Video.Quality.String())
	require.Empty(t, info.Audios)
	require.Empty(t, info.Chapters)
}

func TestMediaInfoJSONShape(t *testing.T) {
	ident := fixtureIdentifier(t, fixtureOutput, nil)
	info, err := ident.Identify(context.Background(), "test", "/library/show/s01e01.mkv")
	require.NoError(t, err)

	raw, err := json.Marshal(info)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"sha", "path", "length", "container", "video", "audios", "subtitles", "fonts", "chapters"} {
		require.Contains(t, decoded, key)
	}
}
