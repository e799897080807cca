package media

import (
	"context"
	"fmt"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

type subtitleOutput struct {
	Index uint32
	Path  string
}

// extractEmbedded dumps every attachment of path into attDir (the tool
// writes attachments to its working directory) and stream-copies each
// extractable subtitle to its destination file in a single invocation.
func extractEmbedded(ctx context.Context, path, attDir string, subs []subtitleOutput) error {
	input := ffmpeg.Input(path, ffmpeg.KwArgs{"dump_attachment:t": ""})

	outputs := make([]*ffmpeg.Stream, 0, len(subs))
	for _, sub := range subs {
		outputs = append(outputs, input.Get(fmt.Sprintf("s:%d", sub.Index)).
			Output(sub.Path, ffmpeg.KwArgs{"c:s": "copy"}))
	}

	var stream *ffmpeg.Stream
	switch len(outputs) {
	case 0:
		// The tool requires an output even when only the attachment dump is
		// wanted.
		stream = input.Output("-", ffmpeg.KwArgs{"f": "null"})
	case 1:
		stream = outputs[0]
	default:
		stream = ffmpeg.MergeOutputs(outputs...)
	}

	cmd := stream.OverWriteOutput().Compile()
	cmd.Dir = attDir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("extraction of %s failed: %w: %s", path, err, out)
	}
	return nil
}
