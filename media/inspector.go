package media

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/xeipuuv/gojsonschema"
)

// The inspector emits one JSON document with every track of the file tagged
// by @type. Only the shape is validated here, fields are checked where they
// are used.
const inspectorSchema = `{
	"$schema": "http://json-schema.org/draft-04/schema#",
	"type": "object",
	"required": ["media"],
	"properties": {
		"media": {
			"type": "object",
			"required": ["track"],
			"properties": {
				"track": {
					"type": "array",
					"items": {
						"type": "object",
						"required": ["@type"],
						"properties": {
							"@type": { "type": "string" }
						}
					}
				}
			}
		}
	}
}`

type inspectorOutput struct {
	Media struct {
		Track []inspectorTrack `json:"track"`
	} `json:"media"`
}

// inspectorTrack is the raw union of every field we read off a track. All
// values are strings in the inspector's JSON output.
type inspectorTrack struct {
	Type           string            `json:"@type"`
	TypeOrder      string            `json:"@typeorder"`
	Format         string            `json:"Format"`
	Duration       string            `json:"Duration"`
	UniqueID       string            `json:"UniqueID"`
	OverallBitRate string            `json:"OverallBitRate"`
	BitRate        string            `json:"BitRate"`
	Width          string            `json:"Width"`
	Height         string            `json:"Height"`
	Title          string            `json:"Title"`
	Language       string            `json:"Language"`
	Default        string            `json:"Default"`
	Forced         string            `json:"Forced"`
	Extra          map[string]string `json:"extra"`
}

func runInspector(ctx context.Context, path string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "mediainfo", "--Output=JSON", "--Language=raw", path).Output()
	if err != nil {
		return nil, fmt.Errorf("mediainfo failed for %s: %w", path, err)
	}
	return out, nil
}

func validateInspectorOutput(raw []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(inspectorSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("inspector output is not valid JSON: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("inspector output has an unexpected shape: %v", result.Errors())
	}
	return nil
}

// typeIndex is the per-type ordinal of the track, zero based. Tracks
// without an ordinal default to the first slot.
func (t *inspectorTrack) typeIndex() uint32 {
	var order uint32
	if _, err := fmt.Sscanf(t.TypeOrder, "%d", &order); err != nil || order == 0 {
		return 0
	}
	return order - 1
}
