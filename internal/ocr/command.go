package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"strings"

	"plategate/internal/domain/plate"
)

// CommandEngine runs an external recognizer once per image. The program is
// invoked as `<command> <args...> <image.png>` and must print a JSON array
// on stdout. Both of these element shapes are accepted:
//
//	{"box": [[x, y], ...], "text": "กข 1234", "confidence": 0.93}
//	[[[x, y], ...], "กข 1234", 0.93]
//
// The second form is what EasyOCR's readtext returns when dumped as JSON.
type CommandEngine struct {
	command string
	args    []string
	tempDir string
}

func NewCommandEngine(command string, args []string) (*CommandEngine, error) {
	if strings.TrimSpace(command) == "" {
		return nil, errors.New("ocr command is required")
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return nil, fmt.Errorf("ocr command %q: %w", command, err)
	}
	return &CommandEngine{
		command: path,
		args:    append([]string(nil), args...),
	}, nil
}

func (e *CommandEngine) Name() string {
	return "command"
}

func (e *CommandEngine) Recognize(ctx context.Context, img image.Image) ([]plate.Detection, error) {
	tmp, err := os.CreateTemp(e.tempDir, "plategate-ocr-*.png")
	if err != nil {
		return nil, fmt.Errorf("create temp image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("encode temp image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp image: %w", err)
	}

	args := append(append([]string(nil), e.args...), tmp.Name())
	cmd := exec.CommandContext(ctx, e.command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 500 {
			msg = msg[:500]
		}
		return nil, fmt.Errorf("run %s: %w: %s", e.command, err, msg)
	}

	return parseCommandOutput(stdout.Bytes())
}

type commandDetection struct {
	Box        [][]float64 `json:"box"`
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
}

func parseCommandOutput(out []byte) ([]plate.Detection, error) {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(out, &items); err != nil {
		return nil, fmt.Errorf("parse ocr output: %w", err)
	}

	detections := make([]plate.Detection, 0, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		var d commandDetection
		switch {
		case len(item) > 0 && item[0] == '{':
			if err := json.Unmarshal(item, &d); err != nil {
				return nil, fmt.Errorf("parse ocr detection %d: %w", i, err)
			}
		case len(item) > 0 && item[0] == '[':
			var tuple []json.RawMessage
			if err := json.Unmarshal(item, &tuple); err != nil || len(tuple) != 3 {
				return nil, fmt.Errorf("parse ocr detection %d: expected [box, text, confidence]", i)
			}
			if err := json.Unmarshal(tuple[0], &d.Box); err != nil {
				return nil, fmt.Errorf("parse ocr detection %d box: %w", i, err)
			}
			if err := json.Unmarshal(tuple[1], &d.Text); err != nil {
				return nil, fmt.Errorf("parse ocr detection %d text: %w", i, err)
			}
			if err := json.Unmarshal(tuple[2], &d.Confidence); err != nil {
				return nil, fmt.Errorf("parse ocr detection %d confidence: %w", i, err)
			}
		default:
			return nil, fmt.Errorf("parse ocr detection %d: unexpected %s", i, string(item))
		}

		detection := plate.Detection{Text: d.Text, Confidence: d.Confidence}
		for _, p := range d.Box {
			if len(p) >= 2 {
				detection.Region = append(detection.Region, plate.Point{X: p[0], Y: p[1]})
			}
		}
		detections = append(detections, detection)
	}
	return detections, nil
}
