package plate

import (
	"io"
	"time"
)

// TimestampLayout is the local-time, second precision format used in the logs.
const TimestampLayout = "2006-01-02T15:04:05"

type Result string

const (
	ResultPass Result = "PASS"
	ResultFail Result = "FAIL"
)

func (r Result) Valid() bool {
	return r == ResultPass || r == ResultFail
}

type Registration struct {
	Timestamp time.Time `json:"timestamp"`
	PlateNorm string    `json:"plate_norm"`
	PlateRaw  string    `json:"plate_raw"`
	Owner     string    `json:"owner"`
	ImagePath string    `json:"image_path"`
}

type ScanEvent struct {
	Timestamp         time.Time   `json:"timestamp"`
	PlateDetectedNorm string      `json:"plate_detected_norm"`
	PlateDetectedRaw  string      `json:"plate_detected_raw"`
	Result            Result      `json:"result"`
	MatchedOwner      string      `json:"matched_owner"`
	SnapshotPath      string      `json:"snapshot_path"`
	Detections        []Detection `json:"-"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Detection is one text region reported by an OCR engine.
type Detection struct {
	Region     []Point `json:"region,omitempty"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// RegistrationInput is what the registration form carries after binding.
type RegistrationInput struct {
	Owner         string
	PlateRaw      string
	PhotoFilename string
	Photo         io.Reader
}

type ScanRequest struct {
	Image string `json:"image"`
}

type ScanResult struct {
	Result       Result `json:"result"`
	DetectedRaw  string `json:"detected_raw"`
	DetectedNorm string `json:"detected_norm"`
	MatchedOwner string `json:"matched_owner"`
	SnapshotURL  string `json:"snapshot_url"`
}

// FormatTimestamp renders t the way every log row stores it. The zero time,
// which ParseTimestamp returns for unreadable values, renders empty.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimestampLayout)
}

// ParseTimestamp accepts the log layout and RFC 3339 for rows written by
// other tools. Unparseable values yield the zero time.
func ParseTimestamp(value string) time.Time {
	for _, layout := range []string{TimestampLayout, time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return ts
		}
	}
	return time.Time{}
}
