package storage

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const snapshotQuality = 92

var ErrInvalidImagePath = errors.New("invalid image path")

// ImageStore keeps image files in a single directory that is also served
// over HTTP under the same route name, e.g. "scans/scan_20260101_101500_000123.jpg".
type ImageStore struct {
	dir   string
	route string
	now   func() time.Time
}

func NewImageStore(dir, route string) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir %s: %w", dir, err)
	}
	return &ImageStore{
		dir:   dir,
		route: strings.Trim(route, "/"),
		now:   time.Now,
	}, nil
}

func (s *ImageStore) Dir() string {
	return s.dir
}

func (s *ImageStore) Route() string {
	return s.route
}

// SaveJPEG encodes img as a JPEG named <prefix>_<YYYYMMDD_HHMMSS_micro>.jpg
// and returns its relative path.
func (s *ImageStore) SaveJPEG(img image.Image, prefix string) (string, error) {
	ts := s.now()
	name := fmt.Sprintf("%s_%s_%06d.jpg", prefix, ts.Format("20060102_150405"), ts.Nanosecond()/int(time.Microsecond))

	file, name, err := s.create(name)
	if err != nil {
		return "", err
	}
	if err := jpeg.Encode(file, img, &jpeg.Options{Quality: snapshotQuality}); err != nil {
		_ = file.Close()
		_ = os.Remove(filepath.Join(s.dir, name))
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return s.rel(name), nil
}

// SaveUpload stores an uploaded file as <YYYYMMDD_HHMMSS>_<sanitized name>.
func (s *ImageStore) SaveUpload(filename string, r io.Reader) (string, error) {
	safe := SecureFilename(filename)
	if safe == "" {
		safe = "plate.jpg"
	}
	name := s.now().Format("20060102_150405") + "_" + safe

	file, name, err := s.create(name)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		_ = os.Remove(filepath.Join(s.dir, name))
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return s.rel(name), nil
}

// Load decodes the image stored under the relative path rel.
func (s *ImageStore) Load(rel string) (image.Image, error) {
	abs, err := s.Abs(rel)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", rel, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", rel, err)
	}
	return img, nil
}

// Abs resolves a relative path returned by SaveJPEG or SaveUpload.
func (s *ImageStore) Abs(rel string) (string, error) {
	name, ok := strings.CutPrefix(path.Clean(rel), s.route+"/")
	if !ok || name == "" || strings.Contains(name, "/") || name == ".." {
		return "", fmt.Errorf("%w: %s", ErrInvalidImagePath, rel)
	}
	return filepath.Join(s.dir, name), nil
}

func (s *ImageStore) rel(name string) string {
	return s.route + "/" + name
}

// create opens a new file, adding a numeric suffix when the name is taken.
func (s *ImageStore) create(name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 1; ; i++ {
		file, err := os.OpenFile(filepath.Join(s.dir, candidate), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return file, candidate, nil
		}
		if !errors.Is(err, os.ErrExist) || i > 100 {
			return nil, "", fmt.Errorf("create %s: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
	}
}

// SecureFilename reduces a client supplied file name to ASCII letters,
// digits, '_', '.' and '-' with no directory components.
func SecureFilename(filename string) string {
	decomposed := norm.NFKD.String(filename)
	var b strings.Builder
	for _, r := range decomposed {
		if r > unicode.MaxASCII {
			continue
		}
		if r == '/' || r == '\\' {
			r = ' '
		}
		b.WriteRune(r)
	}

	joined := strings.Join(strings.Fields(b.String()), "_")
	var out strings.Builder
	for _, r := range joined {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			out.WriteRune(r)
		}
	}
	return strings.Trim(out.String(), "._")
}
