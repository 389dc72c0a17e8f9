package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"plategate/internal/domain/plate"
	"plategate/internal/ocr"
	"plategate/internal/repository"
	"plategate/internal/storage"
)

type fakeEngine struct {
	detections []plate.Detection
	err        error
	calls      int
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(context.Context, image.Image) ([]plate.Detection, error) {
	f.calls++
	return f.detections, f.err
}

type fakeMirror struct {
	keys []string
	err  error
}

func (m *fakeMirror) UploadFile(_ context.Context, key, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	m.keys = append(m.keys, key)
	return "https://mirror.example/" + key, m.err
}

type fixture struct {
	dir          string
	repo         *repository.CSVRepository
	engine       *fakeEngine
	mirror       *fakeMirror
	scans        *ScanService
	registration *RegistrationService
	history      *HistoryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	repo, err := repository.NewCSVRepository(filepath.Join(dir, "data"))
	if err != nil {
		t.Fatal(err)
	}
	scanStore, err := storage.NewImageStore(filepath.Join(dir, "scans"), "scans")
	if err != nil {
		t.Fatal(err)
	}
	uploadStore, err := storage.NewImageStore(filepath.Join(dir, "uploads"), "uploads")
	if err != nil {
		t.Fatal(err)
	}

	engine := &fakeEngine{}
	reader, err := ocr.NewReader(engine, ocr.DefaultOptions(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	mirror := &fakeMirror{}

	return &fixture{
		dir:          dir,
		repo:         repo,
		engine:       engine,
		mirror:       mirror,
		scans:        NewScanService(repo, scanStore, reader, mirror, zerolog.Nop()),
		registration: NewRegistrationService(repo, uploadStore, mirror, zerolog.Nop()),
		history:      NewHistoryService(repo),
	}
}

func (f *fixture) register(t *testing.T, plateRaw, owner string) *plate.Registration {
	t.Helper()
	reg, err := f.registration.Register(context.Background(), plate.RegistrationInput{
		Owner:         owner,
		PlateRaw:      plateRaw,
		PhotoFilename: "car.jpg",
		Photo:         strings.NewReader("photo"),
	})
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func (f *fixture) countEvents(t *testing.T) (int, int) {
	t.Helper()
	passes, err := f.repo.ListScanEvents(context.Background(), plate.ResultPass)
	if err != nil {
		t.Fatal(err)
	}
	fails, err := f.repo.ListScanEvents(context.Background(), plate.ResultFail)
	if err != nil {
		t.Fatal(err)
	}
	return len(passes), len(fails)
}

func pngDataURL(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 12, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 12; x++ {
			img.Set(x, y, color.RGBA{R: 250, G: 250, B: 250, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestScanPassesForRegisteredPlate(t *testing.T) {
	f := newFixture(t)
	f.register(t, "กข 1234", "Somchai")
	f.engine.detections = []plate.Detection{{Text: "กข1234", Confidence: 0.9}}

	result, err := f.scans.Scan(context.Background(), plate.ScanRequest{Image: pngDataURL(t)})
	if err != nil {
		t.Fatal(err)
	}
	if result.Result != plate.ResultPass || result.MatchedOwner != "Somchai" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.DetectedRaw != "กข1234" || result.DetectedNorm != "กข1234" {
		t.Fatalf("unexpected detected text %+v", result)
	}
	if !strings.HasPrefix(result.SnapshotURL, "/scans/scan_") || !strings.HasSuffix(result.SnapshotURL, ".jpg") {
		t.Fatalf("unexpected snapshot url %q", result.SnapshotURL)
	}
	if _, err := os.Stat(filepath.Join(f.dir, strings.TrimPrefix(result.SnapshotURL, "/"))); err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}

	passes, fails := f.countEvents(t)
	if passes != 1 || fails != 0 {
		t.Fatalf("passes=%d fails=%d, want 1/0", passes, fails)
	}
	if len(f.mirror.keys) != 2 {
		t.Fatalf("expected upload and snapshot to be mirrored, got %v", f.mirror.keys)
	}
}

func TestScanFailsWithoutRegistration(t *testing.T) {
	f := newFixture(t)
	f.register(t, "AB 123", "Dao")
	f.engine.detections = []plate.Detection{{Text: "ZZ 999", Confidence: 0.8}}

	result, err := f.scans.Scan(context.Background(), plate.ScanRequest{Image: pngDataURL(t)})
	if err != nil {
		t.Fatal(err)
	}
	if result.Result != plate.ResultFail || result.MatchedOwner != "" || result.DetectedNorm != "ZZ999" {
		t.Fatalf("unexpected result %+v", result)
	}

	fails, err := f.history.Events(context.Background(), plate.ResultFail)
	if err != nil {
		t.Fatal(err)
	}
	if len(fails) != 1 || fails[0].SnapshotPath != strings.TrimPrefix(result.SnapshotURL, "/") {
		t.Fatalf("unexpected fails %+v", fails)
	}
}

func TestScanNoDetectionIsFail(t *testing.T) {
	f := newFixture(t)
	f.engine.detections = []plate.Detection{{Text: "AB", Confidence: 0.99}, {Text: "ABC123", Confidence: 0.1}}

	result, err := f.scans.Scan(context.Background(), plate.ScanRequest{Image: pngDataURL(t)})
	if err != nil {
		t.Fatal(err)
	}
	if result.Result != plate.ResultFail || result.DetectedRaw != "" || result.DetectedNorm != "" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestScanMissingImageWritesNothing(t *testing.T) {
	f := newFixture(t)
	for _, img := range []string{"", "   "} {
		_, err := f.scans.Scan(context.Background(), plate.ScanRequest{Image: img})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("Scan(%q) error = %v, want ErrInvalidInput", img, err)
		}
	}
	if passes, fails := f.countEvents(t); passes+fails != 0 {
		t.Fatalf("expected no events, got %d/%d", passes, fails)
	}
	if f.engine.calls != 0 {
		t.Fatal("engine must not run without an image")
	}
}

func TestScanUndecodableImageWritesNothing(t *testing.T) {
	f := newFixture(t)
	for _, img := range []string{"data:image/jpeg;base64,@@@", base64.StdEncoding.EncodeToString([]byte("not an image"))} {
		_, err := f.scans.Scan(context.Background(), plate.ScanRequest{Image: img})
		if !errors.Is(err, ErrImageProcessing) {
			t.Fatalf("Scan(%q) error = %v, want ErrImageProcessing", img, err)
		}
	}
	if passes, fails := f.countEvents(t); passes+fails != 0 {
		t.Fatalf("expected no events, got %d/%d", passes, fails)
	}
}

func TestScanEngineErrorWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.engine.err = errors.New("model not loaded")

	_, err := f.scans.Scan(context.Background(), plate.ScanRequest{Image: pngDataURL(t)})
	if err == nil || errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unexpected error %v", err)
	}
	if passes, fails := f.countEvents(t); passes+fails != 0 {
		t.Fatalf("expected no events, got %d/%d", passes, fails)
	}
}

func TestScanMirrorFailureIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.mirror.err = errors.New("bucket gone")
	f.engine.detections = []plate.Detection{{Text: "AB123", Confidence: 0.9}}

	if _, err := f.scans.Scan(context.Background(), plate.ScanRequest{Image: pngDataURL(t)}); err != nil {
		t.Fatal(err)
	}
}

func TestDecodeDataURLBareBase64WithoutPadding(t *testing.T) {
	dataURL := pngDataURL(t)
	_, b64, _ := strings.Cut(dataURL, ",")
	if _, err := decodeDataURL(strings.TrimRight(b64, "=")); err != nil {
		t.Fatal(err)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		in   plate.RegistrationInput
	}{
		{"missing owner", plate.RegistrationInput{PlateRaw: "AB123", Photo: strings.NewReader("x")}},
		{"missing plate", plate.RegistrationInput{Owner: "Dao", Photo: strings.NewReader("x")}},
		{"missing photo", plate.RegistrationInput{Owner: "Dao", PlateRaw: "AB123"}},
		{"blank owner", plate.RegistrationInput{Owner: "  ", PlateRaw: "AB123", Photo: strings.NewReader("x")}},
		{"unreadable plate", plate.RegistrationInput{Owner: "Dao", PlateRaw: "--", Photo: strings.NewReader("x")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.registration.Register(context.Background(), tt.in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("error = %v, want ErrInvalidInput", err)
			}
		})
	}

	regs, err := f.repo.ListRegistrations(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(regs) != 0 {
		t.Fatalf("expected no registrations, got %d", len(regs))
	}
}

func TestRegisterStoresPhotoAndRow(t *testing.T) {
	f := newFixture(t)
	f.registration.now = func() time.Time { return time.Date(2026, 5, 6, 7, 8, 9, 0, time.Local) }

	reg := f.register(t, " กข-1234 ", "Somchai")
	if !reg.Timestamp.Equal(time.Date(2026, 5, 6, 7, 8, 9, 0, time.Local)) {
		t.Fatalf("unexpected timestamp %v", reg.Timestamp)
	}
	if reg.PlateNorm != "กข1234" || reg.PlateRaw != "กข-1234" {
		t.Fatalf("unexpected registration %+v", reg)
	}
	if !strings.HasPrefix(reg.ImagePath, "uploads/") || !strings.HasSuffix(reg.ImagePath, "_car.jpg") {
		t.Fatalf("unexpected image path %q", reg.ImagePath)
	}
	got, err := os.ReadFile(filepath.Join(f.dir, reg.ImagePath))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "photo" {
		t.Fatalf("unexpected photo content %q", got)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	f := newFixture(t)
	f.register(t, "AB1", "first")
	f.register(t, "AB2", "second")

	h, err := f.history.History(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Registrations) != 2 || h.Registrations[0].Owner != "second" {
		t.Fatalf("unexpected registrations %+v", h.Registrations)
	}
	if len(h.Passes) != 0 || len(h.Fails) != 0 {
		t.Fatalf("unexpected events %+v %+v", h.Passes, h.Fails)
	}

	if _, err := f.history.Events(context.Background(), plate.Result("MAYBE")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unexpected error %v", err)
	}
}
