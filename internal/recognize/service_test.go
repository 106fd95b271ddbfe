package recognize

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"

	"faceclock/internal/attendance"
	"faceclock/internal/extractor"
	"faceclock/internal/match"
	"faceclock/internal/store"
	"faceclock/internal/store/memory"
)

// fakeExtractor returns queued face lists, one per call, repeating the
// last entry once the queue is exhausted.
type fakeExtractor struct {
	queue [][]extractor.Face
	calls int
	err   error
}

func (f *fakeExtractor) ExtractFaces(ctx context.Context, imageData []byte) ([]extractor.Face, error) {
	if f.err != nil {
		return nil, f.err
	}
	i := f.calls
	if i >= len(f.queue) {
		i = len(f.queue) - 1
	}
	f.calls++
	if i < 0 {
		return nil, nil
	}
	return f.queue[i], nil
}

func faceWith(emb []float32) []extractor.Face {
	return []extractor.Face{{FaceIndex: 0, Dim: len(emb), Embedding: emb, DetScore: 0.99}}
}

func testImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for x := range 32 {
		for y := range 32 {
			img.Set(x, y, color.RGBA{128, 128, 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func newTestService(t *testing.T, ext Extractor) (*Service, *memory.Store) {
	t.Helper()
	backend := memory.New()
	cache := match.NewCache(backend.Enrollments())
	matcher := &CacheMatcher{Cache: cache, Threshold: 0.5}
	att := attendance.NewService(backend.Attendance(), nil)
	att.SetClock(func() time.Time {
		return time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	})
	return NewService(ext, matcher, att, backend.Enrollments(), 0), backend
}

// Full scenario: enroll from three clustered samples, then drive the
// day through login, duplicate login and logout with a nearby probe.
func TestRegisterThenRecognize(t *testing.T) {
	ext := &fakeExtractor{queue: [][]extractor.Face{
		faceWith([]float32{0.10, 0.20, 0.30}),
		faceWith([]float32{0.12, 0.18, 0.30}),
		faceWith([]float32{0.11, 0.22, 0.33}),
		faceWith([]float32{0.11, 0.20, 0.31}), // probe from the same cluster
	}}
	svc, backend := newTestService(t, ext)
	ctx := context.Background()
	img := testImage(t)

	enrolled, err := svc.Register(ctx, "E1", "Alice", [][]byte{img, img, img})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if len(enrolled.Embedding) != 3 {
		t.Fatalf("enrollment embedding has %d components; want 3", len(enrolled.Embedding))
	}

	rec, err := svc.Recognize(ctx, img, attendance.ModeLogin)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if !rec.Matched || rec.IdentityID != "E1" || rec.DisplayName != "Alice" {
		t.Fatalf("recognition = %+v; want match on E1/Alice", rec)
	}
	if rec.Attendance == nil || !rec.Attendance.Accepted {
		t.Fatalf("login not accepted: %+v", rec.Attendance)
	}

	stored, err := backend.Attendance().GetRecord(ctx, "E1", "2026-08-28")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if stored == nil || stored.LoginTime == nil {
		t.Fatalf("expected an open login record, got %+v", stored)
	}

	again, err := svc.Recognize(ctx, img, attendance.ModeLogin)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if again.Attendance.Accepted || again.Attendance.Reason != attendance.ReasonAlreadyMarked {
		t.Errorf("duplicate login = %+v; want already marked", again.Attendance)
	}

	out, err := svc.Recognize(ctx, img, attendance.ModeLogout)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if !out.Attendance.Accepted {
		t.Errorf("logout = %+v; want accepted", out.Attendance)
	}
}

func TestRecognizeUnknownFace(t *testing.T) {
	ext := &fakeExtractor{queue: [][]extractor.Face{
		faceWith([]float32{0.1, 0.2, 0.3}),
		faceWith([]float32{0.1, 0.2, 0.3}),
		faceWith([]float32{0.1, 0.2, 0.3}),
		faceWith([]float32{5, 5, 5}), // far outside the cluster
	}}
	svc, _ := newTestService(t, ext)
	ctx := context.Background()
	img := testImage(t)

	if _, err := svc.Register(ctx, "E1", "Alice", [][]byte{img, img, img}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	rec, err := svc.Recognize(ctx, img, attendance.ModeLogin)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if rec.Matched {
		t.Errorf("distant probe matched: %+v", rec)
	}
	if rec.Attendance != nil {
		t.Error("unmatched probe must not touch the ledger")
	}
}

func TestRecognizeNoEnrollments(t *testing.T) {
	ext := &fakeExtractor{queue: [][]extractor.Face{faceWith([]float32{1, 2, 3})}}
	svc, _ := newTestService(t, ext)

	rec, err := svc.Recognize(context.Background(), testImage(t), attendance.ModeLogin)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if rec.Matched {
		t.Error("expected no match with an empty enrollment set")
	}
}

func TestRecognizeNoFace(t *testing.T) {
	ext := &fakeExtractor{} // empty queue: zero faces
	svc, _ := newTestService(t, ext)

	_, err := svc.Recognize(context.Background(), testImage(t), attendance.ModeLogin)
	if !errors.Is(err, extractor.ErrNoFace) {
		t.Errorf("expected ErrNoFace, got %v", err)
	}
}

func TestRecognizeInvalidImage(t *testing.T) {
	ext := &fakeExtractor{queue: [][]extractor.Face{faceWith([]float32{1})}}
	svc, _ := newTestService(t, ext)

	_, err := svc.Recognize(context.Background(), []byte("not an image"), attendance.ModeLogin)
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage, got %v", err)
	}
}

func TestRegisterWrongSampleCount(t *testing.T) {
	ext := &fakeExtractor{queue: [][]extractor.Face{faceWith([]float32{1})}}
	svc, _ := newTestService(t, ext)
	img := testImage(t)

	_, err := svc.Register(context.Background(), "E1", "Alice", [][]byte{img, img})
	if !errors.Is(err, ErrSampleCount) {
		t.Errorf("expected ErrSampleCount, got %v", err)
	}
}

func TestRegisterNoFaceInSample(t *testing.T) {
	ext := &fakeExtractor{queue: [][]extractor.Face{
		faceWith([]float32{1, 2}),
		nil, // second sample has no face
		faceWith([]float32{1, 2}),
	}}
	svc, _ := newTestService(t, ext)
	img := testImage(t)

	_, err := svc.Register(context.Background(), "E1", "Alice", [][]byte{img, img, img})
	var noFace *NoFaceInSampleError
	if !errors.As(err, &noFace) {
		t.Fatalf("expected NoFaceInSampleError, got %v", err)
	}
	if noFace.Sample != 2 {
		t.Errorf("failing sample = %d; want 2", noFace.Sample)
	}
}

func TestRegisterAveragesSamples(t *testing.T) {
	ext := &fakeExtractor{queue: [][]extractor.Face{
		faceWith([]float32{0, 0}),
		faceWith([]float32{3, 3}),
		faceWith([]float32{3, 0}),
	}}
	svc, backend := newTestService(t, ext)
	img := testImage(t)

	if _, err := svc.Register(context.Background(), "E1", "Alice", [][]byte{img, img, img}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	stored, err := backend.Enrollments().Get(context.Background(), "E1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored == nil {
		t.Fatal("enrollment not stored")
	}
	want := []float32{2, 1}
	for i := range want {
		if stored.Embedding[i] != want[i] {
			t.Errorf("embedding[%d] = %v; want %v", i, stored.Embedding[i], want[i])
		}
	}
}

func TestStoreMatcher(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()
	if err := backend.Enrollments().Upsert(ctx, store.Enrollment{
		IdentityID: "E1", DisplayName: "Alice", Embedding: []float32{1, 1},
	}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	m := &StoreMatcher{Searcher: nearestOverMemory{backend}, Threshold: 0.5}

	res, err := m.Match(ctx, []float32{1.1, 1})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if !res.Accepted || res.IdentityID != "E1" {
		t.Errorf("store matcher = %+v; want E1 accepted", res)
	}

	res, err = m.Match(ctx, []float32{9, 9})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if res.Accepted {
		t.Errorf("distant probe accepted: %+v", res)
	}
}

// nearestOverMemory adapts the memory backend to NearestSearcher for
// the StoreMatcher test.
type nearestOverMemory struct{ backend *memory.Store }

func (n nearestOverMemory) FindNearest(ctx context.Context, probe []float32) (*store.Enrollment, float64, error) {
	all, err := n.backend.Enrollments().GetAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	res, err := match.Match(probe, all, 1e18)
	if err != nil || !res.Accepted {
		return nil, res.Distance, err
	}
	e, err := n.backend.Enrollments().Get(ctx, res.IdentityID)
	return e, res.Distance, err
}
