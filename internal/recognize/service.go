// Package recognize orchestrates the recognition and registration
// flows: image -> embedding -> nearest enrollment -> attendance mark,
// and sample images -> averaged embedding -> enrollment upsert.
package recognize

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"faceclock/internal/attendance"
	"faceclock/internal/embedding"
	"faceclock/internal/extractor"
	"faceclock/internal/match"
	"faceclock/internal/store"
)

// RequiredSamples is the number of images a registration must provide
// (front, left, right).
const RequiredSamples = 3

var (
	// ErrInvalidImage marks uploads that cannot be decoded as images.
	ErrInvalidImage = errors.New("invalid image")
	// ErrSampleCount is returned when a registration does not provide
	// exactly RequiredSamples images.
	ErrSampleCount = fmt.Errorf("exactly %d sample images are required", RequiredSamples)
)

// NoFaceInSampleError reports which registration sample had no
// detectable face, 1-based to match what the user sees.
type NoFaceInSampleError struct {
	Sample int
}

func (e *NoFaceInSampleError) Error() string {
	return fmt.Sprintf("no face detected in image %d", e.Sample)
}

// Extractor is the slice of the embedding client the service needs.
type Extractor interface {
	ExtractFaces(ctx context.Context, imageData []byte) ([]extractor.Face, error)
}

// Recognition is the outcome of one recognition request.
type Recognition struct {
	Matched     bool
	IdentityID  string
	DisplayName string
	Distance    float64
	Attendance  *attendance.Result
}

// Service wires the extractor, matcher, attendance service and
// enrollment store together.
type Service struct {
	extractor    Extractor
	matcher      Matcher
	attendance   *attendance.Service
	enrollments  store.EnrollmentStore
	maxImageSize int

	// Serializes re-registration of the same identity so two uploads
	// cannot interleave their upsert and matcher refresh.
	regMu    sync.Mutex
	regLocks map[string]*sync.Mutex
}

// NewService creates the recognition service. maxImageSize <= 0 falls
// back to the extractor default.
func NewService(ext Extractor, matcher Matcher, att *attendance.Service, enrollments store.EnrollmentStore, maxImageSize int) *Service {
	if maxImageSize <= 0 {
		maxImageSize = extractor.DefaultMaxImageSize
	}
	return &Service{
		extractor:    ext,
		matcher:      matcher,
		attendance:   att,
		enrollments:  enrollments,
		maxImageSize: maxImageSize,
		regLocks:     make(map[string]*sync.Mutex),
	}
}

// probe extracts the primary face embedding from one image.
func (s *Service) probe(ctx context.Context, imageData []byte) ([]float32, error) {
	data, err := extractor.Downscale(imageData, s.maxImageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	faces, err := s.extractor.ExtractFaces(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("extract embedding: %w", err)
	}
	if len(faces) == 0 {
		return nil, extractor.ErrNoFace
	}
	return faces[0].Embedding, nil
}

// Recognize identifies the person in the image and, on a match, marks
// attendance for them. A probe that matches nothing is a normal
// outcome (Matched=false); only infrastructure failures error.
func (s *Service) Recognize(ctx context.Context, imageData []byte, mode attendance.Mode) (Recognition, error) {
	probe, err := s.probe(ctx, imageData)
	if err != nil {
		return Recognition{}, err
	}

	res, err := s.matcher.Match(ctx, probe)
	if err != nil {
		return Recognition{}, fmt.Errorf("match probe: %w", err)
	}
	if !res.Accepted {
		return Recognition{Distance: res.Distance}, nil
	}

	att, err := s.attendance.Mark(ctx, res.IdentityID, mode)
	if err != nil {
		return Recognition{}, err
	}

	return Recognition{
		Matched:     true,
		IdentityID:  res.IdentityID,
		DisplayName: res.DisplayName,
		Distance:    res.Distance,
		Attendance:  &att,
	}, nil
}

// Register enrolls an identity from exactly RequiredSamples images.
// The per-image embeddings are averaged into one reference embedding;
// the upsert replaces any previous enrollment wholesale.
func (s *Service) Register(ctx context.Context, identityID, displayName string, images [][]byte) (store.Enrollment, error) {
	if len(images) != RequiredSamples {
		return store.Enrollment{}, ErrSampleCount
	}

	samples := make([][]float32, 0, len(images))
	for i, img := range images {
		emb, err := s.probe(ctx, img)
		if err != nil {
			if errors.Is(err, extractor.ErrNoFace) {
				return store.Enrollment{}, &NoFaceInSampleError{Sample: i + 1}
			}
			return store.Enrollment{}, fmt.Errorf("image %d: %w", i+1, err)
		}
		samples = append(samples, emb)
	}

	mean, err := embedding.Mean(samples)
	if err != nil {
		return store.Enrollment{}, fmt.Errorf("average samples: %w", err)
	}

	e := store.Enrollment{
		IdentityID:  identityID,
		DisplayName: displayName,
		Embedding:   mean,
		CreatedAt:   time.Now(),
	}

	unlock := s.lockIdentity(identityID)
	defer unlock()

	if err := s.enrollments.Upsert(ctx, e); err != nil {
		return store.Enrollment{}, fmt.Errorf("upsert enrollment: %w", err)
	}
	s.matcher.Refresh(e)
	return e, nil
}

// Identify runs matching only, without touching the ledger.
func (s *Service) Identify(ctx context.Context, imageData []byte) (match.Result, error) {
	probe, err := s.probe(ctx, imageData)
	if err != nil {
		return match.Result{}, err
	}
	return s.matcher.Match(ctx, probe)
}

func (s *Service) lockIdentity(identityID string) func() {
	s.regMu.Lock()
	mu, ok := s.regLocks[identityID]
	if !ok {
		mu = &sync.Mutex{}
		s.regLocks[identityID] = mu
	}
	s.regMu.Unlock()

	mu.Lock()
	return mu.Unlock
}
