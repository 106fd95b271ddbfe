// Package extractor talks to the face-embedding server. The model
// itself is a black box behind an HTTP endpoint that takes an image
// and returns zero or more fixed-length embeddings, one per detected
// face.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"faceclock/internal/embedding"
)

const (
	defaultBaseURL = "http://localhost:8000"
	defaultTimeout = 5 * time.Second
)

// ErrNoFace is returned when the extractor finds no usable face in an
// image. It is an expected outcome of legitimate requests and is
// surfaced to callers as a rejection, not a server failure.
var ErrNoFace = errors.New("no face detected")

// Face is a single detected face with its embedding.
type Face struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// faceResponse is the embedding server's response shape.
type faceResponse struct {
	FacesCount int    `json:"faces_count"`
	Faces      []Face `json:"faces"`
	Model      string `json:"model"`
}

// Client calls the face-embedding server.
type Client struct {
	baseURL string
	dim     int
	client  *http.Client
}

// New creates an extractor client. An empty baseURL falls back to the
// local default; a zero timeout falls back to 5s. A non-zero dim
// rejects responses whose embeddings have any other dimensionality,
// which catches a misconfigured or swapped extractor model before its
// vectors reach the matcher.
func New(baseURL string, timeout time.Duration, dim int) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		dim:     dim,
		client:  &http.Client{Timeout: timeout},
	}
}

// postMultipartImage posts the image as a multipart form with an
// explicit Content-Type based on magic byte detection.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// ExtractFaces detects faces in the image and returns their
// embeddings. An empty slice means no face was found; callers that
// require a face should use ExtractPrimary.
func (c *Client) ExtractFaces(ctx context.Context, imageData []byte) ([]Face, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if c.dim > 0 {
		for _, f := range faceResp.Faces {
			if len(f.Embedding) != c.dim {
				return nil, fmt.Errorf("face %d: got %d-dimensional embedding, expected %d: %w",
					f.FaceIndex, len(f.Embedding), c.dim, embedding.ErrDimensionMismatch)
			}
		}
	}
	return faceResp.Faces, nil
}

// ExtractPrimary returns the first detected face's embedding, or
// ErrNoFace when the image contains none.
func (c *Client) ExtractPrimary(ctx context.Context, imageData []byte) ([]float32, error) {
	faces, err := c.ExtractFaces(ctx, imageData)
	if err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		return nil, ErrNoFace
	}
	if len(faces[0].Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}
	return faces[0].Embedding, nil
}

// detectMIMEType detects the MIME type from image magic bytes.
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// GIF: 47 49 46 38
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38 {
		return "image/gif"
	}
	// WebP: RIFF....WEBP
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}
