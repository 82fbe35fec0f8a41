package fallback

import (
	"context"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPDetector_Found(t *testing.T) {
	var gotType, gotAuth string
	var gotBody int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		gotBody = len(b)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"found":true,"status":"ok","corners":[{"x":0.1,"y":0.2},{"x":0.9,"y":0.2},{"x":0.9,"y":0.8},{"x":0.1,"y":0.8}]}`)
	}))
	defer srv.Close()

	d := NewHTTPDetector(srv.URL, "secret")
	resp, err := d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 64, 48)))
	require.NoError(t, err)

	assert.Equal(t, "image/jpeg", gotType)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Greater(t, gotBody, 0)
	assert.True(t, resp.Found)
	assert.Equal(t, "ok", resp.Status)
	assert.InDelta(t, 0.9, resp.Corners[2].X, 1e-9)
	assert.InDelta(t, 0.8, resp.Corners[2].Y, 1e-9)
}

func TestHTTPDetector_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		found  bool
		err    bool
	}{
		{"not found", http.StatusOK, `{"found":false,"status":"empty"}`, false, false},
		{"server error", http.StatusInternalServerError, `boom`, false, true},
		{"bad json", http.StatusOK, `{`, false, true},
		{"three corners", http.StatusOK, `{"found":true,"corners":[{"x":0,"y":0},{"x":1,"y":0},{"x":1,"y":1}]}`, false, true},
		{"out of range", http.StatusOK, `{"found":true,"corners":[{"x":0,"y":0},{"x":2,"y":0},{"x":1,"y":1},{"x":0,"y":1}]}`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			resp, err := NewHTTPDetector(srv.URL, "").Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)))
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.found, resp.Found)
		})
	}
}

func TestHTTPDetector_HonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewHTTPDetector(srv.URL, "").Detect(ctx, image.NewRGBA(image.Rect(0, 0, 8, 8)))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
