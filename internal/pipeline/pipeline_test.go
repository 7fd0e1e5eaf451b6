package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dab-tg-bot/internal/dab"
)

type fakeResolver struct {
	url string
	err error
}

func (f fakeResolver) StreamURL(context.Context, string) (string, error) { return f.url, f.err }

type fakePublisher struct {
	link string
	err  error
}

func (f fakePublisher) Upload(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("publisher got missing file: %w", err)
	}
	return f.link, f.err
}

// recorder captures every surface update, in order.
type recorder struct {
	stages []Stage
	done   bool
	link   string
	size   int64
	failed bool
	err    error
}

func (r *recorder) Stage(_ context.Context, s Stage) { r.stages = append(r.stages, s) }
func (r *recorder) Done(_ context.Context, link string, size int64) {
	r.done, r.link, r.size = true, link, size
}
func (r *recorder) Fail(_ context.Context, err error) { r.failed, r.err = true, err }

func audioServer(t *testing.T, contentType string, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// assertNoTempFiles enforces the cleanup invariant: nothing matching the
// job's temp prefix survives the run.
func assertNoTempFiles(t *testing.T, tempDir, trackID string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(tempDir, "dab_"+trackID+"_*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestRunSuccess(t *testing.T) {
	audio := audioServer(t, "audio/mpeg", []byte("fake mpeg frames"))
	cover := audioServer(t, "image/jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0})

	tempDir := t.TempDir()
	p := New(fakeResolver{url: audio.URL}, fakePublisher{link: "https://gofile.io/d/ok"}, tempDir, nil)

	track := dab.Track{ID: "42", Title: "Imagine", Artist: "John Lennon", AlbumTitle: "Imagine", AlbumCover: cover.URL}
	rep := &recorder{}

	res, err := p.Run(context.Background(), track, rep)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Link == "" {
		t.Error("empty published link")
	}
	if !rep.done || rep.failed {
		t.Errorf("reporter state done=%v failed=%v", rep.done, rep.failed)
	}
	if rep.size == 0 {
		t.Error("size not reported")
	}

	want := []Stage{StageResolving, StageFetching, StageTagging, StagePublishing}
	if len(rep.stages) != len(want) {
		t.Fatalf("stages = %v, want %v", rep.stages, want)
	}
	for i := range want {
		if rep.stages[i] != want[i] {
			t.Errorf("stage %d = %v, want %v", i, rep.stages[i], want[i])
		}
	}

	assertNoTempFiles(t, tempDir, "42")
}

func TestRunNoStreamURL(t *testing.T) {
	tempDir := t.TempDir()
	p := New(fakeResolver{err: dab.ErrNoStreamURL}, fakePublisher{}, tempDir, nil)

	rep := &recorder{}
	_, err := p.Run(context.Background(), dab.Track{ID: "42"}, rep)
	if !errors.Is(err, dab.ErrNoStreamURL) {
		t.Fatalf("expected ErrNoStreamURL, got %v", err)
	}

	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageResolving {
		t.Errorf("expected resolving StageError, got %v", err)
	}
	if !rep.failed || rep.done {
		t.Errorf("reporter state done=%v failed=%v", rep.done, rep.failed)
	}
	assertNoTempFiles(t, tempDir, "42")
}

func TestRunFetchErrorCleansUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusForbidden)
	}))
	defer srv.Close()

	tempDir := t.TempDir()
	p := New(fakeResolver{url: srv.URL}, fakePublisher{}, tempDir, nil)

	rep := &recorder{}
	_, err := p.Run(context.Background(), dab.Track{ID: "42"}, rep)
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageFetching {
		t.Fatalf("expected fetching StageError, got %v", err)
	}
	assertNoTempFiles(t, tempDir, "42")
}

func TestRunTaggingFailureAbortsAndCleansUp(t *testing.T) {
	// Unrecognized content type lands on .audio, which no tagger accepts.
	audio := audioServer(t, "application/octet-stream", []byte("mystery bytes"))

	tempDir := t.TempDir()
	p := New(fakeResolver{url: audio.URL}, fakePublisher{link: "unused"}, tempDir, nil)

	rep := &recorder{}
	_, err := p.Run(context.Background(), dab.Track{ID: "42", Title: "x"}, rep)
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageTagging {
		t.Fatalf("expected tagging StageError, got %v", err)
	}
	if !rep.failed || rep.err == nil {
		t.Error("failure not reported")
	}
	assertNoTempFiles(t, tempDir, "42")
}

func TestRunCoverFailureDoesNotFailJob(t *testing.T) {
	audio := audioServer(t, "audio/mpeg", []byte("fake mpeg frames"))
	cover := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no cover", http.StatusInternalServerError)
	}))
	defer cover.Close()

	tempDir := t.TempDir()
	p := New(fakeResolver{url: audio.URL}, fakePublisher{link: "https://gofile.io/d/ok"}, tempDir, nil)

	track := dab.Track{ID: "42", Title: "Imagine", Artist: "John Lennon", AlbumCover: cover.URL}
	rep := &recorder{}
	res, err := p.Run(context.Background(), track, rep)
	if err != nil {
		t.Fatalf("cover failure flipped the job outcome: %v", err)
	}
	if res.Link == "" || !rep.done {
		t.Error("job should have completed")
	}
	assertNoTempFiles(t, tempDir, "42")
}

func TestRunPublishFailureCleansUp(t *testing.T) {
	audio := audioServer(t, "audio/mpeg", []byte("fake mpeg frames"))

	tempDir := t.TempDir()
	pubErr := errors.New("upload failed: service reported: quota exceeded")
	p := New(fakeResolver{url: audio.URL}, fakePublisher{err: pubErr}, tempDir, nil)

	rep := &recorder{}
	_, err := p.Run(context.Background(), dab.Track{ID: "42", Title: "x"}, rep)
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StagePublishing {
		t.Fatalf("expected publishing StageError, got %v", err)
	}
	if !strings.Contains(rep.err.Error(), "quota exceeded") {
		t.Errorf("reported error %q should carry the service text", rep.err)
	}
	assertNoTempFiles(t, tempDir, "42")
}

func TestExtensionSelection(t *testing.T) {
	cases := []struct {
		contentType string
		want        string
	}{
		{"audio/flac", ".flac"},
		{"audio/x-flac; charset=binary", ".flac"},
		{"audio/mpeg", ".mp3"},
		{"application/octet-stream", ".audio"},
		{"", ".audio"},
	}
	for _, c := range cases {
		if got := extensionFor(c.contentType); got != c.want {
			t.Errorf("extensionFor(%q) = %q, want %q", c.contentType, got, c.want)
		}
	}
}

func TestFetchedExtensionFollowsContentType(t *testing.T) {
	audio := audioServer(t, "audio/flac", minimalFLAC())

	tempDir := t.TempDir()
	var seen string
	p := New(fakeResolver{url: audio.URL}, publisherFunc(func(_ context.Context, path string) (string, error) {
		seen = path
		return "https://gofile.io/d/ok", nil
	}), tempDir, nil)

	rep := &recorder{}
	if _, err := p.Run(context.Background(), dab.Track{ID: "7", Title: "x"}, rep); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasSuffix(seen, ".flac") {
		t.Errorf("published path %q should end in .flac", seen)
	}
	assertNoTempFiles(t, tempDir, "7")
}

// minimalFLAC is a valid empty FLAC stream: magic plus a lone STREAMINFO
// block and no audio frames.
func minimalFLAC() []byte {
	streamInfo := make([]byte, 34)
	streamInfo[0], streamInfo[1] = 0x10, 0x00 // min block size 4096
	streamInfo[2], streamInfo[3] = 0x10, 0x00 // max block size 4096
	data := []byte("fLaC")
	data = append(data, 0x80, 0x00, 0x00, 34)
	return append(data, streamInfo...)
}

type publisherFunc func(ctx context.Context, path string) (string, error)

func (f publisherFunc) Upload(ctx context.Context, path string) (string, error) { return f(ctx, path) }
