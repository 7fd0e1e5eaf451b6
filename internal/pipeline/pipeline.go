// Package pipeline drives the multi-stage track acquisition:
// resolve a playback URL, fetch the audio, overlay tags and cover art,
// publish the result and report progress. Local temporary files are
// removed on every exit path.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dab-tg-bot/internal/dab"
	"dab-tg-bot/internal/tagger"
)

// StreamResolver resolves a track id to a time-limited playback URL.
type StreamResolver interface {
	StreamURL(ctx context.Context, trackID string) (string, error)
}

// Publisher uploads a local file to a public host and returns a durable link.
type Publisher interface {
	Upload(ctx context.Context, path string) (string, error)
}

// Reporter is the single mutable progress surface for one job. Every call
// replaces the surface's content in place; nothing is ever appended.
type Reporter interface {
	Stage(ctx context.Context, stage Stage)
	Done(ctx context.Context, link string, size int64)
	Fail(ctx context.Context, err error)
}

// Result is the success outcome of one acquisition job.
type Result struct {
	Link string
	Size int64
}

type Pipeline struct {
	resolver  StreamResolver
	publisher Publisher
	tempDir   string
	logger    *zap.Logger

	// fetchClient has a long timeout: download bodies may be large.
	fetchClient *http.Client
	// coverClient stays short; cover fetch is best effort.
	coverClient *http.Client
}

func New(resolver StreamResolver, publisher Publisher, tempDir string, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		resolver:    resolver,
		publisher:   publisher,
		tempDir:     tempDir,
		logger:      logger,
		fetchClient: &http.Client{Timeout: 5 * time.Minute},
		coverClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// job is the per-invocation state. It is owned by exactly one Run call
// and its temp files are destroyed when Run returns.
type job struct {
	id        string
	track     dab.Track
	audioPath string
	coverPath string
}

// Run executes the five stages for one previously searched track.
// On failure the returned error is a *StageError naming the stage; the
// reporter has already been given the final outcome either way.
func (p *Pipeline) Run(ctx context.Context, track dab.Track, rep Reporter) (*Result, error) {
	j := &job{id: uuid.NewString()[:8], track: track}
	log := p.logger.With(zap.String("job", j.id), zap.String("track_id", track.ID.String()))

	// Temp names include the track id; two concurrent downloads of the
	// same id may race on them. Accepted, not locked.
	defer j.cleanup(log)

	res, err := p.run(ctx, j, rep, log)
	if err != nil {
		log.Error("acquisition failed", zap.String("stage", stageOf(err).String()), zap.Error(err))
		rep.Fail(ctx, err)
		return nil, err
	}

	log.Info("acquisition complete", zap.String("link", res.Link), zap.Int64("bytes", res.Size))
	rep.Done(ctx, res.Link, res.Size)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, j *job, rep Reporter, log *zap.Logger) (*Result, error) {
	// 1/5 resolve
	rep.Stage(ctx, StageResolving)
	audioURL, err := p.resolver.StreamURL(ctx, j.track.ID.String())
	if err != nil {
		return nil, &StageError{Stage: StageResolving, Err: err}
	}

	// 2/5 fetch
	rep.Stage(ctx, StageFetching)
	size, err := p.fetchAudio(ctx, j, audioURL)
	if err != nil {
		return nil, &StageError{Stage: StageFetching, Err: err}
	}
	log.Info("audio fetched", zap.String("path", j.audioPath), zap.Int64("bytes", size))

	// Cover fetch is best effort; a missing cover never fails the job.
	if j.track.AlbumCover != "" {
		if err := p.fetchCover(ctx, j); err != nil {
			log.Warn("cover fetch failed, continuing without art", zap.Error(err))
		}
	}

	// 3/5 tag
	rep.Stage(ctx, StageTagging)
	if err := p.tag(j, log); err != nil {
		return nil, &StageError{Stage: StageTagging, Err: err}
	}

	// 4/5 publish
	rep.Stage(ctx, StagePublishing)
	link, err := p.publisher.Upload(ctx, j.audioPath)
	if err != nil {
		return nil, &StageError{Stage: StagePublishing, Err: err}
	}

	// 5/5 done
	return &Result{Link: link, Size: size}, nil
}

// fetchAudio streams the resource to a local file, choosing the extension
// from the declared content type before any bytes are written.
func (p *Pipeline) fetchAudio(ctx context.Context, j *job, audioURL string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", dab.UserAgent)

	resp, err := p.fetchClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("fetch audio: status %d", resp.StatusCode)
	}

	j.audioPath = filepath.Join(p.tempDir,
		fmt.Sprintf("dab_%s_audio%s", j.track.ID, extensionFor(resp.Header.Get("Content-Type"))))

	f, err := os.Create(j.audioPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return 0, fmt.Errorf("write audio: %w", err)
	}
	return n, nil
}

func (p *Pipeline) fetchCover(ctx context.Context, j *job) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.track.AlbumCover, nil)
	if err != nil {
		return err
	}

	resp, err := p.coverClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cover fetch: status %d", resp.StatusCode)
	}

	coverPath := filepath.Join(p.tempDir, fmt.Sprintf("dab_%s_cover.jpg", j.track.ID))
	f, err := os.Create(coverPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return err
	}
	j.coverPath = coverPath
	return nil
}

// tag writes the textual tags (fatal on failure) and then best-effort
// embeds the cover through the format's embedder.
func (p *Pipeline) tag(j *job, log *zap.Logger) error {
	meta := tagger.Metadata{
		Title:  j.track.Title,
		Artist: j.track.Artist,
		Album:  j.track.AlbumTitle,
	}
	if err := tagger.WriteTags(j.audioPath, meta); err != nil {
		return err
	}

	if j.coverPath == "" {
		return nil
	}
	image, err := os.ReadFile(j.coverPath)
	if err != nil {
		log.Warn("cover art unreadable, skipping embed", zap.Error(err))
		return nil
	}
	format := tagger.DetectFormat(j.audioPath)
	if err := tagger.EmbedderFor(format).Embed(j.audioPath, image); err != nil {
		// Textual tags already saved stand; losing the picture is not
		// worth losing the job.
		log.Warn("cover embed failed", zap.String("format", format.String()), zap.Error(err))
	}
	return nil
}

// cleanup removes the job's temp files. Run defers it exactly once, so
// it holds on every exit path.
func (j *job) cleanup(log *zap.Logger) {
	for _, path := range []string{j.audioPath, j.coverPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn("temp file cleanup failed", zap.String("path", path), zap.Error(err))
		}
	}
}

// extensionFor maps a declared content type to a local file extension.
func extensionFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "flac"):
		return ".flac"
	case strings.Contains(contentType, "mpeg"):
		return ".mp3"
	default:
		return ".audio"
	}
}

func stageOf(err error) Stage {
	if se, ok := err.(*StageError); ok {
		return se.Stage
	}
	return StageFailed
}
