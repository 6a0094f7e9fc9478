package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofrs/flock"

	"vidflow/config"
	"vidflow/tool"
)

// Runner is the narrow surface the orchestrator needs from the external
// tools, so tests can substitute fakes for ffmpeg and demucs.
type Runner interface {
	Run(ctx context.Context, bin string, args []string) (logOutput string, err error)
	LookPath(bin string) bool
	CheckResources() error
}

var (
	// ErrJobNotFound is returned for cleanup or lookup of an unknown job id.
	ErrJobNotFound = errors.New("job not found")
	// ErrArtifactNotFound is returned when a requested file does not resolve
	// to an existing file inside the job directory.
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrBusy is returned when the resource guard refuses to admit a job.
	ErrBusy = errors.New("insufficient system resources")
)

const (
	extractedAudioName = "audio.wav"
	vocalsStemName     = "vocals.wav"
	noVocalsStemName   = "no_vocals.wav"
	lockFilename       = ".lock"
)

// Orchestrator runs the separation pipeline: extract audio, split stems,
// copy them into the job directory, remux the video with the vocals track.
// Each step is a blocking subprocess invocation; the whole pipeline runs
// inline within the calling request.
type Orchestrator struct {
	cfg    *config.Config
	runner Runner
	log    *log.Logger
}

func NewOrchestrator(cfg *config.Config, runner Runner, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		runner: runner,
		log:    logger,
	}
}

// DemucsAvailable reports whether the separation binary is discoverable on
// the execution path. A failed probe reports false, never an error.
func (o *Orchestrator) DemucsAvailable() bool {
	return o.runner.LookPath(o.cfg.DemucsBin)
}

// Separate runs the full pipeline for one uploaded file. The returned Job is
// non-nil whenever a job directory was created, including on failure: the
// partial directory is left on disk and is the caller's to clean up.
func (o *Orchestrator) Separate(ctx context.Context, filename string, src io.Reader) (*Job, error) {
	if err := o.runner.CheckResources(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBusy, err)
	}

	ffExtra, err := tool.SplitExtraArgs(o.cfg.FFExtraArgs)
	if err != nil {
		return nil, fmt.Errorf("invalid FF_EXTRA_ARGS: %w", err)
	}
	demucsExtra, err := tool.SplitExtraArgs(o.cfg.DemucsArgs)
	if err != nil {
		return nil, fmt.Errorf("invalid DEMUCS_ARGS: %w", err)
	}

	j := NewJob(o.cfg.OutputDir)
	if err := os.MkdirAll(j.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create job directory: %w", err)
	}
	logger := o.log.With("job", j.ID)

	// Held for the duration of the pipeline so a concurrent cleanup of this
	// id waits instead of deleting files out from under a running tool.
	lock := flock.New(filepath.Join(j.Dir, lockFilename))
	if err := lock.Lock(); err != nil {
		logger.Warn("could not lock job directory", "err", err)
	} else {
		defer lock.Unlock()
	}

	videoPath := filepath.Join(j.Dir, SanitizeFilename(filename))
	if err := saveFile(videoPath, src); err != nil {
		return j, o.fail(j, logger, fmt.Errorf("could not save uploaded file: %w", err))
	}
	logger.Info("saved video", "path", videoPath)

	// 1. Extract the audio track as canonical PCM.
	j.State = StateExtracting
	audioPath := filepath.Join(j.Dir, extractedAudioName)
	if out, err := o.runTool(ctx, o.cfg.FFBin, tool.ExtractArgs(ffExtra, videoPath, audioPath)); err != nil {
		return j, o.fail(j, logger, toolFailure("FFmpeg audio extraction failed", out, err))
	}
	logger.Info("extracted audio", "path", audioPath)

	// 2. Two-stem separation. Demucs nests its output under
	// <jobdir>/<model>/<input stem>/.
	j.State = StateSeparating
	if out, err := o.runTool(ctx, o.cfg.DemucsBin, tool.SeparateArgs(demucsExtra, j.Dir, audioPath)); err != nil {
		return j, o.fail(j, logger, toolFailure("Demucs separation failed", out, err))
	}
	logger.Info("separation complete")

	// 3. Copy the stems up into the job directory under their public names.
	j.State = StateCopyingStems
	stemDir := filepath.Join(j.Dir, o.cfg.DemucsModel, strings.TrimSuffix(extractedAudioName, filepath.Ext(extractedAudioName)))
	o.copyStem(logger, filepath.Join(stemDir, vocalsStemName), filepath.Join(j.Dir, ArtifactVocals))
	o.copyStem(logger, filepath.Join(stemDir, noVocalsStemName), filepath.Join(j.Dir, ArtifactNoMusic))

	// 4. Remux the original video with the vocals-only track.
	j.State = StateRecombining
	recombinedPath := filepath.Join(j.Dir, ArtifactRecombined)
	if out, err := o.runTool(ctx, o.cfg.FFBin, tool.RemuxArgs(ffExtra, videoPath, filepath.Join(j.Dir, ArtifactVocals), recombinedPath)); err != nil {
		return j, o.fail(j, logger, toolFailure("FFmpeg recombine failed", out, err))
	}
	logger.Info("recombined video", "path", recombinedPath)

	j.State = StateComplete
	j.CompletedAt = time.Now()
	return j, nil
}

// runTool executes one external invocation under the configured timeout.
func (o *Orchestrator) runTool(ctx context.Context, bin string, args []string) (string, error) {
	toolCtx, cancel := context.WithTimeout(ctx, o.cfg.ToolTimeout)
	defer cancel()
	return o.runner.Run(toolCtx, bin, args)
}

// copyStem copies a separated stem into the job directory. A missing stem is
// skipped rather than failing the job; the remux step fails on its own if
// the vocals track never appeared.
func (o *Orchestrator) copyStem(logger *log.Logger, src, dst string) {
	if _, err := os.Stat(src); os.IsNotExist(err) {
		logger.Warn("stem missing, skipping", "stem", src)
		return
	}
	if err := copyFile(src, dst); err != nil {
		logger.Warn("could not copy stem", "stem", src, "err", err)
	}
}

func (o *Orchestrator) fail(j *Job, logger *log.Logger, err error) error {
	j.State = StateFailed
	j.Error = err.Error()
	logger.Error("separation failed", "err", err)
	return err
}

// ArtifactPath resolves a job id and filename to a file on disk, verifying
// the result cannot escape the job directory.
func (o *Orchestrator) ArtifactPath(jobID, filename string) (string, error) {
	if !safePathComponent(jobID) || !safePathComponent(filename) {
		return "", ErrArtifactNotFound
	}

	jobDir := filepath.Join(o.cfg.OutputDir, jobID)
	fullPath := filepath.Join(jobDir, filename)
	rel, err := filepath.Rel(jobDir, fullPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrArtifactNotFound
	}

	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		return "", ErrArtifactNotFound
	}
	return fullPath, nil
}

// Cleanup removes a job directory and everything in it. A second call for
// the same id reports ErrJobNotFound, it is never a distinct failure.
func (o *Orchestrator) Cleanup(jobID string) error {
	if !safePathComponent(jobID) {
		return ErrJobNotFound
	}

	jobDir := filepath.Join(o.cfg.OutputDir, jobID)
	if _, err := os.Stat(jobDir); os.IsNotExist(err) {
		return ErrJobNotFound
	}

	// Wait out any in-flight pipeline for this id before tearing it down.
	lock := flock.New(filepath.Join(jobDir, lockFilename))
	if err := lock.Lock(); err == nil {
		defer lock.Unlock()
	}

	if err := os.RemoveAll(jobDir); err != nil {
		return fmt.Errorf("could not remove job directory: %w", err)
	}
	o.log.Info("cleaned up job", "job", jobID)
	return nil
}

// safePathComponent accepts a single path element: no separators, no
// traversal, nothing the filesystem would resolve elsewhere.
func safePathComponent(s string) bool {
	return s != "" && s != "." && s != ".." &&
		s == filepath.Base(s) && !strings.ContainsAny(s, `/\`)
}

// toolFailure shapes an external tool failure into the message surfaced to
// the client, preferring the tool's own diagnostics over the exit error.
func toolFailure(prefix, output string, err error) error {
	msg := strings.TrimSpace(output)
	if msg == "" {
		msg = err.Error()
	}
	return fmt.Errorf("%s: %s", prefix, msg)
}

func saveFile(dst string, src io.Reader) error {
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return saveFile(dst, in)
}
