package job

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

type State string

const (
	StateCreated      State = "created"
	StateExtracting   State = "extracting"
	StateSeparating   State = "separating"
	StateCopyingStems State = "copying_stems"
	StateRecombining  State = "recombining"
	StateComplete     State = "complete"
	StateFailed       State = "failed"
)

// The fixed artifact names every completed job exposes.
const (
	ArtifactVocals     = "vocals.wav"
	ArtifactNoMusic    = "no_music.wav"
	ArtifactRecombined = "recombined.mp4"
)

const jobIDLength = 8

// Job is one separation request: a short random id and an output directory
// the pipeline populates. The filesystem is the only record of a job; there
// is no index, so a job is known only by its id.
type Job struct {
	ID          string    `json:"jobId"`
	Dir         string    `json:"-"`
	State       State     `json:"state"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	CompletedAt time.Time `json:"completedAt,omitempty"`

	// Combined output of the last external tool invocation, kept for logs.
	toolOutput string
}

// NewJob mints a job with a fresh 8-character id rooted under outputDir.
// Ids are not checked for collisions; at this length the probability is
// accepted rather than handled.
func NewJob(outputDir string) *Job {
	id := shortuuid.New()[:jobIDLength]
	return &Job{
		ID:        id,
		Dir:       filepath.Join(outputDir, id),
		State:     StateCreated,
		CreatedAt: time.Now(),
	}
}

// OutputURL returns the public relative URL for a named artifact.
func (j *Job) OutputURL(name string) string {
	return "/outputs/" + j.ID + "/" + name
}

var allowedExtensions = map[string]struct{}{
	"mp4": {}, "webm": {}, "ogg": {}, "mkv": {},
	"avi": {}, "mov": {}, "wav": {}, "mp3": {},
}

// AllowedFile reports whether the filename carries an extension from the
// upload allow-list.
func AllowedFile(filename string) bool {
	ext := filepath.Ext(filename)
	if ext == "" {
		return false
	}
	_, ok := allowedExtensions[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return ok
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename reduces an uploaded filename to a safe basename: path
// components are stripped, unsafe characters collapse to underscores, and
// the result is never empty or dot-leading.
func SanitizeFilename(filename string) string {
	// Browsers on Windows may send backslash-separated paths.
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = filepath.Base(filename)
	filename = unsafeFilenameChars.ReplaceAllString(filename, "_")
	filename = strings.TrimLeft(filename, ".")
	if filename == "" {
		return "upload"
	}
	return filename
}
