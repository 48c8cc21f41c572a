package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/rs/zerolog"
)

var unsafeStageChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Screenshotter writes numbered PNG snapshots named <runID>_<NN>_<stage>.png.
type Screenshotter struct {
	dir     string
	runID   string
	enabled bool
	logger  zerolog.Logger

	mu      sync.Mutex
	counter int
}

func NewScreenshotter(dir, runID string, enabled bool, logger zerolog.Logger) *Screenshotter {
	return &Screenshotter{dir: dir, runID: runID, enabled: enabled, logger: logger}
}

func (s *Screenshotter) Enabled() bool {
	return s != nil && s.enabled
}

// Save writes data under the next sequence number and returns the file path, or "" if nothing was written.
func (s *Screenshotter) Save(stage string, data []byte) string {
	if !s.Enabled() {
		return ""
	}

	s.mu.Lock()
	s.counter++
	n := s.counter
	s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.logger.Err(err).Str("dir", s.dir).Msg("Failed to create screenshot directory")
		return ""
	}

	stage = unsafeStageChars.ReplaceAllString(stage, "_")
	filename := filepath.Join(s.dir, fmt.Sprintf("%s_%02d_%s.png", s.runID, n, stage))
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		s.logger.Err(err).Str("filename", filename).Msg("Failed to save screenshot")
		return ""
	}
	s.logger.Info().Str("filename", filename).Msg("Screenshot saved")
	return filename
}
