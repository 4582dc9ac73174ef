package video

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// Scratch hands out job-prefixed temp paths and removes every one of them on Cleanup.
// Jobs share the temp directory, so names carry the job ID to stay unique.
type Scratch struct {
	dir    string
	prefix string
	paths  []string
}

// NewScratch prepares dir and returns a tracker for one job.
func NewScratch(dir, jobID string) (*Scratch, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	return &Scratch{dir: dir, prefix: jobID}, nil
}

// Path returns a tracked path for name. The file is not created.
func (s *Scratch) Path(name string) string {
	p := filepath.Join(s.dir, fmt.Sprintf("%s_%s", s.prefix, name))
	s.paths = append(s.paths, p)
	return p
}

// Cleanup removes all tracked files and returns how many were actually deleted.
func (s *Scratch) Cleanup() int {
	removed := 0
	for _, p := range s.paths {
		err := os.Remove(p)
		if err == nil {
			removed++
			continue
		}
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", p).Msg("failed to remove scratch file")
		}
	}
	s.paths = nil
	return removed
}
