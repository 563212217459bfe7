// Package matcher runs the external face-matching program and manages the
// per-session matched-image directories it writes into.
package matcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/snapmatch/snapmatch/internal/apperr"
	"github.com/snapmatch/snapmatch/internal/config"
)

// Matcher produces matched image files for a capture into outputDir.
// Implementations report only success or failure; callers enumerate the
// directory afterwards to distinguish an empty result from a real match.
type Matcher interface {
	Match(ctx context.Context, outputDir string) error
}

// CommandMatcher shells out to a configured matching command. The output and
// gallery directories are passed through environment variables so the script
// does not need hardcoded paths.
type CommandMatcher struct {
	command    string
	galleryDir string
	timeout    time.Duration
}

// NewCommandMatcher creates a matcher from config.
func NewCommandMatcher(cfg *config.Config) *CommandMatcher {
	return &CommandMatcher{
		command:    cfg.Matcher.Command,
		galleryDir: cfg.Paths.GalleryDir,
		timeout:    time.Duration(cfg.Matcher.TimeoutSeconds) * time.Second,
	}
}

// Match runs the matching command synchronously. A non-zero exit is reported
// as a transport error carrying the combined output; there is no retry.
func (m *CommandMatcher) Match(ctx context.Context, outputDir string) error {
	parts := strings.Fields(m.command)
	if len(parts) == 0 {
		return apperr.New(apperr.Internal, "matcher command is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	// Arguments come from server config, not from the request.
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...) //nolint:gosec
	cmd.Env = append(os.Environ(),
		"MATCH_OUTPUT_DIR="+outputDir,
		"MATCH_GALLERY_DIR="+m.galleryDir,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return apperr.Wrap(apperr.Transport, "face matching failed",
			fmt.Errorf("running %q: %w\n%s", m.command, err, string(output)))
	}
	return nil
}
