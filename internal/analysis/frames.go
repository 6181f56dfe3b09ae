package analysis

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
)

const maxFrames = 10

// FrameExtractor turns a source video into a bounded set of frame images.
type FrameExtractor interface {
	ExtractFrames(ctx context.Context, videoPath, outDir string, limit int) ([]string, error)
}

// FFmpegExtractor shells out to ffmpeg for frame extraction.
type FFmpegExtractor struct {
	// Binary overrides the ffmpeg binary name, mostly for tests.
	Binary string
}

// ExtractFrames samples one frame per second up to limit and writes JPEGs
// into outDir. Returns the sorted frame paths.
func (e *FFmpegExtractor) ExtractFrames(ctx context.Context, videoPath, outDir string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = maxFrames
	}
	binary := e.Binary
	if binary == "" {
		binary = "ffmpeg"
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir frames dir: %w", err)
	}

	pattern := filepath.Join(outDir, "frame_%03d.jpg")
	cmd := exec.CommandContext(ctx, binary,
		"-i", videoPath,
		"-vf", "fps=1",
		"-frames:v", fmt.Sprintf("%d", limit),
		"-q:v", "2",
		"-y",
		pattern,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: %w, output: %s", err, truncateOutput(output))
	}

	frames, err := filepath.Glob(filepath.Join(outDir, "frame_*.jpg"))
	if err != nil {
		return nil, err
	}
	sort.Strings(frames)
	if len(frames) > limit {
		frames = frames[:limit]
	}
	return frames, nil
}

func truncateOutput(b []byte) string {
	const max = 1024
	if len(b) <= max {
		return string(b)
	}
	return string(b[len(b)-max:])
}

var _ FrameExtractor = (*FFmpegExtractor)(nil)
