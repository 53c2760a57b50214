package pipeline

import (
	"errors"
	"fmt"
	"image/gif"
	"os"
	"path/filepath"
)

// ErrInvalidOutput marks a finished file that cannot be what Run promised.
var ErrInvalidOutput = errors.New("invalid output")

// CheckOutput verifies the basics of a finished clip: the file exists and
// is not empty, and the recorded frame count, size and rate are usable. A
// GIF is also decoded far enough to compare its canvas with the metadata.
func CheckOutput(path string, m Metadata) error {
	switch {
	case m.Frames <= 0:
		return fmt.Errorf("%w: %d frames", ErrInvalidOutput, m.Frames)
	case m.Width <= 0 || m.Height <= 0:
		return fmt.Errorf("%w: size %dx%d", ErrInvalidOutput, m.Width, m.Height)
	case m.FPS <= 0:
		return fmt.Errorf("%w: fps %d", ErrInvalidOutput, m.FPS)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s is empty", ErrInvalidOutput, path)
	}

	if filepath.Ext(path) != ".gif" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	defer f.Close()
	cfg, err := gif.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if cfg.Width != m.Width || cfg.Height != m.Height {
		return fmt.Errorf("%w: gif is %dx%d, want %dx%d", ErrInvalidOutput, cfg.Width, cfg.Height, m.Width, m.Height)
	}
	return nil
}
