package landmark

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	fwimage "facewarp/internal/image"
)

// CommandDetector runs an external landmark model. The image is written to
// a temporary PNG whose path is appended to Args; the command must print a
// result in the JSON exchange format on stdout.
type CommandDetector struct {
	Path   string
	Args   []string
	Logger *zap.Logger
}

// Detect runs the command on img.
func (d CommandDetector) Detect(ctx context.Context, img image.Image) (Result, error) {
	if d.Path == "" {
		return Result{}, errors.New("landmark command not configured")
	}

	dir, err := os.MkdirTemp("", "facewarp-detect-")
	if err != nil {
		return Result{}, err
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.png")
	if err := fwimage.Save(img, input); err != nil {
		return Result{}, err
	}

	args := append(append([]string(nil), d.Args...), input)
	cmd := exec.CommandContext(ctx, d.Path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log.Debug("running landmark command", zap.String("path", d.Path), zap.Strings("args", args))

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{}, fmt.Errorf("landmark command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return Result{}, fmt.Errorf("landmark command: %w", err)
	}

	b := img.Bounds()
	res, err := ReadJSON(&stdout, b.Dx(), b.Dy())
	if err != nil {
		return Result{}, err
	}
	log.Debug("landmark command finished", zap.Int("faces", len(res.Faces)))
	return res, nil
}
