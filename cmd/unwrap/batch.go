package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/logrusorgru/aurora"
	"go.uber.org/zap"

	"facewarp/internal/app"
	"facewarp/internal/config"
	"facewarp/internal/image"
	"facewarp/internal/landmark"
	"facewarp/internal/topology"
)

var validExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff", ".webp"}

// batch holds what every worker shares. Each worker drives its own session.
type batch struct {
	cfg      *config.Config
	topo     *topology.Topology
	detector landmark.Detector
	overlay  bool
	log      *zap.Logger
}

type result struct {
	path string
	out  string
	err  error
}

func (b *batch) session() *app.Session {
	return app.NewSession(b.cfg, b.topo, b.detector, b.log)
}

// walkDir walks src recursively in its own goroutine and sends every file
// with one of the given extensions on the returned channel. The walk error
// is delivered on the error channel; closing done cancels the walk.
func walkDir(done <-chan struct{}, src string, exts []string) (<-chan string, <-chan error) {
	paths := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(paths)

		errc <- filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.Mode().IsRegular() || !isValidExtension(filepath.Ext(path), exts) {
				return nil
			}
			select {
			case <-done:
				return errors.New("directory walk cancelled")
			case paths <- path:
			}
			return nil
		})
	}()
	return paths, errc
}

// consume unwraps every path it receives into dest and reports each outcome.
func (b *batch) consume(done <-chan struct{}, paths <-chan string, dest string, res chan<- result) {
	s := b.session()
	for src := range paths {
		out := texturePath(src, dest)
		err := b.process(s, src, out)

		select {
		case <-done:
			return
		case res <- result{path: src, out: out, err: err}:
		}
	}
}

// process runs the whole workflow for one photograph.
func (b *batch) process(s *app.Session, in, out string) error {
	if err := s.LoadImage(in); err != nil {
		return err
	}
	if _, err := s.Detect(context.Background()); err != nil {
		return err
	}
	if _, err := s.Generate(); err != nil {
		return err
	}
	if err := s.SaveTexture(out); err != nil {
		return err
	}
	if b.overlay {
		if err := image.Save(s.SourcePreview(), overlayPath(out)); err != nil {
			return err
		}
	}
	b.log.Debug("unwrapped", zap.String("in", in), zap.String("out", out))
	return nil
}

// texturePath names the texture written for src inside dir.
func texturePath(src, dir string) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(dir, base+"_uv.png")
}

// overlayPath names the debug overlay written next to a texture.
func overlayPath(texture string) string {
	ext := filepath.Ext(texture)
	if ext == "" {
		ext = ".png"
	}
	return strings.TrimSuffix(texture, filepath.Ext(texture)) + "_mesh" + ext
}

func isValidExtension(ext string, exts []string) bool {
	ext = strings.ToLower(ext)
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}

func printStatus(color aurora.Aurora, r result) {
	printStatusTo(os.Stderr, color, r)
}

func printStatusTo(w io.Writer, color aurora.Aurora, r result) {
	if r.err != nil {
		reason := r.err.Error()
		if errors.Is(r.err, app.ErrNoFace) {
			reason = "no face detected"
		}
		fmt.Fprintf(w, "%s %s\n\t%s\n", color.Red("✘"), r.path, color.Faint(reason))
		return
	}
	fmt.Fprintf(w, "%s %s -> %s\n", color.Green("✔"), r.path, color.Bold(filepath.Base(r.out)))
}
