// Package main provides the entry point for the Facewarp viewer.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"

	fyneapp "fyne.io/fyne/v2/app"
	"go.uber.org/zap"

	"facewarp/internal/app"
	"facewarp/internal/config"
	"facewarp/internal/landmark"
	"facewarp/internal/logger"
	"facewarp/internal/topology"
	"facewarp/internal/version"
	"facewarp/ui/mainwindow"
	"facewarp/ui/prefs"
)

const appID = "io.github.facewarp"

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "facewarp: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "facewarp: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Log.Info("starting facewarp",
		zap.String("version", version.Version),
		zap.String("commit", version.GitCommit))

	topo, err := topology.Resolve(cfg.Topology.Path)
	if err != nil {
		logger.Log.Fatal("failed to load topology", zap.Error(err))
	}

	detector, err := app.NewDetector(cfg.Detector, topo, logger.Log)
	if err != nil {
		// The viewer still shows the mesh layout; detection reports the
		// problem when it is attempted.
		logger.Log.Warn("landmark detector unavailable", zap.Error(err))
		detector = landmark.DetectorFunc(unavailable(err))
	}

	session := app.NewSession(cfg, topo, detector, logger.Named("session"))

	a := fyneapp.NewWithID(appID)
	a.Settings().SetTheme(app.NewTheme(cfg.OverlayColor()))

	win := mainwindow.New(a, session, prefs.Load(), logger.Named("ui"))
	if path := flag.Arg(0); path != "" {
		win.LoadImage(path)
	}

	win.ShowAndRun()
}

// unavailable reports why no detector could be built.
func unavailable(cause error) func(context.Context, image.Image) (landmark.Result, error) {
	return func(context.Context, image.Image) (landmark.Result, error) {
		return landmark.Result{}, cause
	}
}
