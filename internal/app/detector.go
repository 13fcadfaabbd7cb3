package app

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"facewarp/internal/config"
	"facewarp/internal/landmark"
	"facewarp/internal/topology"
)

// NewDetector builds the landmark detector selected by cfg.
func NewDetector(cfg config.DetectorConfig, topo *topology.Topology, log *zap.Logger) (landmark.Detector, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Kind {
	case config.DetectorFile:
		if cfg.Keypoints == "" {
			return nil, errors.New("file detector needs a keypoints path")
		}
		return landmark.FileDetector{Path: cfg.Keypoints}, nil

	case config.DetectorCommand:
		if cfg.Command == "" {
			return nil, errors.New("command detector needs a command")
		}
		return landmark.CommandDetector{Path: cfg.Command, Args: cfg.Args, Logger: log.Named("landmark")}, nil

	case config.DetectorPigo:
		if cfg.Cascade == "" {
			return nil, errors.New("pigo detector needs a cascade file")
		}
		return landmark.NewPigoDetector(cfg.Cascade, topo, landmark.PigoParams{
			MinSize:      cfg.MinSize,
			MaxSize:      cfg.MaxSize,
			ShiftFactor:  cfg.ShiftFactor,
			ScaleFactor:  cfg.ScaleFactor,
			IoU:          cfg.IoU,
			MinScore:     cfg.MinScore,
			MaxDimension: cfg.MaxDimension,
		}, log.Named("landmark"))

	default:
		return nil, fmt.Errorf("unknown detector kind %q", cfg.Kind)
	}
}
