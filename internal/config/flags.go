package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagWidth     = flag.Int("width", 0, "Texture width")
	flagHeight    = flag.Int("height", 0, "Texture height")
	flagWorkers   = flag.Int("workers", -1, "Warp worker goroutines (0 = all CPUs)")
	flagDetector  = flag.String("detector", "", "Landmark detector: pigo, command or file")
	flagCascade   = flag.String("cascade", "", "Pigo face cascade file")
	flagKeypoints = flag.String("keypoints", "", "Landmark JSON file for the file detector")
	flagTopology  = flag.String("topology", "", "Mesh topology YAML file")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagWidth > 0 {
		cfg.Texture.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Texture.Height = *flagHeight
	}
	if *flagWorkers >= 0 {
		cfg.Warp.Workers = *flagWorkers
	}
	if *flagDetector != "" {
		cfg.Detector.Kind = *flagDetector
	}
	if *flagCascade != "" {
		cfg.Detector.Cascade = *flagCascade
	}
	if *flagKeypoints != "" {
		cfg.Detector.Keypoints = *flagKeypoints
		if *flagDetector == "" {
			cfg.Detector.Kind = DetectorFile
		}
	}
	if *flagTopology != "" {
		cfg.Topology.Path = *flagTopology
	}
}
