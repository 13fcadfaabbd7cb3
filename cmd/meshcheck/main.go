// Command meshcheck validates a mesh topology, prints its statistics and can
// export it as YAML or render its canonical layout.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/logrusorgru/aurora"
	imgcat "github.com/martinlindhe/imgcat/lib"
	"golang.org/x/term"

	"facewarp/internal/config"
	"facewarp/internal/image"
	"facewarp/internal/logger"
	"facewarp/internal/overlay"
	"facewarp/internal/topology"
	"facewarp/internal/version"
)

var (
	exportPath  = flag.String("export", "", "Write the topology as YAML to this file")
	renderPath  = flag.String("render", "", "Render the canonical layout to this image file")
	triangles   = flag.Bool("triangles", true, "Draw triangle edges when rendering")
	preview     = flag.Bool("preview", false, "Show the rendered layout in the terminal")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	config.ParseFlags()
	if *showVersion {
		fmt.Println(version.String("meshcheck"))
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fatal(err)
	}
	defer logger.Sync()

	color := aurora.NewAurora(term.IsTerminal(int(os.Stdout.Fd())))

	name := cfg.Topology.Path
	if name == "" {
		name = "canonical"
	}
	topo, err := topology.Resolve(cfg.Topology.Path)
	if err != nil {
		fmt.Printf("%s %s\n\t%v\n", color.Red("FAIL"), name, err)
		os.Exit(1)
	}
	fmt.Printf("%s %s\n", color.Green("OK"), name)
	collect(topo).write(os.Stdout, color)

	if *exportPath != "" {
		if err := export(topo, *exportPath); err != nil {
			fatal(err)
		}
		logger.Sugar.Infof("topology written to %s", *exportPath)
	}

	if *renderPath != "" {
		opts := overlay.DefaultOptions()
		opts.PointColor = cfg.OverlayColor()
		opts.ContourColor = opts.PointColor
		opts.PointRadius = cfg.Overlay.PointRadius
		opts.LineWidth = cfg.Overlay.LineWidth

		out := *renderPath
		if filepath.Ext(out) == "" {
			out += ".png"
		}
		img := overlay.Mesh(topo, cfg.Texture.Width, cfg.Texture.Height, cfg.Background(), opts, *triangles)
		if err := image.Save(img, out); err != nil {
			fatal(err)
		}
		logger.Sugar.Infof("layout rendered to %s", out)
		if *preview && term.IsTerminal(int(os.Stdout.Fd())) {
			imgcat.CatFile(out, os.Stdout)
		}
	}
}

func export(topo *topology.Topology, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := topo.WriteYAML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "meshcheck: %v\n", err)
	os.Exit(1)
}
