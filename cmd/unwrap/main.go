// Command unwrap detects the face in one photograph, or in every photograph
// of a directory, and writes the unwrapped UV texture of each.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/logrusorgru/aurora"
	imgcat "github.com/martinlindhe/imgcat/lib"
	"golang.org/x/term"

	"facewarp/internal/app"
	"facewarp/internal/config"
	"facewarp/internal/logger"
	"facewarp/internal/topology"
	"facewarp/internal/version"
)

// maxJobs caps the number of photographs processed concurrently.
const maxJobs = 20

var (
	source      = flag.String("in", "", "Source image file or directory")
	destination = flag.String("out", "", "Destination texture file or directory")
	withOverlay = flag.Bool("overlay", false, "Also write the photograph with the detected mesh drawn over it")
	preview     = flag.Bool("preview", false, "Show the generated textures in the terminal")
	jobs        = flag.Int("jobs", runtime.NumCPU(), "Number of photographs processed concurrently")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	config.ParseFlags()

	if *showVersion {
		fmt.Println(version.String("unwrap"))
		return
	}
	if *source == "" || *destination == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fatal(err)
	}
	defer logger.Sync()

	topo, err := topology.Resolve(cfg.Topology.Path)
	if err != nil {
		fatal(err)
	}
	detector, err := app.NewDetector(cfg.Detector, topo, logger.Named("detector"))
	if err != nil {
		fatal(err)
	}

	color := aurora.NewAurora(term.IsTerminal(int(os.Stderr.Fd())))
	b := &batch{
		cfg:      cfg,
		topo:     topo,
		detector: detector,
		overlay:  *withOverlay,
		log:      logger.Named("unwrap"),
	}

	now := time.Now()
	fi, err := os.Stat(*source)
	if err != nil {
		fatal(err)
	}

	failed := 0
	report := func(r result) {
		if r.err != nil {
			failed++
		}
		printStatus(color, r)
		if r.err == nil && *preview && term.IsTerminal(int(os.Stdout.Fd())) {
			imgcat.CatFile(r.out, os.Stdout)
		}
	}

	if fi.IsDir() {
		if err := os.MkdirAll(*destination, 0755); err != nil {
			fatal(err)
		}
		n := *jobs
		if n <= 0 || n > maxJobs {
			n = runtime.NumCPU()
		}

		ch := make(chan result)
		done := make(chan struct{})
		defer close(done)

		paths, errc := walkDir(done, *source, validExtensions)

		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func() {
				defer wg.Done()
				b.consume(done, paths, *destination, ch)
			}()
		}
		go func() {
			defer close(ch)
			wg.Wait()
		}()

		for r := range ch {
			report(r)
		}
		if err := <-errc; err != nil {
			fmt.Fprintln(os.Stderr, color.Red(err.Error()))
			failed++
		}
	} else {
		out := *destination
		if st, err := os.Stat(out); err == nil && st.IsDir() {
			out = texturePath(*source, out)
		} else if filepath.Ext(out) == "" {
			out += ".png"
		}
		report(result{path: *source, out: out, err: b.process(b.session(), *source, out)})
	}

	fmt.Fprintf(os.Stderr, "\nExecution time: %s\n", color.Green(time.Since(now).Round(time.Millisecond)))
	if failed > 0 {
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "unwrap: %v\n", err)
	os.Exit(1)
}
