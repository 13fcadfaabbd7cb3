package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/logrusorgru/aurora"

	"facewarp/internal/topology"
	"facewarp/pkg/geometry"
)

type contourStat struct {
	name   string
	points int
}

type stats struct {
	landmarks int
	triangles int
	area      float64
	// coverage is the share of the landmarks' convex hull covered by
	// triangles.
	coverage float64
	bounds   geometry.Rect
	contours []contourStat
}

func collect(topo *topology.Topology) stats {
	uv := topo.UV()
	s := stats{
		landmarks: topo.Len(),
		triangles: topo.NumTriangles(),
		area:      topo.Area(),
		bounds:    geometry.BoundingBox(uv),
	}
	if hull := geometry.PolygonArea(geometry.ConvexHull(uv)); hull > 0 {
		s.coverage = s.area / hull
	}
	contours := topo.Contours()
	for _, name := range topo.ContourNames() {
		s.contours = append(s.contours, contourStat{name: name, points: len(contours[name])})
	}
	sort.Slice(s.contours, func(i, j int) bool { return s.contours[i].name < s.contours[j].name })
	return s
}

func (s stats) write(w io.Writer, color aurora.Aurora) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "landmarks\t%d\n", s.landmarks)
	fmt.Fprintf(tw, "triangles\t%d\n", s.triangles)
	fmt.Fprintf(tw, "uv area\t%.4f\n", s.area)
	fmt.Fprintf(tw, "hull coverage\t%.1f%%\n", s.coverage*100)
	fmt.Fprintf(tw, "uv bounds\t%.3f,%.3f  %.3fx%.3f\n", s.bounds.X, s.bounds.Y, s.bounds.Width, s.bounds.Height)
	for _, c := range s.contours {
		fmt.Fprintf(tw, "%s\t%d\n", color.Cyan(c.name), c.points)
	}
	tw.Flush()
}
