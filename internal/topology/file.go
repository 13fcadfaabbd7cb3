package topology

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"facewarp/pkg/geometry"
)

// fileFormat is the YAML layout of a topology file:
//
//	uv:
//	  - [0.5, 0.03]
//	triangles:
//	  - [0, 1, 2]
//	contours:
//	  faceOval: [0, 1, 2, 0]
type fileFormat struct {
	UV        [][]float64      `yaml:"uv"`
	Triangles [][]int          `yaml:"triangles"`
	Contours  map[string][]int `yaml:"contours,omitempty"`
}

// Load reads and validates a topology in YAML form.
func Load(r io.Reader) (*Topology, error) {
	var f fileFormat
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode topology: %w", err)
	}

	uv := make([]geometry.Point2D, len(f.UV))
	for i, p := range f.UV {
		if len(p) != 2 {
			return nil, fmt.Errorf("%w: uv[%d] has %d components, want 2", ErrInvalidTopology, i, len(p))
		}
		uv[i] = geometry.Point2D{X: p[0], Y: p[1]}
	}

	triangles := make([]Triangle, len(f.Triangles))
	for i, t := range f.Triangles {
		if len(t) != 3 {
			return nil, fmt.Errorf("%w: triangle %d has %d indices, want 3", ErrInvalidTopology, i, len(t))
		}
		triangles[i] = Triangle{t[0], t[1], t[2]}
	}

	return New(uv, triangles, f.Contours)
}

// LoadFile reads a topology from a YAML file.
func LoadFile(path string) (*Topology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteYAML writes the topology in the format read by Load.
func (t *Topology) WriteYAML(w io.Writer) error {
	f := fileFormat{
		UV:        make([][]float64, len(t.uv)),
		Triangles: make([][]int, len(t.triangles)),
		Contours:  t.Contours(),
	}
	for i, p := range t.uv {
		f.UV[i] = []float64{p.X, p.Y}
	}
	for i, tri := range t.triangles {
		f.Triangles[i] = []int{tri[0], tri[1], tri[2]}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&f); err != nil {
		return fmt.Errorf("encode topology: %w", err)
	}
	return enc.Close()
}

// Resolve returns the topology stored at path, or the canonical one when
// path is empty.
func Resolve(path string) (*Topology, error) {
	if path == "" {
		return Canonical(), nil
	}
	return LoadFile(path)
}
