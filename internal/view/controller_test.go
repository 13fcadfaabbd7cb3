package view

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facewarp/pkg/geometry"
)

func pt(x, y float64) geometry.Point2D {
	return geometry.Point2D{X: x, Y: y}
}

func TestZoomToFitScenario(t *testing.T) {
	c := NewController()
	c.SetSurfaceSize(800, 1600)
	c.FitToViewport(400, 400)

	s := c.Snapshot()
	assert.InDelta(t, 0.25, s.Scale, 1e-12)
	assert.Zero(t, s.PanX)
	assert.Zero(t, s.PanY)
}

func TestFitKeepsCornersInsideViewport(t *testing.T) {
	tests := []struct {
		name           string
		sw, sh, vw, vh float64
	}{
		{"same aspect shrink", 800, 400, 400, 200},
		{"same aspect grow", 100, 150, 400, 600},
		{"square", 1024, 1024, 400, 400},
		{"taller surface", 800, 1600, 400, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController()
			c.SetSurfaceSize(tt.sw, tt.sh)
			// Start from an arbitrary view.
			c.ZoomBy(3, pt(17, 5))
			c.PointerDown(pt(0, 0))
			c.PointerMove(pt(-40, 90))
			c.PointerUp(pt(-40, 90))

			c.FitToViewport(tt.vw, tt.vh)
			for _, corner := range []geometry.Point2D{pt(0, 0), pt(tt.sw, 0), pt(0, tt.sh), pt(tt.sw, tt.sh)} {
				p := c.TransformPoint(corner.X, corner.Y)
				assert.GreaterOrEqual(t, p.X, -1e-9)
				assert.GreaterOrEqual(t, p.Y, -1e-9)
				assert.LessOrEqual(t, p.X, tt.vw+1e-9)
				assert.LessOrEqual(t, p.Y, tt.vh+1e-9)
			}
		})
	}
}

func TestFitWithoutSurfaceIsIgnored(t *testing.T) {
	c := NewController()
	calls := 0
	c.OnChange(func(Snapshot) { calls++ })
	c.FitToViewport(400, 400)
	assert.Equal(t, 0, calls)
	assert.Equal(t, 1.0, c.Snapshot().Scale)
}

func TestPanStateMachine(t *testing.T) {
	c := NewController()
	assert.Equal(t, Idle, c.State())

	c.PointerMove(pt(50, 50))
	assert.Equal(t, Snapshot{Scale: 1}, c.Snapshot(), "moves while idle are ignored")

	c.PointerDown(pt(10, 10))
	assert.Equal(t, Panning, c.State())

	c.PointerMove(pt(15, 20))
	s := c.Snapshot()
	assert.Equal(t, 5.0, s.PanX)
	assert.Equal(t, 10.0, s.PanY)
	assert.Equal(t, 1.0, s.Scale, "panning never changes scale")

	c.PointerMove(pt(20, 20))
	s = c.Snapshot()
	assert.Equal(t, 10.0, s.PanX)
	assert.Equal(t, 10.0, s.PanY)

	c.PointerUp(pt(20, 20))
	assert.Equal(t, Idle, c.State())

	c.PointerMove(pt(100, 100))
	assert.Equal(t, 10.0, c.Snapshot().PanX)
}

func TestWheelDirection(t *testing.T) {
	c := NewController()
	c.Wheel(-120, pt(0, 0))
	assert.InDelta(t, 1.1, c.Snapshot().Scale, 1e-12)

	c.Reset()
	c.Wheel(3, pt(0, 0))
	assert.InDelta(t, 0.9, c.Snapshot().Scale, 1e-12)

	c.Reset()
	c.Wheel(0, pt(0, 0))
	assert.InDelta(t, 0.9, c.Snapshot().Scale, 1e-12, "a zero delta zooms out")
}

func TestZoomFromPannedState(t *testing.T) {
	c := NewController()
	c.ZoomBy(2, pt(0, 0))
	c.PointerDown(pt(0, 0))
	c.PointerMove(pt(30, -20))
	c.PointerUp(pt(30, -20))

	// Surface point under (50,40) is ((50-30)/2, (40+20)/2) = (10,30).
	c.Wheel(-1, pt(50, 40))
	s := c.Snapshot()
	assert.InDelta(t, 2.2, s.Scale, 1e-12)
	assert.InDelta(t, 30-10*0.1*2, s.PanX, 1e-9)
	assert.InDelta(t, -20-30*0.1*2, s.PanY, 1e-9)

	q := c.TransformPoint(10, 30)
	assert.InDelta(t, 50, q.X, 1e-9)
	assert.InDelta(t, 40, q.Y, 1e-9)
}

func TestWheelFromInitialState(t *testing.T) {
	c := NewController()
	c.Wheel(-1, pt(100, 50))
	s := c.Snapshot()
	// panX' = panX - offsetX*(f-1)*scale
	assert.InDelta(t, -10, s.PanX, 1e-9)
	assert.InDelta(t, -5, s.PanY, 1e-9)
}

func TestWheelKeepsPointUnderCursor(t *testing.T) {
	c := NewController()
	c.ZoomBy(2, pt(0, 0))
	c.PointerDown(pt(0, 0))
	c.PointerMove(pt(30, -20))
	c.PointerUp(pt(30, -20))

	cursor := pt(123, 77)
	for _, delta := range []float64{-1, -1, 1, -1, 1, 1, 1} {
		before := c.InversePoint(cursor.X, cursor.Y)
		c.Wheel(delta, cursor)
		after := c.InversePoint(cursor.X, cursor.Y)
		assert.InDelta(t, before.X, after.X, 1e-9)
		assert.InDelta(t, before.Y, after.Y, 1e-9)
	}
}

func TestScaleIsClamped(t *testing.T) {
	c := NewController()
	for i := 0; i < 200; i++ {
		c.Wheel(1, pt(5, 5))
	}
	assert.Equal(t, MinScale, c.Snapshot().Scale)
	assert.NotPanics(t, func() { c.InversePoint(10, 10) })

	for i := 0; i < 400; i++ {
		c.Wheel(-1, pt(5, 5))
	}
	assert.Equal(t, MaxScale, c.Snapshot().Scale)

	c.ZoomBy(0, pt(0, 0))
	assert.Equal(t, MaxScale, c.Snapshot().Scale)
}

func TestDoubleClickResets(t *testing.T) {
	c := NewController()
	c.SetSurfaceSize(640, 480)
	c.FitToViewport(200, 200)
	c.Wheel(-1, pt(40, 40))
	c.PointerDown(pt(1, 1))
	c.PointerMove(pt(9, 4))

	c.DoubleClick()
	assert.Equal(t, Snapshot{Scale: 1, State: Idle}, c.Snapshot())
	c.DoubleClick()
	assert.Equal(t, Snapshot{Scale: 1, State: Idle}, c.Snapshot())
}

func TestTransformAndInverse(t *testing.T) {
	c := NewController()
	c.ZoomBy(2, pt(0, 0))
	c.PointerDown(pt(0, 0))
	c.PointerMove(pt(10, 20))

	p := c.TransformPoint(3, 4)
	assert.InDelta(t, 16, p.X, 1e-12)
	assert.InDelta(t, 28, p.Y, 1e-12)

	q := c.InversePoint(p.X, p.Y)
	assert.InDelta(t, 3, q.X, 1e-12)
	assert.InDelta(t, 4, q.Y, 1e-12)

	assert.Equal(t, geometry.ScaleTranslate(2, 10, 20), c.Matrix())
}

func TestEveryMutationNotifies(t *testing.T) {
	c := NewController()
	c.SetSurfaceSize(100, 100)
	var got []Snapshot
	c.OnChange(func(s Snapshot) { got = append(got, s) })

	c.PointerDown(pt(0, 0))
	c.PointerMove(pt(1, 1))
	c.PointerUp(pt(1, 1))
	c.Wheel(-1, pt(0, 0))
	c.DoubleClick()
	c.FitToViewport(50, 50)

	require.Len(t, got, 6)
	assert.Equal(t, Panning, got[0].State)
	assert.Equal(t, 1.0, got[1].PanX)
	assert.Equal(t, Idle, got[2].State)
	assert.InDelta(t, 0.5, got[5].Scale, 1e-12)
}

func TestListenerMayReadController(t *testing.T) {
	c := NewController()
	var seen float64
	c.OnChange(func(Snapshot) { seen = c.Matrix().A })
	c.Wheel(-1, pt(0, 0))
	assert.InDelta(t, 1.1, seen, 1e-12)
}

func TestHooksConsumeEvents(t *testing.T) {
	c := NewController()
	var wheelAt geometry.Point2D
	c.SetHooks(Hooks{
		Wheel: func(_ float64, p geometry.Point2D, m geometry.AffineTransform) bool {
			inv, err := m.Inverse()
			require.NoError(t, err)
			wheelAt = inv.Apply(p)
			return true
		},
		PointerDown: func(geometry.Point2D, geometry.AffineTransform) bool { return false },
	})

	c.Wheel(-1, pt(7, 8))
	assert.Equal(t, 1.0, c.Snapshot().Scale, "consumed")
	assert.Equal(t, pt(7, 8), wheelAt)

	c.PointerDown(pt(0, 0))
	assert.Equal(t, Panning, c.State(), "hook declined, default handling ran")
}

func TestHitTest(t *testing.T) {
	c := NewController()
	c.ZoomBy(2, pt(0, 0))
	points := []geometry.Point2D{pt(10, 10), pt(50, 50), pt(12, 10)}

	idx, ok := c.HitTest(points, pt(25, 20), 3)
	require.True(t, ok)
	assert.Equal(t, 2, idx)

	_, ok = c.HitTest(points, pt(300, 300), 3)
	assert.False(t, ok)
}

func TestConcurrentEvents(t *testing.T) {
	c := NewController()
	c.SetSurfaceSize(1000, 1000)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				switch j % 4 {
				case 0:
					c.PointerDown(pt(float64(i), float64(j)))
				case 1:
					c.PointerMove(pt(float64(j), float64(i)))
				case 2:
					c.Wheel(float64(j%3-1), pt(10, 10))
				default:
					c.FitToViewport(400, 300)
				}
				_ = c.TransformPoint(1, 1)
			}
		}(i)
	}
	wg.Wait()

	s := c.Snapshot()
	assert.GreaterOrEqual(t, s.Scale, MinScale)
	assert.LessOrEqual(t, s.Scale, MaxScale)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Idle", Idle.String())
	assert.Equal(t, "Panning", Panning.String())
	assert.Equal(t, "State(7)", State(7).String())
}
