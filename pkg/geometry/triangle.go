package geometry

// SignedArea returns twice the signed area of triangle abc. It is positive
// when a, b, c turn clockwise in image space (y pointing down).
func SignedArea(a, b, c Point2D) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// Barycentric returns the barycentric weights of p relative to triangle abc.
// ok is false when the triangle is degenerate.
func Barycentric(p, a, b, c Point2D) (wa, wb, wc float64, ok bool) {
	area := SignedArea(a, b, c)
	if area == 0 {
		return 0, 0, 0, false
	}
	wa = SignedArea(b, c, p) / area
	wb = SignedArea(c, a, p) / area
	wc = 1 - wa - wb
	return wa, wb, wc, true
}

// InTriangle reports whether p lies inside triangle abc or within eps (in
// barycentric units) of its edges.
func InTriangle(p, a, b, c Point2D, eps float64) bool {
	wa, wb, wc, ok := Barycentric(p, a, b, c)
	if !ok {
		return false
	}
	return wa >= -eps && wb >= -eps && wc >= -eps
}
