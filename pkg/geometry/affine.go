package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateMatrix is returned when a matrix cannot be inverted or a
// point correspondence does not determine a unique transform.
var ErrDegenerateMatrix = errors.New("degenerate matrix")

// degenerateDet is the determinant magnitude below which a matrix is
// treated as singular.
const degenerateDet = 1e-10

// AffineTransform represents a 2x3 affine transformation matrix.
// [a b tx]
// [c d ty]
type AffineTransform struct {
	A, B, TX float64
	C, D, TY float64
}

// Identity returns the identity transform.
func Identity() AffineTransform {
	return AffineTransform{A: 1, D: 1}
}

// Translation returns a translation transform.
func Translation(tx, ty float64) AffineTransform {
	return AffineTransform{A: 1, D: 1, TX: tx, TY: ty}
}

// Scale returns a scaling transform.
func Scale(sx, sy float64) AffineTransform {
	return AffineTransform{A: sx, D: sy}
}

// ScaleTranslate returns the uniform scale s followed by a translation,
// which is the shape of every pan/zoom view matrix.
func ScaleTranslate(s, tx, ty float64) AffineTransform {
	return AffineTransform{A: s, D: s, TX: tx, TY: ty}
}

// Apply applies the transform to a point.
func (t AffineTransform) Apply(p Point2D) Point2D {
	return Point2D{
		X: t.A*p.X + t.B*p.Y + t.TX,
		Y: t.C*p.X + t.D*p.Y + t.TY,
	}
}

// Compose returns this transform composed with another (this * other).
// The result applies other first.
func (t AffineTransform) Compose(other AffineTransform) AffineTransform {
	return AffineTransform{
		A:  t.A*other.A + t.B*other.C,
		B:  t.A*other.B + t.B*other.D,
		TX: t.A*other.TX + t.B*other.TY + t.TX,
		C:  t.C*other.A + t.D*other.C,
		D:  t.C*other.B + t.D*other.D,
		TY: t.C*other.TX + t.D*other.TY + t.TY,
	}
}

// Determinant returns the determinant of the linear part.
func (t AffineTransform) Determinant() float64 {
	return t.A*t.D - t.B*t.C
}

// Inverse returns the inverse transform. It fails with ErrDegenerateMatrix
// when the determinant is numerically zero.
func (t AffineTransform) Inverse() (AffineTransform, error) {
	det := t.Determinant()
	if math.Abs(det) < degenerateDet || math.IsNaN(det) {
		return AffineTransform{}, fmt.Errorf("invert (det=%g): %w", det, ErrDegenerateMatrix)
	}

	invDet := 1.0 / det
	return AffineTransform{
		A:  t.D * invDet,
		B:  -t.B * invDet,
		TX: (t.B*t.TY - t.D*t.TX) * invDet,
		C:  -t.C * invDet,
		D:  t.A * invDet,
		TY: (t.C*t.TX - t.A*t.TY) * invDet,
	}, nil
}

// Coefficients returns the matrix as [a b c d e f] where
// x' = a*x + c*y + e and y' = b*x + d*y + f.
func (t AffineTransform) Coefficients() [6]float64 {
	return [6]float64{t.A, t.C, t.B, t.D, t.TX, t.TY}
}

// FromCoefficients builds a transform from [a b c d e f], the inverse of
// Coefficients.
func FromCoefficients(m [6]float64) AffineTransform {
	return AffineTransform{
		A: m[0], B: m[2], TX: m[4],
		C: m[1], D: m[3], TY: m[5],
	}
}

// FitAffine computes the unique affine transform mapping each src vertex
// onto the matching dst vertex. The source triangle must not be degenerate.
func FitAffine(src, dst [3]Point2D) (AffineTransform, error) {
	if math.Abs(SignedArea(src[0], src[1], src[2])) < degenerateDet {
		return AffineTransform{}, fmt.Errorf("fit affine: collinear source points: %w", ErrDegenerateMatrix)
	}

	// Build matrix equation: [x', y'] = [a, b, tx; c, d, ty] * [x, y, 1]
	A := mat.NewDense(6, 6, nil)
	B := mat.NewVecDense(6, nil)

	for i := 0; i < 3; i++ {
		x, y := src[i].X, src[i].Y
		xp, yp := dst[i].X, dst[i].Y

		// x' = a*x + b*y + tx
		A.Set(i*2, 0, x)
		A.Set(i*2, 1, y)
		A.Set(i*2, 2, 1)
		B.SetVec(i*2, xp)

		// y' = c*x + d*y + ty
		A.Set(i*2+1, 3, x)
		A.Set(i*2+1, 4, y)
		A.Set(i*2+1, 5, 1)
		B.SetVec(i*2+1, yp)
	}

	var params mat.VecDense
	if err := params.SolveVec(A, B); err != nil {
		return AffineTransform{}, fmt.Errorf("fit affine: %v: %w", err, ErrDegenerateMatrix)
	}

	return AffineTransform{
		A:  params.AtVec(0),
		B:  params.AtVec(1),
		TX: params.AtVec(2),
		C:  params.AtVec(3),
		D:  params.AtVec(4),
		TY: params.AtVec(5),
	}, nil
}
