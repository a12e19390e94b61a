package metric

import (
	"sort"

	apperrors "dialog-agent/errors"
)

// Curve maps the weariness of an answer before it is used to its weariness after.
type Curve interface {
	Apply(weariness float32) float32
}

var _ Curve = (*LinearCurve)(nil)

// LinearCurve interpolates linearly between (x, y) points sorted by x and is
// flat beyond the first and last point.
type LinearCurve struct {
	xs []float32
	ys []float32
}

func NewLinearCurve(points [][2]float64) (*LinearCurve, error) {
	if len(points) == 0 {
		return nil, apperrors.WrapError(apperrors.ErrInvalidInput, "curve needs at least one point")
	}
	sorted := append([][2]float64(nil), points...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i][0] < sorted[j][0] })

	c := &LinearCurve{xs: make([]float32, len(sorted)), ys: make([]float32, len(sorted))}
	for i, p := range sorted {
		c.xs[i], c.ys[i] = float32(p[0]), float32(p[1])
	}
	return c, nil
}

func (c *LinearCurve) Apply(x float32) float32 {
	n := len(c.xs)
	if x <= c.xs[0] {
		return c.ys[0]
	}
	if x >= c.xs[n-1] {
		return c.ys[n-1]
	}
	i := sort.Search(n, func(i int) bool { return c.xs[i] >= x })
	x0, x1 := c.xs[i-1], c.xs[i]
	y0, y1 := c.ys[i-1], c.ys[i]
	if x1 == x0 {
		return y1
	}
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}
