package curveplot

import "math"

// Area is a rectangle in data coordinates.
type Area struct {
	Left   float64
	Right  float64
	Bottom float64
	Top    float64
}

func (a Area) valid() bool {
	return a.Right > a.Left && a.Top > a.Bottom
}

func (a Area) contains(p Point) bool {
	return p.X >= a.Left && p.X <= a.Right && p.Y >= a.Bottom && p.Y <= a.Top
}

func (a Area) capPoint(p Point) Point {
	return Point{
		X: Clamp(p.X, a.Left, a.Right),
		Y: Clamp(p.Y, a.Bottom, a.Top),
	}
}

// Bezier control points around a curve point.
type controlPoints struct {
	previous Point
	next     Point
}

// splineCurve computes the control points of current so that the curve passes
// smoothly from previous to next. Same construction as the Chart.js line
// element.
func splineCurve(previous, current, next Point, tension float64) controlPoints {
	d01 := math.Hypot(current.X-previous.X, current.Y-previous.Y)
	d12 := math.Hypot(next.X-current.X, next.Y-current.Y)

	s01 := d01 / (d01 + d12)
	s12 := d12 / (d01 + d12)

	// Coincident points give 0/0.
	if math.IsNaN(s01) {
		s01 = 0
	}
	if math.IsNaN(s12) {
		s12 = 0
	}

	fa := tension * s01
	fb := tension * s12

	return controlPoints{
		previous: Point{
			X: current.X - fa*(next.X-previous.X),
			Y: current.Y - fa*(next.Y-previous.Y),
		},
		next: Point{
			X: current.X + fb*(next.X-previous.X),
			Y: current.Y + fb*(next.Y-previous.Y),
		},
	}
}

// SmoothCurve turns a polyline into a sampled cubic Bezier curve with the given
// tension. When area is valid, distances are measured in area-normalized
// coordinates and control points of points inside the area are capped to it.
// samples is the number of steps per segment. The input points are always on
// the output curve.
func SmoothCurve(points []Point, tension float64, area Area, samples int) []Point {
	if tension == 0 || len(points) < 3 || samples < 2 {
		return append([]Point(nil), points...)
	}

	toUnit, fromUnit := identityPoint, identityPoint
	if area.valid() {
		w := area.Right - area.Left
		h := area.Top - area.Bottom
		toUnit = func(p Point) Point {
			return Point{X: (p.X - area.Left) / w, Y: (p.Y - area.Bottom) / h}
		}
		fromUnit = func(p Point) Point {
			return Point{X: p.X*w + area.Left, Y: p.Y*h + area.Bottom}
		}
	}

	n := len(points)
	cps := make([]controlPoints, n)
	for i := range points {
		previous := points[Max(i-1, 0)]
		next := points[Min(i+1, n-1)]
		cp := splineCurve(toUnit(previous), toUnit(points[i]), toUnit(next), tension)
		cps[i] = controlPoints{previous: fromUnit(cp.previous), next: fromUnit(cp.next)}
	}

	if area.valid() {
		for i, p := range points {
			if !area.contains(p) {
				continue
			}
			if i > 0 && area.contains(points[i-1]) {
				cps[i].previous = area.capPoint(cps[i].previous)
			}
			if i < n-1 && area.contains(points[i+1]) {
				cps[i].next = area.capPoint(cps[i].next)
			}
		}
	}

	curve := make([]Point, 0, (n-1)*samples+1)
	curve = append(curve, points[0])
	for i := 0; i < n-1; i++ {
		p0, p1 := points[i], points[i+1]
		c0, c1 := cps[i].next, cps[i+1].previous
		for s := 1; s < samples; s++ {
			curve = append(curve, cubicBezier(p0, c0, c1, p1, float64(s)/float64(samples)))
		}
		curve = append(curve, p1)
	}

	return curve
}

func cubicBezier(p0, c0, c1, p1 Point, t float64) Point {
	u := 1 - t
	a := u * u * u
	b := 3 * u * u * t
	c := 3 * u * t * t
	d := t * t * t
	return Point{
		X: a*p0.X + b*c0.X + c*c1.X + d*p1.X,
		Y: a*p0.Y + b*c0.Y + c*c1.Y + d*p1.Y,
	}
}

func identityPoint(p Point) Point { return p }

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// clipSegment clips the segment p-q to the area (Liang-Barsky). ok is false
// when no part of the segment is inside.
func clipSegment(p, q Point, area Area) (Point, Point, bool) {
	dx := q.X - p.X
	dy := q.Y - p.Y
	t0, t1 := 0.0, 1.0

	edges := [4][2]float64{
		{-dx, p.X - area.Left},
		{dx, area.Right - p.X},
		{-dy, p.Y - area.Bottom},
		{dy, area.Top - p.Y},
	}
	for _, edge := range edges {
		direction, distance := edge[0], edge[1]
		if direction == 0 {
			if distance < 0 {
				return Point{}, Point{}, false
			}
			continue
		}

		t := distance / direction
		if direction < 0 {
			if t > t1 {
				return Point{}, Point{}, false
			}
			t0 = math.Max(t0, t)
		} else {
			if t < t0 {
				return Point{}, Point{}, false
			}
			t1 = math.Min(t1, t)
		}
	}

	a, b := p, q
	if t0 > 0 {
		a = area.capPoint(Point{X: p.X + t0*dx, Y: p.Y + t0*dy})
	}
	if t1 < 1 {
		b = area.capPoint(Point{X: p.X + t1*dx, Y: p.Y + t1*dy})
	}
	return a, b, true
}

// clipPolyline cuts a polyline to the area. Every part that leaves the area
// ends a piece; pieces are returned in order. An invalid area leaves the
// polyline whole.
func clipPolyline(points []Point, area Area) [][]Point {
	if len(points) == 0 {
		return nil
	}
	if !area.valid() {
		return [][]Point{points}
	}
	if len(points) == 1 {
		if area.contains(points[0]) {
			return [][]Point{points}
		}
		return nil
	}

	var pieces [][]Point
	var current []Point
	flush := func() {
		if len(current) > 1 {
			pieces = append(pieces, current)
		}
		current = nil
	}

	for i := 1; i < len(points); i++ {
		a, b, ok := clipSegment(points[i-1], points[i], area)
		if !ok {
			flush()
			continue
		}

		if len(current) == 0 || current[len(current)-1] != a {
			flush()
			current = append(current, a)
		}
		current = append(current, b)

		if b != points[i] {
			flush()
		}
	}
	flush()

	return pieces
}
