package source

import "math"

// Point is a lon/lat pair.
type Point struct {
	Lon float64
	Lat float64
}

// Polygon is a list of linear rings. The first ring is the outer boundary,
// any further rings are holes.
type Polygon [][]Point

// Geometry is the coverage area of a source as a set of polygons.
type Geometry struct {
	Polygons []Polygon
}

// Centroid returns the area weighted centroid of the geometry, holes
// subtracted. Degenerate geometries fall back to the mean of their vertices.
// A nil geometry has its centroid at 0,0.
func (g *Geometry) Centroid() Point {
	if g == nil || len(g.Polygons) == 0 {
		return Point{}
	}

	var area, cx, cy float64
	for _, poly := range g.Polygons {
		for i, ring := range poly {
			a, x, y := ringMoments(ring)
			if a == 0 {
				continue
			}
			// Outer rings add area, holes remove it, regardless of winding.
			if a < 0 {
				a, x, y = -a, -x, -y
			}
			if i > 0 {
				a, x, y = -a, -x, -y
			}
			area += a
			cx += x
			cy += y
		}
	}

	if math.Abs(area) < 1e-12 {
		return g.vertexMean()
	}
	return Point{Lon: cx / (3 * area), Lat: cy / (3 * area)}
}

// ringMoments returns the signed area of the ring and the first moments
// used by the shoelace centroid formula (not yet divided by 3A).
func ringMoments(ring []Point) (area, mx, my float64) {
	n := len(ring)
	if n < 3 {
		return 0, 0, 0
	}
	var twiceArea float64
	for i := 0; i < n; i++ {
		p := ring[i]
		q := ring[(i+1)%n]
		cross := p.Lon*q.Lat - q.Lon*p.Lat
		twiceArea += cross
		mx += (p.Lon + q.Lon) * cross
		my += (p.Lat + q.Lat) * cross
	}
	return twiceArea / 2, mx / 2, my / 2
}

func (g *Geometry) vertexMean() Point {
	var sum Point
	var n int
	for _, poly := range g.Polygons {
		for _, ring := range poly {
			for _, p := range ring {
				sum.Lon += p.Lon
				sum.Lat += p.Lat
				n++
			}
		}
	}
	if n == 0 {
		return Point{}
	}
	return Point{Lon: sum.Lon / float64(n), Lat: sum.Lat / float64(n)}
}
