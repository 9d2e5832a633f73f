package cluster

import "math"

const (
	// maxLeafPoints is the number of points a leaf holds before it splits.
	maxLeafPoints = 10

	metersPerDegree = 111000.0
)

// Bounds is an inclusive latitude/longitude box.
type Bounds struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

func (b Bounds) contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

func (b Bounds) mid() (lat, lon float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLon + b.MaxLon) / 2
}

// Point is a station position tagged with its index in the station list.
type Point struct {
	Lat   float64
	Lon   float64
	Index int
}

// Cluster is either a single point (Count == 1) or the centroid of a group.
type Cluster struct {
	Lat     float64
	Lon     float64
	Count   int
	Indices []int
}

type quadrant int

const (
	nw quadrant = iota
	ne
	sw
	se
)

// QuadTree partitions points so they can be grouped by map zoom level.
type QuadTree struct {
	root *node
}

type node struct {
	bounds   Bounds
	depth    int
	maxDepth int
	points   []Point
	children *[4]*node // nil for leaves; indexed by quadrant
}

// NewQuadTree creates an empty tree covering bounds. Leaves never split below maxDepth.
func NewQuadTree(bounds Bounds, maxDepth int) *QuadTree {
	return &QuadTree{root: &node{bounds: bounds, maxDepth: maxDepth}}
}

// Insert adds p to the tree. Points outside the tree bounds are ignored and
// Insert reports false.
func (t *QuadTree) Insert(p Point) bool {
	return t.root.insert(p)
}

func (n *node) insert(p Point) bool {
	if !n.bounds.contains(p.Lat, p.Lon) {
		return false
	}
	if n.children != nil {
		return n.children[n.quadrantOf(p)].insert(p)
	}
	n.points = append(n.points, p)
	if len(n.points) > maxLeafPoints && n.depth < n.maxDepth {
		n.subdivide()
	}
	return true
}

func (n *node) quadrantOf(p Point) quadrant {
	midLat, midLon := n.bounds.mid()
	if p.Lat >= midLat {
		if p.Lon >= midLon {
			return ne
		}
		return nw
	}
	if p.Lon >= midLon {
		return se
	}
	return sw
}

func (n *node) subdivide() {
	b := n.bounds
	midLat, midLon := b.mid()
	child := func(cb Bounds) *node {
		return &node{bounds: cb, depth: n.depth + 1, maxDepth: n.maxDepth}
	}

	n.children = &[4]*node{
		nw: child(Bounds{MinLat: midLat, MaxLat: b.MaxLat, MinLon: b.MinLon, MaxLon: midLon}),
		ne: child(Bounds{MinLat: midLat, MaxLat: b.MaxLat, MinLon: midLon, MaxLon: b.MaxLon}),
		sw: child(Bounds{MinLat: b.MinLat, MaxLat: midLat, MinLon: b.MinLon, MaxLon: midLon}),
		se: child(Bounds{MinLat: b.MinLat, MaxLat: midLat, MinLon: midLon, MaxLon: b.MaxLon}),
	}

	// Points move into the child leaves without re-splitting them.
	for _, p := range n.points {
		c := n.children[n.quadrantOf(p)]
		c.points = append(c.points, p)
	}
	n.points = nil
}

// clusterContext carries per-query constants through the recursion.
type clusterContext struct {
	zoom               float64
	minDistanceMeters  float64
	metersPerDegreeLat float64
	metersPerDegreeLon float64
}

// Clusters groups the tree's points for the given zoom level. minDistance is
// the smallest on-screen separation worth showing, in degrees.
//
// At zoom 10 and above every point is returned individually. Below zoom 8,
// subtrees holding 100 points or fewer collapse into a single cluster.
func (t *QuadTree) Clusters(zoom, minDistance float64) []Cluster {
	midLat, _ := t.root.bounds.mid()
	ctx := clusterContext{
		zoom:               zoom,
		minDistanceMeters:  minDistance * metersPerDegree,
		metersPerDegreeLat: metersPerDegree,
		metersPerDegreeLon: metersPerDegree * math.Cos(midLat*math.Pi/180),
	}

	var clusters []Cluster
	t.root.collect(ctx, &clusters)
	return clusters
}

func (n *node) collect(ctx clusterContext, out *[]Cluster) {
	if n.children == nil {
		n.collectLeaf(ctx, out)
		return
	}

	if ctx.zoom < 8 && n.count() <= 100 {
		*out = append(*out, n.aggregate())
		return
	}
	for _, c := range n.children {
		c.collect(ctx, out)
	}
}

func (n *node) collectLeaf(ctx clusterContext, out *[]Cluster) {
	width := (n.bounds.MaxLon - n.bounds.MinLon) * ctx.metersPerDegreeLon
	height := (n.bounds.MaxLat - n.bounds.MinLat) * ctx.metersPerDegreeLat
	size := math.Hypot(width, height)

	if ctx.zoom >= 10 || len(n.points) <= 1 || size < ctx.minDistanceMeters*0.5 {
		for _, p := range n.points {
			*out = append(*out, Cluster{Lat: p.Lat, Lon: p.Lon, Count: 1, Indices: []int{p.Index}})
		}
		return
	}
	*out = append(*out, n.aggregate())
}

func (n *node) count() int {
	if n.children == nil {
		return len(n.points)
	}
	total := 0
	for _, c := range n.children {
		total += c.count()
	}
	return total
}

// aggregate merges every point under n into one centroid cluster.
func (n *node) aggregate() Cluster {
	var c Cluster
	n.walk(func(p Point) {
		c.Lat += p.Lat
		c.Lon += p.Lon
		c.Indices = append(c.Indices, p.Index)
		c.Count++
	})
	if c.Count > 0 {
		c.Lat /= float64(c.Count)
		c.Lon /= float64(c.Count)
	}
	return c
}

func (n *node) walk(fn func(Point)) {
	if n.children == nil {
		for _, p := range n.points {
			fn(p)
		}
		return
	}
	for _, c := range n.children {
		c.walk(fn)
	}
}
