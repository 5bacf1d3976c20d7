// Package geo answers a single question for the static loader: which named
// region, if any, contains a stop's coordinates. Region boundaries are
// deliberately coarse; they only need to separate the boroughs and their
// surrounding commuter territory, not trace shorelines.
package geo

import (
	"fmt"

	"github.com/tidwall/rtree"
	"github.com/twpayne/go-polyline"
)

// Boundaries are stored as encoded polylines (lat, lon order) and decoded at
// construction time. Manhattan precedes Brooklyn and Queens so that stations
// near the East River resolve to Manhattan first.
var regionPolylines = []struct {
	name    string
	encoded string
}{
	{"Manhattan", "_flwF~_xbM_q@gxGosE_q@gmEgtDg{CgpAosEvj@wkGwnC~WvnCnaDnoBnlFnvAvvI~jHnpI~p@"},
	{"Bronx", "gy|wFvlgbM?woc@wjY??voc@vjY?"},
	{"Staten Island", "gt`vF~{fdM?ock@o~`@??nck@n~`@?"},
	{"Brooklyn", "oyrvFf||bM?obd@_sN?gxG~xF_rGf{CnsEnwHf{CvyE~xF~xFntL?"},
	{"Queens", "_~lvFnulbM?odr@_xq@??nh\\~xF~uJfbC~cIvze@?"},
}

type region struct {
	name   string
	order  int
	coords [][]float64
}

// Index answers point-in-region queries. Safe for concurrent use after
// construction; it is never mutated afterwards.
type Index struct {
	tree rtree.RTree
}

// NewIndex decodes the embedded region boundaries and builds a bounding-box
// index over them.
func NewIndex() (*Index, error) {
	idx := &Index{}
	for i, rp := range regionPolylines {
		coords, _, err := polyline.DecodeCoords([]byte(rp.encoded))
		if err != nil {
			return nil, fmt.Errorf("decoding boundary for %s: %w", rp.name, err)
		}
		if len(coords) < 4 {
			return nil, fmt.Errorf("boundary for %s has too few points", rp.name)
		}
		minLat, minLon := coords[0][0], coords[0][1]
		maxLat, maxLon := minLat, minLon
		for _, c := range coords[1:] {
			if c[0] < minLat {
				minLat = c[0]
			}
			if c[0] > maxLat {
				maxLat = c[0]
			}
			if c[1] < minLon {
				minLon = c[1]
			}
			if c[1] > maxLon {
				maxLon = c[1]
			}
		}
		idx.tree.Insert(
			[2]float64{minLat, minLon},
			[2]float64{maxLat, maxLon},
			&region{name: rp.name, order: i, coords: coords},
		)
	}
	return idx, nil
}

// Lookup returns the name of the region containing (lat, lon), or false if
// no region contains the point. When boundaries overlap, the earliest
// defined region wins.
func (idx *Index) Lookup(lat, lon float64) (string, bool) {
	var best *region
	idx.tree.Search(
		[2]float64{lat, lon},
		[2]float64{lat, lon},
		func(min, max [2]float64, data interface{}) bool {
			r := data.(*region)
			if containsPoint(r.coords, lat, lon) {
				if best == nil || r.order < best.order {
					best = r
				}
			}
			return true
		},
	)
	if best == nil {
		return "", false
	}
	return best.name, true
}

// containsPoint runs a standard ray cast over the polygon's edges.
func containsPoint(coords [][]float64, lat, lon float64) bool {
	inside := false
	n := len(coords)
	j := n - 1
	for i := 0; i < n; i++ {
		yi, xi := coords[i][0], coords[i][1]
		yj, xj := coords[j][0], coords[j][1]
		if (yi > lat) != (yj > lat) &&
			lon < (xj-xi)*(lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}
