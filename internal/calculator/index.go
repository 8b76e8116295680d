package calculator

import (
	"math"
	"sort"
	"strings"

	"github.com/dhconnelly/rtreego"

	"nearby-listings/internal/models"
)

const pointTolerance = 1e-9

type indexedLandmark struct {
	pos  int
	lm   models.Landmark
	rect rtreego.Rect
}

func (l *indexedLandmark) Bounds() rtreego.Rect {
	return l.rect
}

type categoryTree struct {
	tree *rtreego.Rtree
	all  []*indexedLandmark
}

// Index holds one R-tree of landmarks per category (keyed case-insensitively).
// It is built once and is safe for concurrent reads.
type Index struct {
	trees map[string]*categoryTree
}

func NewIndex(landmarks []models.Landmark) *Index {
	grouped := make(map[string][]*indexedLandmark)
	for _, l := range landmarks {
		key := strings.ToLower(l.Category)
		item := &indexedLandmark{
			pos:  len(grouped[key]),
			lm:   l,
			rect: rtreego.Point{l.Loc.Lat, l.Loc.Lon}.ToRect(pointTolerance),
		}
		grouped[key] = append(grouped[key], item)
	}

	idx := &Index{trees: make(map[string]*categoryTree, len(grouped))}
	for key, items := range grouped {
		objs := make([]rtreego.Spatial, len(items))
		for i, it := range items {
			objs[i] = it
		}
		idx.trees[key] = &categoryTree{
			tree: rtreego.NewTree(2, 25, 50, objs...),
			all:  items,
		}
	}
	return idx
}

// searchBox returns a lat/lon box that contains every point within radius
// meters of c. ok is false when the box would wrap a pole or the antimeridian.
func searchBox(c models.Coordinate, radiusMeters float64) (rtreego.Rect, bool) {
	dLat := radiusMeters / EarthRadius * 180 / math.Pi
	dLat = dLat*1.01 + 1e-7

	minLat, maxLat := c.Lat-dLat, c.Lat+dLat
	if minLat < -90 || maxLat > 90 {
		return rtreego.Rect{}, false
	}
	edge := math.Max(math.Abs(minLat), math.Abs(maxLat))
	cos := math.Cos(toRadians(edge))
	if cos < 1e-6 {
		return rtreego.Rect{}, false
	}
	dLon := dLat / cos
	minLon, maxLon := c.Lon-dLon, c.Lon+dLon
	if minLon < -180 || maxLon > 180 {
		return rtreego.Rect{}, false
	}

	r, err := rtreego.NewRectFromPoints(rtreego.Point{minLat, minLon}, rtreego.Point{maxLat, maxLon})
	if err != nil {
		return rtreego.Rect{}, false
	}
	return r, true
}

func (ct *categoryTree) candidates(c models.Coordinate, radiusMeters float64) []*indexedLandmark {
	box, ok := searchBox(c, radiusMeters)
	if !ok {
		return ct.all
	}
	hits := ct.tree.SearchIntersect(box)
	out := make([]*indexedLandmark, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(*indexedLandmark))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].pos < out[j].pos })
	return out
}

// ComputeRadius behaves exactly like the package-level ComputeRadius but only
// measures landmarks whose bounding box can be within range.
func (idx *Index) ComputeRadius(ds *models.Dataset, category string, radiusMeters float64, onProgress ProgressCallback, logger LoggerCallback) []models.SearchResult {
	if idx == nil || ds == nil || !(radiusMeters >= 0) || math.IsInf(radiusMeters, 1) {
		return ComputeRadius(ds, category, radiusMeters, onProgress, logger)
	}
	ct, ok := idx.trees[strings.ToLower(category)]
	if !ok || len(ds.Subjects) == 0 {
		return nil
	}

	return scan(ds.Subjects, radiusMeters, onProgress, logger, func(s models.Subject, emit func(models.Landmark, float64)) {
		for _, c := range ct.candidates(s.Loc, radiusMeters) {
			if d := Distance(s.Loc, c.lm.Loc); d <= radiusMeters {
				emit(c.lm, d)
			}
		}
	})
}
