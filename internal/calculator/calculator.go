package calculator

import (
	"fmt"
	"math"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mmcloughlin/geohash"

	"nearby-listings/internal/models"
)

type ProgressCallback func(current, total int, msg string)
type LoggerCallback func(msg string)

// GeohashPrecision is the cell size attached to every result (~150m cells).
const GeohashPrecision = 7

// FilterCategory returns the landmarks whose category matches, ignoring case.
// Load order is preserved.
func FilterCategory(landmarks []models.Landmark, category string) []models.Landmark {
	var out []models.Landmark
	for _, l := range landmarks {
		if strings.EqualFold(l.Category, category) {
			out = append(out, l)
		}
	}
	return out
}

// Categories returns the distinct landmark categories. The first spelling seen
// wins when labels differ only in case.
func Categories(landmarks []models.Landmark) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range landmarks {
		key := strings.ToLower(l.Category)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l.Category)
	}
	return out
}

func newResult(s models.Subject, l models.Landmark, d float64) models.SearchResult {
	return models.SearchResult{
		Subject:  s,
		Landmark: l,
		Distance: d,
		Geohash:  geohash.EncodeWithPrecision(s.Loc.Lat, s.Loc.Lon, GeohashPrecision),
	}
}

// chunks splits [0,total) into at most runtime.NumCPU() contiguous ranges.
func chunks(total int) [][2]int {
	if total == 0 {
		return nil
	}
	numCPU := runtime.NumCPU()
	if numCPU < 1 {
		numCPU = 1
	}
	chunkSize := (total + numCPU - 1) / numCPU

	var out [][2]int
	for start := 0; start < total; start += chunkSize {
		end := start + chunkSize
		if end > total {
			end = total
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

// ComputeRadius returns every (subject, landmark) pair within radiusMeters
// (inclusive) for landmarks of the given category. Results are ordered by
// subject, then landmark, in load order. Unknown categories, empty inputs and
// negative or NaN radii produce an empty result.
func ComputeRadius(ds *models.Dataset, category string, radiusMeters float64, onProgress ProgressCallback, logger LoggerCallback) []models.SearchResult {
	if ds == nil || !(radiusMeters >= 0) {
		return nil
	}
	landmarks := FilterCategory(ds.Landmarks, category)
	if len(landmarks) == 0 || len(ds.Subjects) == 0 {
		return nil
	}

	return scan(ds.Subjects, radiusMeters, onProgress, logger, func(s models.Subject, emit func(models.Landmark, float64)) {
		for _, l := range landmarks {
			if d := Distance(s.Loc, l.Loc); d <= radiusMeters {
				emit(l, d)
			}
		}
	})
}

type subjectScanner func(s models.Subject, emit func(models.Landmark, float64))

// scan fans the subjects out over the CPUs and concatenates per-chunk results
// in chunk order so the output does not depend on scheduling.
func scan(subjects []models.Subject, radiusMeters float64, onProgress ProgressCallback, logger LoggerCallback, fn subjectScanner) []models.SearchResult {
	parts := chunks(len(subjects))
	perChunk := make([][]models.SearchResult, len(parts))
	total := len(subjects)

	if logger != nil {
		logger(fmt.Sprintf("Starting radius search (%.0fm) over %d subjects in %d chunks", radiusMeters, total, len(parts)))
	}

	var wg sync.WaitGroup
	var progressMu sync.Mutex
	var processed int64
	for i, p := range parts {
		wg.Add(1)
		go func(i, s, e int) {
			defer wg.Done()
			var local []models.SearchResult
			for idx := s; idx < e; idx++ {
				subj := subjects[idx]
				fn(subj, func(l models.Landmark, d float64) {
					local = append(local, newResult(subj, l, d))
				})
			}
			perChunk[i] = local
			if onProgress != nil {
				progressMu.Lock()
				onProgress(int(atomic.AddInt64(&processed, int64(e-s))), total, "")
				progressMu.Unlock()
			}
		}(i, p[0], p[1])
	}
	wg.Wait()

	var all []models.SearchResult
	for _, c := range perChunk {
		all = append(all, c...)
	}
	if logger != nil {
		logger(fmt.Sprintf("Radius search completed: %d matches.", len(all)))
	}
	return all
}

// ComputeNearest pairs every subject with its closest landmark of the given
// category. Ties go to the landmark loaded first.
func ComputeNearest(ds *models.Dataset, category string, onProgress ProgressCallback, logger LoggerCallback) []models.SearchResult {
	if ds == nil {
		return nil
	}
	landmarks := FilterCategory(ds.Landmarks, category)
	total := len(ds.Subjects)
	if len(landmarks) == 0 || total == 0 {
		return nil
	}

	results := make([]models.SearchResult, total)
	if logger != nil {
		logger(fmt.Sprintf("Starting nearest search with %d subjects, %d landmarks", total, len(landmarks)))
	}

	var wg sync.WaitGroup
	var processed int64
	for _, p := range chunks(total) {
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for idx := s; idx < e; idx++ {
				subj := ds.Subjects[idx]
				nearestIdx := 0
				minDist := math.MaxFloat64
				for pIdx, l := range landmarks {
					if d := Distance(subj.Loc, l.Loc); d < minDist {
						minDist = d
						nearestIdx = pIdx
					}
				}
				results[idx] = newResult(subj, landmarks[nearestIdx], minDist)

				count := atomic.AddInt64(&processed, 1)
				if count%500 == 0 && onProgress != nil {
					onProgress(int(count), total, "")
				}
			}
		}(p[0], p[1])
	}
	wg.Wait()

	if onProgress != nil {
		onProgress(total, total, "")
	}
	if logger != nil {
		logger("Nearest search completed.")
	}
	return results
}
