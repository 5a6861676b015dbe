package search

import (
	"math"
	"slices"

	"github.com/neexbeast/destination-search/internal/destination"
)

const (
	// EarthRadiusKm is the sphere radius used for great-circle distances.
	EarthRadiusKm = 6371.0

	// MaxClosest bounds the neighbor list returned by Closest.
	MaxClosest = 5
)

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Distance returns the haversine great-circle distance in kilometres.
func Distance(a, b destination.Destination) float64 {
	lat1 := degreesToRadians(a.Latitude)
	lat2 := degreesToRadians(b.Latitude)
	dLat := degreesToRadians(b.Latitude - a.Latitude)
	dLon := degreesToRadians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	// clamp to account for floating point error
	h = max(0, min(1, h))

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Neighbor is a destination together with its distance from a reference.
type Neighbor struct {
	Destination destination.Destination
	DistanceKm  float64
}

// Closest returns up to MaxClosest options nearest to ref, nearest first.
// Options sharing ref's ID are skipped. Equal distances keep option order.
func Closest(ref destination.Destination, options []destination.Destination) []destination.Destination {
	ranked := Rank(ref, options, MaxClosest)
	out := make([]destination.Destination, len(ranked))
	for i, n := range ranked {
		out[i] = n.Destination
	}
	return out
}

// Rank orders options by ascending distance from ref, excluding ref's ID,
// and keeps at most limit entries. A non-positive limit keeps all of them.
func Rank(ref destination.Destination, options []destination.Destination, limit int) []Neighbor {
	neighbors := make([]Neighbor, 0, len(options))
	for _, d := range options {
		if d.ID == ref.ID {
			continue
		}
		neighbors = append(neighbors, Neighbor{Destination: d, DistanceKm: Distance(ref, d)})
	}

	slices.SortStableFunc(neighbors, func(a, b Neighbor) int {
		switch {
		case a.DistanceKm < b.DistanceKm:
			return -1
		case a.DistanceKm > b.DistanceKm:
			return 1
		}
		return 0
	})

	if limit > 0 && len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}
	return neighbors
}
