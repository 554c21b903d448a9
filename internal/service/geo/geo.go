package geo

import (
	"fmt"
	"math"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// Validate checks latitude ∈ [-90, 90] and longitude ∈ [-180, 180].
func Validate(c models.Coordinate) error {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		c.Latitude < -90 || c.Latitude > 90 ||
		c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: (%v, %v)", types.ErrInvalidCoordinate, c.Latitude, c.Longitude)
	}
	return nil
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// DistanceKm returns the great-circle distance between a and b.
func DistanceKm(a, b models.Coordinate) (float64, error) {
	if err := Validate(a); err != nil {
		return 0, err
	}
	if err := Validate(b); err != nil {
		return 0, err
	}
	return haversine(a, b), nil
}

func haversine(a, b models.Coordinate) float64 {
	lat1, lat2 := toRad(a.Latitude), toRad(b.Latitude)
	dLat := lat2 - lat1
	dLng := toRad(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// rounding can push h marginally above 1 for antipodal points
	h = math.Min(1, h)

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// BearingDegrees returns the initial compass bearing from a to b in [0, 360).
func BearingDegrees(a, b models.Coordinate) (float64, error) {
	if err := Validate(a); err != nil {
		return 0, err
	}
	if err := Validate(b); err != nil {
		return 0, err
	}

	lat1, lat2 := toRad(a.Latitude), toRad(b.Latitude)
	dLng := toRad(b.Longitude - a.Longitude)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)

	bearing := math.Mod(toDeg(math.Atan2(y, x))+360, 360)
	if bearing >= 360 {
		bearing = 0
	}
	return bearing, nil
}

// Box is a latitude/longitude rectangle.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// Contains reports whether c falls inside the box, edges included.
func (b Box) Contains(c models.Coordinate) bool {
	return c.Latitude >= b.MinLat && c.Latitude <= b.MaxLat &&
		c.Longitude >= b.MinLng && c.Longitude <= b.MaxLng
}

// BoundingBox returns a rectangle that contains every point within radiusKm of center.
// Near the poles or across the antimeridian the longitude range widens to the full circle.
func BoundingBox(center models.Coordinate, radiusKm float64) (Box, error) {
	if err := Validate(center); err != nil {
		return Box{}, err
	}
	if radiusKm < 0 {
		radiusKm = 0
	}

	dLat := toDeg(radiusKm / EarthRadiusKm)
	box := Box{
		MinLat: math.Max(-90, center.Latitude-dLat),
		MaxLat: math.Min(90, center.Latitude+dLat),
		MinLng: -180,
		MaxLng: 180,
	}

	if box.MinLat <= -90 || box.MaxLat >= 90 {
		return box, nil
	}

	// widest longitude span sits at the latitude closest to a pole
	maxAbsLat := math.Max(math.Abs(box.MinLat), math.Abs(box.MaxLat))
	dLng := toDeg(radiusKm / (EarthRadiusKm * math.Cos(toRad(maxAbsLat))))
	minLng, maxLng := center.Longitude-dLng, center.Longitude+dLng
	if minLng < -180 || maxLng > 180 {
		return box, nil
	}

	box.MinLng, box.MaxLng = minLng, maxLng
	return box, nil
}
