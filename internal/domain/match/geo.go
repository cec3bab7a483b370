package match

import "math"

const earthRadiusKM = 6371.0

// HaversineKM returns the great-circle distance in kilometers between two
// coordinates.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180
	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(a))
}

// geoDecay maps a distance to a proximity score in (0,1]: 1 at zero distance,
// falling off exponentially with the configured decay constant.
func geoDecay(distanceKM, decayKM float64) float64 {
	if distanceKM <= 0 {
		return 1
	}
	return math.Exp(-distanceKM / decayKM)
}
