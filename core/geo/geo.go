package geo

import "math"

// EarthRadiusM is the mean earth radius used for great-circle math.
const EarthRadiusM = 6371000.0

// Location is a pair of WGS84 coordinates in degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Distance returns the haversine great-circle distance between a and b in
// meters. It is symmetric and zero only for identical coordinates.
func Distance(a, b Location) float64 {
	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	dPhi := radians(b.Lat - a.Lat)
	dLambda := radians(b.Lon - a.Lon)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusM * c
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
