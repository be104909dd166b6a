package services

import "math"

// earthRadiusM is the mean earth radius used by the haversine formula. With
// this value one degree along the equator resolves to roughly 111.2 km.
const earthRadiusM = 6371000.0

// DefaultAccuracyCeilingM is the GPS accuracy ceiling applied when the
// configuration does not override it. Readings reported as less accurate
// than this are rejected before any range decision is made.
const DefaultAccuracyCeilingM = 50.0

// DistanceMeters returns the great-circle distance between two points given
// as decimal-degree latitude/longitude pairs.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	a := sinLat*sinLat + math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*sinLon*sinLon
	return 2 * earthRadiusM * math.Asin(math.Min(1, math.Sqrt(a)))
}

// GeofenceConfig is the per-gym fence the evaluator reads. RadiusM must be
// positive; MinStayMinutes may be zero.
type GeofenceConfig struct {
	Latitude           float64
	Longitude          float64
	RadiusM            float64
	AutoCheckinEnabled bool
	MinStayMinutes     int
}

// Verdict is the evaluator's decision on a single ping. The three flags are
// independent; all must hold for the ping to advance a presence.
type Verdict struct {
	DistanceM          float64
	InRange            bool
	AccuracyAcceptable bool
	Enabled            bool
}

// OK reports whether the ping may advance the presence state machine.
func (v Verdict) OK() bool {
	return v.Enabled && v.AccuracyAcceptable && v.InRange
}

// Reject returns the single failure to surface, or nil when the verdict
// passes. Disabled is a configuration fact independent of the ping, so it
// wins; an unacceptable accuracy makes the distance reading untrustworthy,
// so it precedes the range verdict.
func (v Verdict) Reject() error {
	switch {
	case !v.Enabled:
		return ErrGeofenceDisabled
	case !v.AccuracyAcceptable:
		return ErrGpsAccuracyTooLow
	case !v.InRange:
		return ErrOutOfRange
	}
	return nil
}

// EvaluateGeofence scores one location ping against a gym's fence.
// accuracyCeilingM <= 0 falls back to DefaultAccuracyCeilingM.
func EvaluateGeofence(lat, lon, accuracyM float64, gf GeofenceConfig, accuracyCeilingM float64) Verdict {
	if accuracyCeilingM <= 0 {
		accuracyCeilingM = DefaultAccuracyCeilingM
	}
	d := DistanceMeters(lat, lon, gf.Latitude, gf.Longitude)
	return Verdict{
		DistanceM:          d,
		InRange:            d <= gf.RadiusM,
		AccuracyAcceptable: accuracyM <= accuracyCeilingM,
		Enabled:            gf.AutoCheckinEnabled,
	}
}
