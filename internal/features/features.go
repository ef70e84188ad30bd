// Package features encodes timestamps and weather observations into the
// feature vector consumed by the production model.
package features

import "time"

// Width is the length of a vector produced by Encode.
const Width = 2 + WeatherWidth

// WeatherWidth is the number of weather values in a vector.
const WeatherWidth = 11

// YearProcess is the position of t within its year, in (0, 1].
func YearProcess(t time.Time) float64 {
	return float64(t.YearDay()) / 366.0
}

// DayProcess is the fraction of t's day that has elapsed, in [0, 1).
func DayProcess(t time.Time) float64 {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return float64(t.Sub(midnight)) / float64(24*time.Hour)
}

// Time returns the two time features of t.
func Time(t time.Time) []float64 {
	return []float64{YearProcess(t), DayProcess(t)}
}

// Weather holds the weather observations the model is trained on.
type Weather struct {
	CloudCover               float64
	PrecipitationProbability float64
	PrecipitationIntensity   float64
	WindSpeed                float64
	WindGust                 float64
	ApparentTemperature      float64
	Temperature              float64
	Humidity                 float64
	DewPoint                 float64
	Visibility               float64
	UVIndex                  float64
}

// Values lists w in model order, which differs from the field order.
func (w Weather) Values() []float64 {
	return []float64{
		w.CloudCover,
		w.PrecipitationProbability,
		w.WindSpeed,
		w.WindGust,
		w.PrecipitationIntensity,
		w.ApparentTemperature,
		w.Humidity,
		w.DewPoint,
		w.Visibility,
		w.UVIndex,
		w.Temperature,
	}
}

// Encode returns the time features of t followed by the weather values.
func Encode(t time.Time, w Weather) []float64 {
	return append(Time(t), w.Values()...)
}
