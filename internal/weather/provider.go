package weather

import (
	"context"
	"time"
)

// Sample is the rainfall recorded for one hour.
type Sample struct {
	Time time.Time
	MM   float64
}

// Provider returns hourly rainfall samples.
type Provider interface {
	// HourlyRainfall returns samples whose timestamps fall within
	// [start, end], both inclusive. Order is unspecified.
	HourlyRainfall(ctx context.Context, latitude, longitude float64, start, end time.Time) ([]Sample, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, latitude, longitude float64, start, end time.Time) ([]Sample, error)

// HourlyRainfall implements Provider.
func (f ProviderFunc) HourlyRainfall(ctx context.Context, latitude, longitude float64, start, end time.Time) ([]Sample, error) {
	return f(ctx, latitude, longitude, start, end)
}
