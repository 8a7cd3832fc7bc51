// Package weather provides hourly rainfall history for the rain gate.
//
// The Provider interface is the only thing the rest of the controller sees.
// OpenWeather implements it against the One Call "timemachine" endpoint,
// and Breaker wraps any Provider in a github.com/sony/gobreaker circuit
// breaker so a dead upstream fails fast instead of stalling every station.
//
//	var p weather.Provider = weather.NewOpenWeather(weather.OpenWeatherConfig{APIKey: key})
//	p = weather.NewBreaker(p, weather.BreakerConfig{MaxFailures: 3, OpenTimeout: 5 * time.Minute})
//	samples, err := p.HourlyRainfall(ctx, 51.5, -0.12, start, end)
package weather
