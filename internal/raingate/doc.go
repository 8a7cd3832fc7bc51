// Package raingate decides whether a scheduled watering may proceed given
// recent rainfall.
//
// The gate sums hourly rainfall over the trailing 24 hours and denies
// watering when that sum reaches the station's threshold (3mm against a
// 3mm threshold is a denial). A window with no rain at all is never denied. Stations without rain sensing are always allowed and the
// provider is never consulted for them.
//
// A provider failure never leaves the decision undefined. The gate applies
// its configured fail-safe policy (allow by default), marks the result as
// a fail-safe decision and carries the provider error for logging.
package raingate
