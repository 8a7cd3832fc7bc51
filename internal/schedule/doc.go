// Package schedule holds the per-station watering schedule and the time
// source the station drivers poll.
//
// A schedule is loaded once at startup and never changes afterwards. Each
// station owns an ordered list of slots; a slot names a weekday, a start
// minute and a watering duration. Matching is exact to the minute:
//
//	idx, slot, ok := station.Match(schedule.MomentOf(clock.Now()))
//
// Only the first matching slot is returned when several coincide. The
// matcher does not remember what it has already returned; suppressing a
// second firing of the same occurrence is the station driver's job.
//
// The schedule file uses the JSON layout below. It is decoded with
// gopkg.in/yaml.v3, so an equivalent YAML document works as well.
//
//	{
//	  "stations": {
//	    "5": {
//	      "rain_sensing": true,
//	      "rain_threshold": 3,
//	      "schedule": [
//	        {"day": "Monday", "start": "06:00", "duration": 10}
//	      ]
//	    }
//	  }
//	}
//
// Durations are minutes and may be fractional. A station may carry its own
// "latitude"/"longitude" pair; otherwise the site location is used.
package schedule
