package notify

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/nerrad567/gray-logic-irrigation/internal/eventlog"
)

const subjectPrefix = "Irrigation Watering "

// Completed builds the message sent after a valve closed normally. The
// body is the same text as the event's log line.
func Completed(ev eventlog.Event) Message {
	return Message{
		Subject: subjectPrefix + "Completed",
		Body:    ev.Line(),
	}
}

// Cancelled builds the message sent when the rain gate denied an
// occurrence. A fail-safe denial reports why rainfall is unknown instead
// of a measurement.
func Cancelled(ev eventlog.Event, thresholdMM float64) Message {
	if ev.FailSafe {
		return Message{
			Subject: subjectPrefix + "CANCELLED Due to Rainfall",
			Body: fmt.Sprintf("Valve %s watering at %s CANCELLED because 24 hour rainfall could not be determined: %s.\n",
				ev.StationID,
				ev.Start.Format(eventlog.TimeLayout),
				ev.Reason,
			),
		}
	}
	return Message{
		Subject: subjectPrefix + "CANCELLED Due to Rainfall",
		Body: fmt.Sprintf("Valve %s watering at %s CANCELLED due to 24 hour rainfall of %s mm exceeding threshold of %s mm.\n",
			ev.StationID,
			ev.Start.Format(eventlog.TimeLayout),
			formatMM(ev.RainfallMM),
			formatMM(thresholdMM),
		),
	}
}

// Failed builds the message sent when the valve could not be driven.
func Failed(ev eventlog.Event, cause error) Message {
	return Message{
		Subject: subjectPrefix + "FAILED",
		Body: fmt.Sprintf("Valve %s watering at %s for %d seconds FAILED: %v. The valve has been switched off.\n",
			ev.StationID,
			ev.Start.Format(eventlog.TimeLayout),
			int64(ev.Duration/time.Second),
			cause,
		),
	}
}

// formatMM renders 2 as "2" and 2.254 as "2.25".
func formatMM(mm float64) string {
	return strconv.FormatFloat(math.Round(mm*100)/100, 'f', -1, 64)
}
