package domain

import (
	"math"
	"time"
)

// StatusStarted marks the reading taken on the cycle where the reactor's
// run-start node first reported a truthy value.
const StatusStarted = "STARTED"

// Reading is one timestamped snapshot of all channel values from a single
// poll cycle. It is both the in-flight and the persisted form: the store
// maps Values keys onto nullable columns.
//
// Values holds one entry per channel key that was read successfully this
// cycle; an absent key means the node read failed and the column stays null.
type Reading struct {
	Timestamp float64 // epoch seconds
	Values    map[string]float64
	Status    string // StatusStarted or empty
}

// Value reports the channel value and whether it was present this cycle.
func (r Reading) Value(key string) (float64, bool) {
	v, ok := r.Values[key]
	return v, ok
}

// SetpointKey is the channel key under which a channel's setpoint node is
// recorded.
func SetpointKey(key string) string {
	return key + "_setpoint"
}

// Seconds converts a wall-clock instant to the epoch-seconds representation
// used for timestamps throughout the pipeline.
func Seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// Time converts an epoch-seconds timestamp back to a wall-clock instant.
func Time(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}
