package types

import "time"

// SensorReading is a point-in-time snapshot of the greenhouse sensors,
// as published by the device into the live state tree.
type SensorReading struct {
	// Temperature in degrees Celsius.
	Temperature float64 `json:"temp"`

	// Humidity in percent relative humidity.
	Humidity float64 `json:"humbd"`

	// HeatIndex is the computed "feels like" temperature, if the
	// device reports one.
	HeatIndex float64 `json:"hic,omitempty"`
}

// DailySensorRecord is the per-calendar-day aggregate kept in the
// record store. There is at most one per day, keyed by DateKey, and
// its maxima only ever rise within that day.
type DailySensorRecord struct {
	// DateKey is the UTC calendar day in ISO 8601 form (YYYY-MM-DD).
	// It is also the record's document key.
	DateKey string `json:"dateKey" firestore:"dateKey"`

	// MaxTemperature is the highest temperature observed that day.
	MaxTemperature float64 `json:"maxTemperature" firestore:"maxTemperature"`

	// MaxHumidity is the highest humidity observed that day.
	MaxHumidity float64 `json:"maxHumidity" firestore:"maxHumidity"`

	// LastUpdatedAt is the time of the most recent aggregation run
	// that touched this record.
	LastUpdatedAt time.Time `json:"timestamp" firestore:"timestamp"`

	// CreatedAt is the time the record was first written. It drives
	// the retention window.
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

// AggregationResult summarizes one run of the daily aggregation job.
type AggregationResult struct {
	// DateKey is the day the run folded into.
	DateKey string `json:"dateKey"`

	// MaxTemperature and MaxHumidity are the stored daily maxima
	// after the fold.
	MaxTemperature float64 `json:"maxTemperature"`
	MaxHumidity    float64 `json:"maxHumidity"`

	// ObservedTemperature and ObservedHumidity are the raw live
	// values sampled by this run.
	ObservedTemperature float64 `json:"observedTemperature"`
	ObservedHumidity    float64 `json:"observedHumidity"`

	// Deleted is the number of expired records pruned by this run.
	Deleted int `json:"deleted"`
}
