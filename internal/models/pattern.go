package models

// PatternObservation is one persisted (day, slot, category) weight
type PatternObservation struct {
	UserID   string  `json:"user_id" db:"user_id"`
	Date     string  `json:"date" db:"day"`
	Weekday  int     `json:"weekday" db:"weekday"` // 0=Sunday
	Bucket   int     `json:"bucket" db:"bucket"`
	Category string  `json:"category" db:"category"`
	Weight   float64 `json:"weight" db:"weight"`
}

// SlotAnomaly describes one evaluated slot of a day
type SlotAnomaly struct {
	Bucket     int     `json:"bucket"`
	StartsAt   string  `json:"starts_at"` // HH:MM
	Expected   string  `json:"expected"`
	Actual     string  `json:"actual"`
	Confidence float64 `json:"confidence"`
	Divergent  bool    `json:"divergent"`
}

// DayAnomalies is the anomaly report of one day
type DayAnomalies struct {
	Date      string        `json:"date"`
	Score     float64       `json:"score"` // divergent / evaluated high-confidence slots
	Evaluated int           `json:"evaluated"`
	Divergent int           `json:"divergent"`
	Slots     []SlotAnomaly `json:"slots"`
}

// Prediction is the expected category of one slot of a future day
type Prediction struct {
	Bucket     int     `json:"bucket"`
	StartsAt   string  `json:"starts_at"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}
