package models

// Activity is one audit entry on its way to the activity backend.
type Activity struct {
	Message string            `json:"message"`
	Object  any               `json:"object"`
	Filter  map[string]string `json:"filter"`
}

type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}
