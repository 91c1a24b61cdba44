package models

// City is a resolved place with known coordinates. Two cities are the same
// city when their coordinates are equal.
type City struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	State     string  `json:"state,omitempty"`
}
