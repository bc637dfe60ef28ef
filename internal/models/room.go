package models

// RoomRate is a bookable room category and its nightly price.
type RoomRate struct {
	Type        string  `yaml:"type" json:"type"`
	Name        string  `yaml:"name" json:"name"`
	NightlyRate float64 `yaml:"nightly_rate" json:"nightly_rate"`
	SortOrder   int64   `yaml:"sort_order" json:"sort_order"`
}

// CustomPricing reports whether the room is priced by arrangement rather than per night.
func (r RoomRate) CustomPricing() bool {
	return r.NightlyRate <= 0
}
