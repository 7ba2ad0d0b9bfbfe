package models

// DataAvailability classifies how much historical telemetry exists for an application
type DataAvailability string

const (
	FullHistoricalData DataAvailability = "full_historical_data"
	PartialData        DataAvailability = "partial_data"
	NoHistoricalData   DataAvailability = "no_historical_data"
)

// IsValid reports whether d is one of the known availability classes
func (d DataAvailability) IsValid() bool {
	switch d {
	case FullHistoricalData, PartialData, NoHistoricalData:
		return true
	}
	return false
}

// AvailabilityDetails is only present when availability is not NoHistoricalData
type AvailabilityDetails struct {
	DaysAvailable int     `json:"days_available" yaml:"days_available"`
	Completeness  float64 `json:"completeness" yaml:"completeness"`
	EntityID      string  `json:"entity_id,omitempty" yaml:"entity_id,omitempty"`
}
