package domain

// Default time range bounds, in the monitoring API's relative-time syntax.
const (
	DefaultTimeRangeFrom = "now-1M"
	DefaultTimeRangeTo   = "now"
)

// TimeRange is an opaque pair of range tokens passed through to the data source.
type TimeRange struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// DefaultTimeRange returns the last month.
func DefaultTimeRange() TimeRange {
	return TimeRange{From: DefaultTimeRangeFrom, To: DefaultTimeRangeTo}
}
