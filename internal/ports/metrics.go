package ports

// Metrics receives business counters from the application layer.
type Metrics interface {
	ClickRecorded(outcome string)
	ConversionRecorded(outcome string)
	StatusTransitioned(from, to string)
}

type NoopMetrics struct{}

func (NoopMetrics) ClickRecorded(string)              {}
func (NoopMetrics) ConversionRecorded(string)         {}
func (NoopMetrics) StatusTransitioned(string, string) {}
