package domain

// MetricsCollectedEvent carries a fresh snapshot.
type MetricsCollectedEvent struct {
	Metrics SystemMetrics `json:"metrics"`
}
