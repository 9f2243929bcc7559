package models

// StatsSnapshot is derived at read time and never stored.
type StatsSnapshot struct {
	Processed           int64   `json:"processed"`
	Successful          int64   `json:"successful"`
	Rejected            int64   `json:"rejected"`
	TotalVolume         int64   `json:"totalVolume"`
	AvgLatencyMicros    float64 `json:"avgLatencyMicros"`
	RequestsPerSecond   float64 `json:"requestsPerSecond"`
	RequestsPerMinute   float64 `json:"requestsPerMinute"`
	UptimeSeconds       int64   `json:"uptimeSeconds"`
	CachedKeys          int64   `json:"cachedKeys"`
	ProvisionedAccounts int64   `json:"provisionedAccounts"`
}
