package models

import "time"

// AlertType grades the severity of a risk signal.
type AlertType string

const (
	AlertWarning  AlertType = "WARNING"
	AlertCritical AlertType = "CRITICAL"
)

// Alert rule codes.
const (
	AlertCodeDrop      = "DROP"
	AlertCodeTrend     = "TREND"
	AlertCodeRecurring = "RECURRING"
	AlertCodeThreshold = "THRESHOLD"
)

// Alert is one human-readable risk signal for a student.
type Alert struct {
	Type    AlertType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// StudentAlerts bundles a student's alerts for class-wide reports.
type StudentAlerts struct {
	StudentID   string  `json:"student_id"`
	StudentName string  `json:"student_name"`
	Rank        Rank    `json:"rank"`
	Alerts      []Alert `json:"alerts"`
}

// HasCritical reports whether any alert is CRITICAL.
func (s StudentAlerts) HasCritical() bool {
	for _, a := range s.Alerts {
		if a.Type == AlertCritical {
			return true
		}
	}
	return false
}

// EngineMetrics is a lightweight snapshot of engine instrumentation.
type EngineMetrics struct {
	Recomputes    uint64    `json:"recomputes"`
	Adjustments   uint64    `json:"adjustments"`
	Orders        uint64    `json:"orders"`
	CoinsGranted  uint64    `json:"coins_granted"`
	CacheHits     uint64    `json:"cache_hits"`
	CacheMisses   uint64    `json:"cache_misses"`
	CacheHitRatio float64   `json:"cache_hit_ratio"`
	GeneratedAt   time.Time `json:"generated_at"`
}
