package core

import (
	"time"

	"github.com/google/uuid"
)

// AlertKind distinguishes the two scan detectors that can produce an Alert.
type AlertKind string

const (
	FastScan AlertKind = "FastScan"
	SlowScan AlertKind = "SlowScan"
)

// Alert is a value produced by the Detector describing a scan crossing.
// It carries no behavior and is safe to pass across goroutines by value.
type Alert struct {
	ID              string
	Kind            AlertKind
	SourceIP        string
	UniquePortCount int
	PortsSample     []int // ascending, truncated for display/wire by the consumer
	DetectedAt      time.Time
}

// NewAlertID generates a correlation ID for an Alert, so the same scan
// crossing can be matched across the SIEM line and the email body.
func NewAlertID() string {
	return uuid.NewString()
}
