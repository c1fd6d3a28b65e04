// Package alert delivers threat and scan-summary notifications to
// presentation layers and message brokers.
package alert

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

type Kind string

const (
	KindThreat  Kind = "threat"
	KindFinding Kind = "high_severity_finding"
	KindSummary Kind = "scan_summary"
)

type Summary struct {
	TotalFound      int `json:"total_found"`
	NewlySuspicious int `json:"newly_suspicious"`
	HighFindings    int `json:"high_findings"`
	ThreatsDetected int `json:"threats_detected"`
}

type Alert struct {
	ID        string                 `json:"id"`
	Kind      Kind                   `json:"kind"`
	CycleID   string                 `json:"cycle_id"`
	CreatedAt time.Time              `json:"created_at"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Network   *types.NetworkSnapshot `json:"network,omitempty"`
	Summary   *Summary               `json:"summary,omitempty"`
}

// Sink receives alerts. Implementations must be safe for concurrent use.
type Sink interface {
	Publish(ctx context.Context, a Alert) error
}

// LogSink writes alerts to a logger. It is the default sink.
type LogSink struct {
	Logger *log.Logger
}

func (s LogSink) Publish(_ context.Context, a Alert) error {
	s.Logger.Printf("alert kind=%s cycle=%s title=%q", a.Kind, a.CycleID, a.Title)
	return nil
}

// Multi fans an alert out to every sink, returning the joined errors.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, a Alert) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every alert.
type Discard struct{}

func (Discard) Publish(context.Context, Alert) error { return nil }
