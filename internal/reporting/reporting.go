// Package reporting aggregates charge activity into settlement summaries.
package reporting

import (
	"sync"
	"time"
)

// ChargeLog is a single recorded charge outcome.
type ChargeLog struct {
	Timestamp    time.Time
	OrderRef     string
	Provider     string
	Amount       int64
	Currency     string
	Status       string // "SUCCEEDED", "DECLINED", "FAILED", "REJECTED"
	ErrorCode    string
	ErrorMessage string
}

// Recorder is a concurrency-safe append-only charge log.
type Recorder struct {
	mu      sync.Mutex
	entries []ChargeLog
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Append records one charge outcome.
func (r *Recorder) Append(entry ChargeLog) {
	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()
}

// Entries returns a copy of the recorded log in arrival order.
func (r *Recorder) Entries() []ChargeLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ChargeLog, len(r.entries))
	copy(out, r.entries)
	return out
}

// Summary aggregates charge activity over a log window.
type Summary struct {
	TotalCharges     int
	Succeeded        int
	Declined         int
	Failed           int
	Rejected         int
	AmountByCurrency map[string]int64 // succeeded charges only
	ErrorBreakdown   map[string]int   // error codes of declined/failed charges
	ProviderUsage    map[string]int
	From             time.Time
	To               time.Time
}

// Summarize aggregates a slice of charge logs into a Summary.
func Summarize(entries []ChargeLog) Summary {
	summary := Summary{
		AmountByCurrency: make(map[string]int64),
		ErrorBreakdown:   make(map[string]int),
		ProviderUsage:    make(map[string]int),
	}
	for i, e := range entries {
		summary.TotalCharges++
		if i == 0 || e.Timestamp.Before(summary.From) {
			summary.From = e.Timestamp
		}
		if e.Timestamp.After(summary.To) {
			summary.To = e.Timestamp
		}
		if e.Provider != "" {
			summary.ProviderUsage[e.Provider]++
		}
		switch e.Status {
		case "SUCCEEDED":
			summary.Succeeded++
			summary.AmountByCurrency[e.Currency] += e.Amount
		case "DECLINED":
			summary.Declined++
			if e.ErrorCode != "" {
				summary.ErrorBreakdown[e.ErrorCode]++
			}
		case "FAILED":
			summary.Failed++
			if e.ErrorCode != "" {
				summary.ErrorBreakdown[e.ErrorCode]++
			}
		case "REJECTED":
			summary.Rejected++
		}
	}
	return summary
}
