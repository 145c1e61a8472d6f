// Package sink performs the actual write-and-cut against a resolved printer
// transport. The sink is the only component allowed to surface a print
// failure, and only as a classified PrintError.
package sink

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mesa-livre/print-agent/internal/model"
)

// Sink writes rendered receipt text to a printer transport.
type Sink interface {
	Write(ctx context.Context, transport model.Transport, text string) error
}

// feedLines is appended after the receipt body so the paper clears the tear
// bar before cutting.
const feedLines = 4

// PrinterSink is the production sink: direct device-path writes, ESC/POS
// sessions for USB transports, and the always-succeeding simulation.
type PrinterSink struct {
	log *logrus.Logger

	mu          sync.Mutex
	simReceipts int
	simLast     string
}

func New(log *logrus.Logger) *PrinterSink {
	return &PrinterSink{log: log}
}

func (s *PrinterSink) Write(ctx context.Context, transport model.Transport, text string) error {
	switch transport.Kind {
	case model.TransportSimulated:
		return s.writeSimulated(text)
	case model.TransportUSB:
		return s.writeSession(ctx, transport, text)
	default:
		return s.writeDirect(ctx, transport, text)
	}
}

// RetryPolicy bounds the retries a manual print performs on transient
// failures. The automatic queue never retries.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetryPolicy is used by the manual print endpoint.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: 500 * time.Millisecond}

// WriteWithRetry retries Write on transient classifications
// (busy/timeout) with linear backoff. Non-transient failures return
// immediately.
func WriteWithRetry(ctx context.Context, s Sink, transport model.Transport, text string, policy RetryPolicy) error {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	var last error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		last = s.Write(ctx, transport, text)
		if last == nil {
			return nil
		}
		var pe *PrintError
		if !errors.As(last, &pe) || !pe.Transient() {
			return last
		}
		if attempt == policy.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return last
		case <-time.After(policy.Backoff * time.Duration(attempt)):
		}
	}
	return last
}
