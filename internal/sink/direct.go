package sink

import (
	"context"
	"os"
	"strings"

	"github.com/mesa-livre/print-agent/internal/model"
)

// writeDirect appends the receipt plus trailing feed lines to the device
// path as a raw byte stream.
func (s *PrinterSink) writeDirect(ctx context.Context, transport model.Transport, text string) error {
	if err := ctx.Err(); err != nil {
		return &PrintError{Code: ErrCodeTimeout, Device: transport.Path, Err: err}
	}

	f, err := os.OpenFile(transport.Path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return classify(transport.Path, err)
	}
	defer f.Close()

	payload := text
	if !strings.HasSuffix(payload, "\n") {
		payload += "\n"
	}
	payload += strings.Repeat("\n", feedLines)

	if _, err := f.WriteString(payload); err != nil {
		return classify(transport.Path, err)
	}
	s.log.WithField("device", transport.Path).Debug("receipt written")
	return nil
}

// simulated transport: accepts everything and remembers the last receipt for
// status reporting. Losing the physical paper is the accepted trade-off that
// keeps the queue moving when no hardware resolves.
func (s *PrinterSink) writeSimulated(text string) error {
	s.mu.Lock()
	s.simReceipts++
	s.simLast = text
	s.mu.Unlock()
	s.log.WithField("device", "simulated").Warn("no physical printer resolved, receipt discarded")
	return nil
}

// SimulatedCount reports how many receipts the simulation transport has
// swallowed since startup, for operator status reporting.
func (s *PrinterSink) SimulatedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.simReceipts
}

// LastSimulatedReceipt returns the most recent receipt the simulation
// accepted, empty if none.
func (s *PrinterSink) LastSimulatedReceipt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.simLast
}
