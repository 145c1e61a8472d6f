package sink

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesa-livre/print-agent/internal/model"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestWriteSimulated(t *testing.T) {
	s := New(quietLogger())

	err := s.Write(context.Background(), model.Transport{Kind: model.TransportSimulated}, "recibo")
	require.NoError(t, err)
	assert.Equal(t, 1, s.SimulatedCount())
	assert.Equal(t, "recibo", s.LastSimulatedReceipt())
}

func TestWriteDirectAppendsFeedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lp0")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	s := New(quietLogger())
	transport := model.Transport{Kind: model.TransportDevicePath, Path: path}
	require.NoError(t, s.Write(context.Background(), transport, "linha 1\nlinha 2"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "linha 1\nlinha 2\n\n\n\n\n", string(data))
}

func TestWriteDirectMissingDevice(t *testing.T) {
	s := New(quietLogger())
	transport := model.Transport{Kind: model.TransportDevicePath, Path: filepath.Join(t.TempDir(), "nope")}

	err := s.Write(context.Background(), transport, "recibo")
	require.Error(t, err)
	assert.Equal(t, ErrCodeDeviceNotFound, CodeOf(err))
}

func TestWriteDirectCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(quietLogger())
	err := s.Write(ctx, model.Transport{Kind: model.TransportDevicePath, Path: "/dev/null"}, "recibo")
	require.Error(t, err)
	assert.Equal(t, ErrCodeTimeout, CodeOf(err))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"not exist", os.ErrNotExist, ErrCodeDeviceNotFound},
		{"no device", syscall.ENODEV, ErrCodeDeviceNotFound},
		{"permission", os.ErrPermission, ErrCodePermissionDenied},
		{"busy", syscall.EBUSY, ErrCodeDeviceBusy},
		{"again", syscall.EAGAIN, ErrCodeDeviceBusy},
		{"timeout", syscall.ETIMEDOUT, ErrCodeTimeout},
		{"other", errors.New("boom"), ErrCodeWriteFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := classify("/dev/usb/lp0", tt.err)
			assert.Equal(t, tt.want, pe.Code)
			assert.ErrorIs(t, pe, tt.err)
		})
	}
}

func TestPrintErrorTransient(t *testing.T) {
	assert.True(t, (&PrintError{Code: ErrCodeDeviceBusy}).Transient())
	assert.True(t, (&PrintError{Code: ErrCodeTimeout}).Transient())
	assert.False(t, (&PrintError{Code: ErrCodePermissionDenied}).Transient())
	assert.False(t, (&PrintError{Code: ErrCodeWriteFailed}).Transient())
}

type scriptedSink struct {
	errs   []error
	writes int
}

func (s *scriptedSink) Write(ctx context.Context, transport model.Transport, text string) error {
	s.writes++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func TestWriteWithRetry(t *testing.T) {
	transport := model.Transport{Kind: model.TransportSimulated}
	policy := RetryPolicy{Attempts: 3, Backoff: time.Millisecond}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		s := &scriptedSink{errs: []error{
			&PrintError{Code: ErrCodeDeviceBusy},
			&PrintError{Code: ErrCodeTimeout},
		}}
		require.NoError(t, WriteWithRetry(context.Background(), s, transport, "x", policy))
		assert.Equal(t, 3, s.writes)
	})

	t.Run("gives up after the attempt budget", func(t *testing.T) {
		s := &scriptedSink{errs: []error{
			&PrintError{Code: ErrCodeDeviceBusy},
			&PrintError{Code: ErrCodeDeviceBusy},
			&PrintError{Code: ErrCodeDeviceBusy},
		}}
		err := WriteWithRetry(context.Background(), s, transport, "x", policy)
		require.Error(t, err)
		assert.Equal(t, 3, s.writes)
		assert.Equal(t, ErrCodeDeviceBusy, CodeOf(err))
	})

	t.Run("fatal failures are not retried", func(t *testing.T) {
		s := &scriptedSink{errs: []error{
			&PrintError{Code: ErrCodePermissionDenied},
		}}
		err := WriteWithRetry(context.Background(), s, transport, "x", policy)
		require.Error(t, err)
		assert.Equal(t, 1, s.writes)
	})
}
