package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mesa-livre/print-agent/internal/model"
)

// ESC/POS command bytes.
const (
	esc byte = 0x1B
	gs  byte = 0x1D
)

// usbDevicePaths maps a usblp transport onto candidate device nodes. The
// kernel exposes ESC/POS USB printers through the usblp class driver.
var usbDevicePaths = []string{"/dev/usb/lp0", "/dev/usb/lp1", "/dev/lp0"}

// writeSession opens a stateful ESC/POS session over the USB endpoint,
// issues formatting commands interleaved with the same line content the
// direct path would produce, then cuts and closes. The session is closed on
// every exit path so a failed write cannot leak the device lock.
func (s *PrinterSink) writeSession(ctx context.Context, transport model.Transport, text string) error {
	if err := ctx.Err(); err != nil {
		return &PrintError{Code: ErrCodeTimeout, Device: transport.Path, Err: err}
	}

	path := transport.Path
	conn, err := openUSBDevice(path)
	if err != nil {
		return classify(path, err)
	}

	session := newSession(conn)
	defer session.close()

	session.init()
	// First non-empty line is the receipt heading: centered, bold, double
	// height. The line content matches the direct path byte for byte.
	heading := true
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if heading && strings.TrimSpace(line) != "" {
			session.setAlign(1)
			session.setBold(true)
			session.setSize(1, 2)
			session.writeLine(line)
			session.setSize(1, 1)
			session.setBold(false)
			session.setAlign(0)
			heading = false
			continue
		}
		session.writeLine(line)
	}
	session.feed(feedLines)
	session.cut()

	if err := session.flush(); err != nil {
		return classify(path, err)
	}
	s.log.WithFields(map[string]interface{}{
		"device": path,
		"vendor": transport.VendorID,
	}).Debug("escpos session complete")
	return nil
}

func openUSBDevice(requested string) (io.WriteCloser, error) {
	candidates := usbDevicePaths
	if requested != "" {
		candidates = append([]string{requested}, usbDevicePaths...)
	}
	var lastErr error
	for _, p := range candidates {
		f, err := os.OpenFile(p, os.O_RDWR, 0)
		if err == nil {
			return f, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no usb printer device node")
	}
	return nil, lastErr
}

// session buffers ESC/POS commands and writes them in one shot on flush,
// mirroring how the dashboard's POS stations drive their printers.
type session struct {
	conn    io.WriteCloser
	buf     *bytes.Buffer
	flushed bool
}

func newSession(conn io.WriteCloser) *session {
	return &session{conn: conn, buf: new(bytes.Buffer)}
}

func (s *session) init() {
	s.buf.Write([]byte{esc, '@'})    // initialize
	s.buf.Write([]byte{esc, 't', 0}) // code page: CP437, text is pre-folded to ASCII
}

func (s *session) writeLine(line string) {
	s.buf.WriteString(line)
	s.buf.WriteByte('\n')
}

func (s *session) setAlign(align byte) {
	s.buf.Write([]byte{esc, 'a', align})
}

func (s *session) setBold(on bool) {
	var v byte
	if on {
		v = 1
	}
	s.buf.Write([]byte{esc, 'E', v})
}

func (s *session) setSize(width, height byte) {
	s.buf.Write([]byte{gs, '!', ((width - 1) << 4) | (height - 1)})
}

func (s *session) feed(lines int) {
	s.buf.Write([]byte{esc, 'd', byte(lines)})
}

func (s *session) cut() {
	s.buf.Write([]byte{gs, 'V', 'A', 0}) // partial cut
}

func (s *session) flush() error {
	if s.flushed {
		return nil
	}
	s.flushed = true
	_, err := s.conn.Write(s.buf.Bytes())
	return err
}

func (s *session) close() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}
