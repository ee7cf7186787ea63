package avionics

/*------------------------------------------------------------------
 *
 * Purpose:	RS-422 adapter for the ADC link, wrapping github.com/pkg/term
 *		the way serial_port.go wraps it for the TNC's KISS/serial
 *		connection.
 *
 * Description:	The framing codec itself is out of scope (spec.md section
 *		1): SerialRS422 exchanges only opaque byte buffers, fixed at
 *		frameLen bytes, with whatever sits on the other end. Reads
 *		are non-blocking: TryReadFrame drains whatever bytes are
 *		currently available into an internal accumulator and reports
 *		ok=true only once a full frame has accumulated, so the
 *		scheduler's cooperative loop never stalls in a blocking
 *		serial read.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"

	"github.com/pkg/term"
)

// SerialRS422 is a RS422Port backed by a real serial device.
type SerialRS422 struct {
	fd       *term.Term
	frameLen int
	buf      []byte
}

// OpenSerialRS422 opens devicename at baud and returns a RS422Port framing
// reads at frameLen bytes (spec.md section 6 lists the known ADC frame
// lengths: 7, 0x19, 9, and configured lengths for computed-data/status).
func OpenSerialRS422(devicename string, baud, frameLen int) (*SerialRS422, error) {
	fd, err := term.Open(devicename, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("%w: OpenSerialRS422: opening %s: %w", ErrConfiguration, devicename, err)
	}
	if baud != 0 {
		if err := fd.SetSpeed(baud); err != nil {
			fd.Close()
			return nil, fmt.Errorf("%w: OpenSerialRS422: setting speed %d on %s: %w", ErrConfiguration, baud, devicename, err)
		}
	}
	return &SerialRS422{fd: fd, frameLen: frameLen}, nil
}

// TryReadFrame pulls whatever bytes are currently waiting into the internal
// accumulator and returns a full frame once frameLen bytes have built up.
func (s *SerialRS422) TryReadFrame() ([]byte, bool, error) {
	chunk := make([]byte, s.frameLen)
	n, err := s.fd.Read(chunk)
	if err != nil {
		return nil, false, fmt.Errorf("%w: SerialRS422.TryReadFrame: %w", ErrInternal, err)
	}
	if n > 0 {
		s.buf = append(s.buf, chunk[:n]...)
	}

	if len(s.buf) < s.frameLen {
		return nil, false, nil
	}

	frame := append([]byte(nil), s.buf[:s.frameLen]...)
	s.buf = s.buf[s.frameLen:]
	return frame, true, nil
}

// WriteFrame writes frame in full, failing if a short write occurs the way
// serial_port_write treats a partial write as an error.
func (s *SerialRS422) WriteFrame(frame []byte) error {
	n, err := s.fd.Write(frame)
	if err != nil {
		return fmt.Errorf("%w: SerialRS422.WriteFrame: %w", ErrInternal, err)
	}
	if n != len(frame) {
		return fmt.Errorf("%w: SerialRS422.WriteFrame: wrote %d of %d bytes", ErrInternal, n, len(frame))
	}
	return nil
}

// Close releases the underlying serial handle.
func (s *SerialRS422) Close() error {
	return s.fd.Close()
}
