package avionics

/*------------------------------------------------------------------
 *
 * Purpose:	Transceiver backed by a real ARINC-429 transceiver chip
 *		addressed over SPI: two receive FIFOs, transmit, the control
 *		register, loopback self-test, and the label recognition
 *		filter, each behind a one-byte command.
 *
 * Description:	SerialRS422 (serial_rs422.go) frames opaque byte buffers for
 *		the ADC link's plain serial wire; the AHR/PFD transceiver
 *		chips instead sit on a register-addressed SPI bus, so they
 *		get their own port adapter rather than reusing SerialRS422's
 *		byte-buffer framing. Wiring is modeled on lcd.go's
 *		periph.io/x/conn SPI usage: spireg finds the bus, Connect
 *		negotiates a spi.Conn, and every register access is one Tx
 *		call.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	arincCmdStatus      = 0x00
	arincCmdReadRx1     = 0x01
	arincCmdReadRx2     = 0x02
	arincCmdTransmit    = 0x03
	arincCmdLoadCtrl    = 0x04
	arincCmdSelfTest    = 0x05
	arincCmdLabelFilter = 0x06

	arincStatusRx1Ready = 1 << 0
	arincStatusRx2Ready = 1 << 1
)

// ArincTransceiverSPI is a Transceiver backed by a real ARINC-429
// transceiver chip reachable over a SPI bus.
type ArincTransceiverSPI struct {
	port spi.PortCloser
	conn spi.Conn

	lastErr error
}

// OpenArincTransceiverSPI finds busName's SPI port (spireg naming - "" for
// the first available bus), connects at maxHz in SPI mode 0, and returns a
// Transceiver driving it.
func OpenArincTransceiverSPI(busName string, maxHz int64) (*ArincTransceiverSPI, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: OpenArincTransceiverSPI: host init: %w", ErrConfiguration, err)
	}
	p, err := spireg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("%w: OpenArincTransceiverSPI: opening %s: %w", ErrConfiguration, busName, err)
	}
	c, err := p.Connect(physic.Frequency(maxHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("%w: OpenArincTransceiverSPI: connecting: %w", ErrConfiguration, err)
	}
	return &ArincTransceiverSPI{port: p, conn: c}, nil
}

// Close releases the underlying SPI port.
func (a *ArincTransceiverSPI) Close() error {
	return a.port.Close()
}

// Err returns the most recent SPI I/O error, if any. DataReadyRx1/Rx2 and
// ReadRx1/Rx2 degrade to "nothing ready"/zero on a failed exchange rather
// than blocking or panicking (spec.md section 5: "the core never blocks");
// a caller that cares about hardware faults polls Err separately.
func (a *ArincTransceiverSPI) Err() error { return a.lastErr }

func (a *ArincTransceiverSPI) status() byte {
	r := make([]byte, 2)
	if err := a.conn.Tx([]byte{arincCmdStatus, 0}, r); err != nil {
		a.lastErr = err
		return 0
	}
	return r[1]
}

func (a *ArincTransceiverSPI) DataReadyRx1() bool { return a.status()&arincStatusRx1Ready != 0 }
func (a *ArincTransceiverSPI) DataReadyRx2() bool { return a.status()&arincStatusRx2Ready != 0 }

func (a *ArincTransceiverSPI) readFIFO(cmd byte) uint32 {
	w := make([]byte, 5)
	w[0] = cmd
	r := make([]byte, 5)
	if err := a.conn.Tx(w, r); err != nil {
		a.lastErr = err
		return 0
	}
	return binary.BigEndian.Uint32(r[1:5])
}

func (a *ArincTransceiverSPI) ReadRx1() uint32 { return a.readFIFO(arincCmdReadRx1) }
func (a *ArincTransceiverSPI) ReadRx2() uint32 { return a.readFIFO(arincCmdReadRx2) }

func (a *ArincTransceiverSPI) Transmit(word uint32) {
	w := make([]byte, 5)
	w[0] = arincCmdTransmit
	binary.BigEndian.PutUint32(w[1:], word)
	if err := a.conn.Tx(w, nil); err != nil {
		a.lastErr = err
	}
}

// LoadCtrlRegister writes value and reads back the same bytes, reporting
// whether the readback matched (spec.md section 6).
func (a *ArincTransceiverSPI) LoadCtrlRegister(value uint16) bool {
	w := []byte{arincCmdLoadCtrl, byte(value >> 8), byte(value)}
	r := make([]byte, len(w))
	if err := a.conn.Tx(w, r); err != nil {
		a.lastErr = err
		return false
	}
	return r[1] == w[1] && r[2] == w[2]
}

// LoopbackTest enables self-test mode and checks for the known readback
// pattern up to loopbackMaxRetries times (transceiver.go).
func (a *ArincTransceiverSPI) LoopbackTest() bool {
	if err := a.conn.Tx([]byte{arincCmdSelfTest}, nil); err != nil {
		a.lastErr = err
		return false
	}
	for range loopbackMaxRetries {
		if a.ReadRx1() == loopbackRx1Expected && a.ReadRx2() == loopbackRx2Expected {
			return true
		}
	}
	return false
}

// SetupLabelFilter writes up to labelFilterMaxLabels labels to the hardware
// recognition filter and reads them back, retrying up to
// labelFilterMaxRetries times (transceiver.go).
func (a *ArincTransceiverSPI) SetupLabelFilter(labels []ArincLabel) bool {
	if len(labels) > labelFilterMaxLabels {
		return false
	}
	w := make([]byte, 1+len(labels))
	w[0] = arincCmdLabelFilter
	for i, l := range labels {
		w[1+i] = byte(l)
	}
	r := make([]byte, len(w))

	for range labelFilterMaxRetries {
		if err := a.conn.Tx(w, r); err != nil {
			a.lastErr = err
			continue
		}
		match := true
		for i := range labels {
			if r[1+i] != w[1+i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
