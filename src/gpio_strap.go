package avionics

/*------------------------------------------------------------------
 *
 * Purpose:	Strap-pin mode selection, read once at startup to pick the
 *		output word width/label variant the derived-word engine
 *		targets (e.g. the 12-bit Eclipse narrowing described in
 *		spec.md section 4.5).
 *
 * Description:	Strap-pin reading is named in spec.md section 1 as an
 *		out-of-scope external collaborator; this is one concrete
 *		adapter for it, backed by a Linux GPIO character device via
 *		github.com/warthog618/go-gpiocdev.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOStrapReader reads a small set of strap pins once at boot and reports
// them as a bitfield, one bit per configured offset.
type GPIOStrapReader struct {
	lines []*gpiocdev.Line
}

// OpenGPIOStrapReader requests chip's GPIO lines at the given offsets as
// inputs.
func OpenGPIOStrapReader(chip string, offsets ...int) (*GPIOStrapReader, error) {
	r := &GPIOStrapReader{}
	for _, offset := range offsets {
		line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsInput)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("%w: OpenGPIOStrapReader: requesting %s offset %d: %w", ErrConfiguration, chip, offset, err)
		}
		r.lines = append(r.lines, line)
	}
	return r, nil
}

// Read samples every configured strap pin and packs them LSB-first into a
// bitfield.
func (r *GPIOStrapReader) Read() (uint32, error) {
	var bits uint32
	for i, line := range r.lines {
		v, err := line.Value()
		if err != nil {
			return 0, fmt.Errorf("%w: GPIOStrapReader.Read: line %d: %w", ErrInternal, i, err)
		}
		if v != 0 {
			bits |= 1 << uint(i)
		}
	}
	return bits, nil
}

// Close releases every requested line.
func (r *GPIOStrapReader) Close() error {
	var firstErr error
	for _, line := range r.lines {
		if err := line.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
