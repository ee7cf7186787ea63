package avionics

/*------------------------------------------------------------------
 *
 * Purpose:	Label identity and per-label configuration.
 *
 * Description:	An ARINC-429 label is an 8-bit value.  Avionics documents
 *		print it in octal (e.g. "320"), but the transceiver delivers
 *		it bit-reversed within the byte because the hardware shifts
 *		words out LSB-first.  Every LabelConfig stored in a RxGroup
 *		uses the wire-order form so label lookup never has to
 *		un-reverse anything on the receive hot path.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"strconv"
	"strings"
)

// ArincLabel is the wire-order (bit-reversed) form of an 8-bit ARINC-429
// label, as it is actually found in bits 0-7 of a received word.
type ArincLabel uint8

// reverseBits8 reverses the bit order of a byte: bit 0 <-> bit 7, etc.
func reverseBits8(b uint8) uint8 {
	var r uint8
	for range 8 {
		r <<= 1
		r |= b & 1
		b >>= 1
	}
	return r
}

// OctalLabelToWire converts an octal-printed-form label (0-255, as it reads
// on a panel or in a config file) into the bit-reversed wire-order form
// used everywhere else in this package. This is a compile-/config-time
// helper only - it is never called on the receive hot path.
func OctalLabelToWire(octalValue uint8) ArincLabel {
	return ArincLabel(reverseBits8(octalValue))
}

// ParseOctalLabel parses a label written in octal text (as avionics
// documentation always does, e.g. "320", "0o320", "0320") and returns its
// wire-order form.
func ParseOctalLabel(s string) (ArincLabel, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0o"), 8, 8)
	if err != nil {
		return 0, fmt.Errorf("avionics: invalid octal label %q: %w", s, err)
	}
	return OctalLabelToWire(uint8(v)), nil
}

// MessageType is the data encoding carried by a label.
type MessageType int

const (
	BNR MessageType = iota
	BCD
	Discrete
)

func (t MessageType) String() string {
	switch t {
	case BNR:
		return "BNR"
	case BCD:
		return "BCD"
	case Discrete:
		return "Discrete"
	default:
		return "unknown"
	}
}

// LabelConfig is immutable once returned by NewLabelConfig. Only the fields
// relevant to MsgType are meaningful; the rest are zero.
type LabelConfig struct {
	Label   ArincLabel
	MsgType MessageType

	// BNR
	NumSigBits    int // [1,20], magnitude bits, excludes the sign bit.
	Resolution    float64
	MinValidValue *float64
	MaxValidValue *float64

	// BCD
	NumSigDigits int // [1,5]

	// BNR/BCD (optional) and Discrete (required)
	NumDiscreteBits int // [0,19] for BNR/BCD, [1,19] for Discrete.

	// Common transmit-interval timing.
	MinTransmitIntervalMs uint32
	MaxTransmitIntervalMs uint32
}

// NewLabelConfig validates the invariants of spec.md section 3 and returns
// an immutable LabelConfig. Failures here are configuration errors: fatal
// at init, never surfaced at runtime.
func NewLabelConfig(cfg LabelConfig) (*LabelConfig, error) {
	if cfg.MinTransmitIntervalMs > cfg.MaxTransmitIntervalMs {
		return nil, fmt.Errorf("%w: label %02X: min_transmit_interval_ms %d > max_transmit_interval_ms %d",
			ErrConfiguration, cfg.Label, cfg.MinTransmitIntervalMs, cfg.MaxTransmitIntervalMs)
	}

	switch cfg.MsgType {
	case BNR:
		if cfg.NumSigBits < 1 || cfg.NumSigBits > 20 {
			return nil, fmt.Errorf("%w: label %02X: BNR num_sig_bits %d out of [1,20]",
				ErrConfiguration, cfg.Label, cfg.NumSigBits)
		}
		// Invariant 2: above 18 significant bits, the SDI position carries
		// data, not a source/destination identifier.
	case BCD:
		if cfg.NumSigDigits < 1 || cfg.NumSigDigits > 5 {
			return nil, fmt.Errorf("%w: label %02X: BCD num_sig_digits %d out of [1,5]",
				ErrConfiguration, cfg.Label, cfg.NumSigDigits)
		}
		if width := cfg.NumSigDigits*4 - 1 + cfg.NumDiscreteBits; width > 19 {
			return nil, fmt.Errorf("%w: label %02X: BCD field width %d exceeds 19 bits (num_sig_digits=%d, num_discrete_bits=%d)",
				ErrConfiguration, cfg.Label, width, cfg.NumSigDigits, cfg.NumDiscreteBits)
		}
	case Discrete:
		if cfg.NumDiscreteBits < 1 || cfg.NumDiscreteBits > 19 {
			return nil, fmt.Errorf("%w: label %02X: Discrete num_discrete_bits %d out of [1,19]",
				ErrConfiguration, cfg.Label, cfg.NumDiscreteBits)
		}
	default:
		return nil, fmt.Errorf("%w: label %02X: unknown message type %v", ErrConfiguration, cfg.Label, cfg.MsgType)
	}

	out := cfg
	return &out, nil
}

// sdiExposed reports whether the SDI bit field (bits 8-9) is a real
// source/destination identifier for this label, as opposed to data bits
// folded in because the BNR field needed more than 18 significant bits.
func (c *LabelConfig) sdiExposed() bool {
	return c.MsgType != BNR || c.NumSigBits <= 18
}
