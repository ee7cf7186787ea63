package avionics

/*------------------------------------------------------------------
 *
 * Purpose:	Convert between 32-bit ARINC-429 words and typed message
 *		values (BNR/BCD/Discrete).
 *
 * Description:	Wire layout, bit 1..32, LSB..MSB (bit 32 is parity and is
 *		assumed to be hardware-managed; we never look at it):
 *
 *			[label:8][SDI:2 | data-low][data:...][SSM:2][parity:1]
 *
 *		All shifts below operate on 0-indexed bit positions, i.e.
 *		bit 0 is the LSB. Label occupies bits 0-7, SDI bits 8-9,
 *		the data field bits 10-28 (19 bits), SSM bits 29-30.
 *
 *		Arithmetic on signed fields is done with a 32-bit widened
 *		intermediate (int32 / int64) so rounding and clamping never
 *		silently truncate.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"math"
)

// SSM is the 2-bit sign/status matrix field. Its meaning depends on the
// message type it is attached to; the named constants below are the two
// conventional interpretations.
type SSM uint8

const (
	ssm0 SSM = 0
	ssm1 SSM = 1
	ssm2 SSM = 2
	ssm3 SSM = 3
)

// BNR sign/status matrix values.
const (
	BnrNormalOperation SSM = ssm0
	BnrNoComputedData  SSM = ssm1
	BnrFunctionalTest  SSM = ssm2
	BnrFailureWarning  SSM = ssm3
)

// BCD sign/status matrix values; encodes sign rather than plain validity.
const (
	BcdPlus         SSM = ssm0
	BcdNoComputedData SSM = ssm1
	BcdFunctionalTest SSM = ssm2
	BcdMinus        SSM = ssm3
)

const (
	dataFieldBitOffset = 10 // bit where the data field (and discrete bits) start.
	dataFieldWidth     = 19 // bits 10..28 inclusive.
	ssmBitOffset       = 29
	sdiBitOffset       = 8
)

// RxFields is the decoded result of one ARINC-429 word, as produced by the
// three type-specific decoders.
type RxFields struct {
	EngFloat     float64
	EngInt       int32
	DiscreteBits uint32
	SSM          SSM
	SDI          uint8
}

// TxMsg is produced ephemerally by the derived-word engine and consumed by
// the encoder. Config is a borrowed reference into the constant label
// table; TxMsg itself is never stored.
type TxMsg struct {
	Config       *LabelConfig
	SSM          SSM
	SDI          uint8
	EngValue     float64
	DiscreteBits uint32
}

// roundHalfAwayFromZero rounds to the nearest integer, ties away from zero,
// matching the avionics convention for converting floats to counts.
func roundHalfAwayFromZero(v float64) float64 {
	if v >= 0 {
		return math.Floor(v + 0.5)
	}
	return math.Ceil(v - 0.5)
}

// clampToInt32 clamps a float64 to the representable range of an int32.
func clampToInt32(v float64) int32 {
	switch {
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	default:
		return int32(v)
	}
}

// signExtend interprets the low `bits` bits of v as a two's complement
// value and sign-extends it into an int32.
func signExtend(v uint32, bits int) int32 {
	shift := uint(32 - bits)
	return int32(v<<shift) >> shift
}

func discreteMask(numDiscreteBits int) uint32 {
	if numDiscreteBits <= 0 {
		return 0
	}
	return (uint32(1) << uint(numDiscreteBits)) - 1
}

// extractAuxDiscreteBits pulls the optional discrete-bit field that BNR and
// BCD messages may carry alongside their numeric data, starting at bit 10.
func extractAuxDiscreteBits(word uint32, numDiscreteBits int) uint32 {
	if numDiscreteBits <= 0 {
		return 0
	}
	return (word >> dataFieldBitOffset) & discreteMask(numDiscreteBits)
}

// DecodeBNR parses a BNR (two's-complement binary) word.
func DecodeBNR(cfg *LabelConfig, word uint32) (RxFields, error) {
	if cfg == nil {
		return RxFields{}, fmt.Errorf("%w: DecodeBNR: nil config", ErrInvalidArgument)
	}
	if cfg.NumSigBits < 1 || cfg.NumSigBits > 20 {
		return RxFields{}, fmt.Errorf("%w: DecodeBNR: num_sig_bits %d out of range", ErrInvalidArgument, cfg.NumSigBits)
	}

	shift := uint(28 - cfg.NumSigBits)
	fieldBits := cfg.NumSigBits + 1 // includes the sign bit.
	mask := (uint32(1) << uint(fieldBits)) - 1
	raw := (word >> shift) & mask

	signed := signExtend(raw, fieldBits)
	engFloat := float64(signed) * cfg.Resolution
	engInt := clampToInt32(roundHalfAwayFromZero(engFloat))

	var discreteBits uint32
	if cfg.NumDiscreteBits > 0 {
		discreteBits = extractAuxDiscreteBits(word, cfg.NumDiscreteBits)
	}

	ssmVal := SSM((word >> ssmBitOffset) & 0x3)

	var sdi uint8
	if cfg.sdiExposed() {
		sdi = uint8((word >> sdiBitOffset) & 0x3)
	}

	return RxFields{
		EngFloat:     engFloat,
		EngInt:       engInt,
		DiscreteBits: discreteBits,
		SSM:          ssmVal,
		SDI:          sdi,
	}, nil
}

// DecodeBCD parses a BCD (binary-coded decimal) word.
func DecodeBCD(cfg *LabelConfig, word uint32) (RxFields, error) {
	if cfg == nil {
		return RxFields{}, fmt.Errorf("%w: DecodeBCD: nil config", ErrInvalidArgument)
	}
	if cfg.NumSigDigits < 1 || cfg.NumSigDigits > 5 {
		return RxFields{}, fmt.Errorf("%w: DecodeBCD: num_sig_digits %d out of range", ErrInvalidArgument, cfg.NumSigDigits)
	}
	if cfg.NumSigDigits*4-1+cfg.NumDiscreteBits > 19 {
		return RxFields{}, fmt.Errorf("%w: DecodeBCD: field width exceeds 19 bits", ErrInvalidArgument)
	}

	var engFloat float64
	var pow10 = 1.0
	for i := range cfg.NumSigDigits {
		width := 4
		if i == cfg.NumSigDigits-1 {
			width = 3 // most-significant character: only 3 bits available.
		}
		shift := uint(dataFieldBitOffset + 4*i)
		digitMask := uint32(1)<<uint(width) - 1
		digit := (word >> shift) & digitMask
		if digit > 9 {
			return RxFields{}, fmt.Errorf("%w: DecodeBCD: digit %d out of range (%d)", ErrInvalidMessage, i, digit)
		}
		engFloat += float64(digit) * pow10 * cfg.Resolution
		pow10 *= 10
	}

	engInt := clampToInt32(roundHalfAwayFromZero(engFloat))

	var discreteBits uint32
	if cfg.NumDiscreteBits > 0 {
		discreteBitsShift := uint(dataFieldBitOffset + 4*cfg.NumSigDigits - 1)
		discreteBits = (word >> discreteBitsShift) & discreteMask(cfg.NumDiscreteBits)
	}

	ssmVal := SSM((word >> ssmBitOffset) & 0x3)
	sdi := uint8((word >> sdiBitOffset) & 0x3)

	return RxFields{
		EngFloat:     engFloat,
		EngInt:       engInt,
		DiscreteBits: discreteBits,
		SSM:          ssmVal,
		SDI:          sdi,
	}, nil
}

// DecodeDiscrete parses a pure Discrete (bit-field, no numeric meaning)
// word. Engineering fields are always zero.
func DecodeDiscrete(cfg *LabelConfig, word uint32) (RxFields, error) {
	if cfg == nil {
		return RxFields{}, fmt.Errorf("%w: DecodeDiscrete: nil config", ErrInvalidArgument)
	}
	if cfg.NumDiscreteBits < 1 || cfg.NumDiscreteBits > 19 {
		return RxFields{}, fmt.Errorf("%w: DecodeDiscrete: num_discrete_bits %d out of range", ErrInvalidArgument, cfg.NumDiscreteBits)
	}

	discreteBits := (word >> dataFieldBitOffset) & discreteMask(cfg.NumDiscreteBits)
	ssmVal := SSM((word >> ssmBitOffset) & 0x3)
	sdi := uint8((word >> sdiBitOffset) & 0x3)

	return RxFields{
		DiscreteBits: discreteBits,
		SSM:          ssmVal,
		SDI:          sdi,
	}, nil
}

// EncodeBNR assembles a BNR word, clipping eng_value to the widest
// representable value on overflow rather than wrapping.
func EncodeBNR(tx TxMsg) (uint32, EncodeStatus, error) {
	cfg := tx.Config
	if cfg == nil {
		return 0, 0, fmt.Errorf("%w: EncodeBNR: nil config", ErrInvalidArgument)
	}
	if cfg.NumSigBits < 1 || cfg.NumSigBits > 20 {
		return 0, 0, fmt.Errorf("%w: EncodeBNR: num_sig_bits %d out of range", ErrInvalidArgument, cfg.NumSigBits)
	}

	v := int64(roundHalfAwayFromZero(tx.EngValue / cfg.Resolution))

	maxRepresentable := int64(1)<<uint(cfg.NumSigBits) - 1
	minRepresentable := -(int64(1) << uint(cfg.NumSigBits))

	status := Success
	if v > maxRepresentable {
		v = maxRepresentable
		status = SentDataClipped
	} else if v < minRepresentable {
		v = minRepresentable
		status = SentDataClipped
	}

	fieldBits := cfg.NumSigBits + 1
	fieldMask := uint32(1)<<uint(fieldBits) - 1
	raw := uint32(v) & fieldMask

	shift := uint(28 - cfg.NumSigBits)
	var word uint32
	word |= raw << shift
	word |= uint32(cfg.Label)
	word |= (uint32(tx.SSM) & 0x3) << ssmBitOffset

	if cfg.NumDiscreteBits > 0 {
		word |= (tx.DiscreteBits & discreteMask(cfg.NumDiscreteBits)) << dataFieldBitOffset
	}
	if cfg.sdiExposed() {
		word |= (uint32(tx.SDI) & 0x3) << sdiBitOffset
	}

	return word, status, nil
}

// EncodeBCD assembles a BCD word. eng_value must be non-negative: BCD
// conveys sign through the SSM field, not through the data field.
func EncodeBCD(tx TxMsg) (uint32, EncodeStatus, error) {
	cfg := tx.Config
	if cfg == nil {
		return 0, 0, fmt.Errorf("%w: EncodeBCD: nil config", ErrInvalidArgument)
	}
	if cfg.NumSigDigits < 1 || cfg.NumSigDigits > 5 {
		return 0, 0, fmt.Errorf("%w: EncodeBCD: num_sig_digits %d out of range", ErrInvalidArgument, cfg.NumSigDigits)
	}
	if tx.EngValue < 0 {
		return 0, 0, fmt.Errorf("%w: EncodeBCD: negative eng_value %v (sign belongs in SSM)", ErrInvalidMsgData, tx.EngValue)
	}

	units := int64(roundHalfAwayFromZero(tx.EngValue / cfg.Resolution))

	digits := make([]int64, cfg.NumSigDigits)
	remaining := units
	for i := range cfg.NumSigDigits {
		digits[i] = remaining % 10
		remaining /= 10
	}

	status := Success
	msc := cfg.NumSigDigits - 1
	if digits[msc] > 7 { // most-significant character only has 3 bits.
		for i := range digits {
			digits[i] = 9
		}
		digits[msc] = 7
		status = SentDataClipped
	}

	var raw uint32
	for i, d := range digits {
		width := 4
		if i == msc {
			width = 3
		}
		mask := uint32(1)<<uint(width) - 1
		raw |= (uint32(d) & mask) << uint(4*i)
	}

	fieldWidth := cfg.NumSigDigits*4 - 1
	fieldMask := uint32(1)<<uint(fieldWidth) - 1
	raw &= fieldMask

	var word uint32
	word |= raw << dataFieldBitOffset
	word |= uint32(cfg.Label)
	word |= (uint32(tx.SSM) & 0x3) << ssmBitOffset
	word |= (uint32(tx.SDI) & 0x3) << sdiBitOffset

	if cfg.NumDiscreteBits > 0 {
		discreteShift := uint(dataFieldBitOffset + fieldWidth)
		word |= (tx.DiscreteBits & discreteMask(cfg.NumDiscreteBits)) << discreteShift
	}

	return word, status, nil
}

// EncodeDiscrete assembles a pure Discrete word. The discrete bits are
// packed against the top of the 19-bit data field (i.e. adjacent to SSM),
// with any unused low-order bits left as zero padding. This mirrors the
// Eclipse encoder this package is modeled on; decode_discrete, by contrast,
// always reads starting at bit 10 (matching the auxiliary discrete-bit
// extraction used by BNR/BCD), so a Discrete word does not necessarily
// round-trip byte-for-byte through Encode/Decode when num_discrete_bits is
// less than the full 19-bit field. This asymmetry is inherited behavior,
// not a bug: Discrete messages are bit fields consumed by convention
// agreed upstream, not a value this package needs to round-trip.
func EncodeDiscrete(tx TxMsg) (uint32, error) {
	cfg := tx.Config
	if cfg == nil {
		return 0, fmt.Errorf("%w: EncodeDiscrete: nil config", ErrInvalidArgument)
	}
	if cfg.NumDiscreteBits < 1 || cfg.NumDiscreteBits > 19 {
		return 0, fmt.Errorf("%w: EncodeDiscrete: num_discrete_bits %d out of range", ErrInvalidArgument, cfg.NumDiscreteBits)
	}

	shift := uint(dataFieldBitOffset + dataFieldWidth - cfg.NumDiscreteBits)

	var word uint32
	word |= (tx.DiscreteBits & discreteMask(cfg.NumDiscreteBits)) << shift
	word |= uint32(cfg.Label)
	word |= (uint32(tx.SSM) & 0x3) << ssmBitOffset
	word |= (uint32(tx.SDI) & 0x3) << sdiBitOffset

	return word, nil
}

// CheckBNRValidity returns BnrFailureWarning when eng is outside the
// label's configured valid range, else BnrNormalOperation. A label with no
// configured range is always considered valid.
func CheckBNRValidity(eng float64, cfg *LabelConfig) SSM {
	if cfg == nil {
		return BnrFailureWarning
	}
	if cfg.MinValidValue != nil && eng < *cfg.MinValidValue {
		return BnrFailureWarning
	}
	if cfg.MaxValidValue != nil && eng > *cfg.MaxValidValue {
		return BnrFailureWarning
	}
	return BnrNormalOperation
}
