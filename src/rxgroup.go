package avionics

/*------------------------------------------------------------------
 *
 * Purpose:	Accept raw ARINC-429 words, dispatch by label, maintain
 *		timestamped slots plus babble/freshness/bus-failure state.
 *
 * Description: A RxGroup owns one ordered (LabelConfig, RxSlot) pair per
 *		configured label for one receive source (e.g. the AHR
 *		transceiver's channel, or the PFD's). Lookup is linear over
 *		at most 64 entries - small enough that a linear scan beats
 *		the bookkeeping of a hash map, and it keeps the group free
 *		of dynamic allocation after construction.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"

	"github.com/charmbracelet/log"
)

const (
	maxLabelsPerGroup = 64 // spec.md section 4.2.
	maxFIFODrain      = 32 // spec.md section 4.3, drain_from_txvr.
)

// RxGroup is an ordered sequence of (LabelConfig, RxSlot) pairs for one
// receive source, plus the bus-failure timeout state for that source.
// Constructed at init; mutated only by the receive pipeline and the
// scheduler's tick_bus_failure call.
type RxGroup struct {
	configs []LabelConfig
	slots   []RxSlot

	MaxBusFailureCounts uint32
	CurrentCounts        uint32
	HasBusFailed         bool

	// ParityErrorCount answers spec.md section 9 open question (a): the
	// source treats parity-error discards silently. We count them for
	// visibility without changing drain_from_txvr's discard behavior.
	ParityErrorCount uint64

	// RunLog receives a REC/DECODED pair for every successful receive, when
	// set. Nil-safe: a group built without one (most tests) logs nothing.
	RunLog *log.Logger

	clock Clock
}

// NewRxGroup validates that labels are unique (invariant: labels within a
// group are unique) and bounded to maxLabelsPerGroup, then constructs the
// group. This is a configuration-time operation; failures here are fatal,
// never surfaced at runtime.
func NewRxGroup(clock Clock, maxBusFailureCounts uint32, configs []LabelConfig) (*RxGroup, error) {
	if clock == nil {
		return nil, fmt.Errorf("%w: NewRxGroup: nil clock", ErrConfiguration)
	}
	if len(configs) > maxLabelsPerGroup {
		return nil, fmt.Errorf("%w: NewRxGroup: %d labels exceeds max of %d", ErrConfiguration, len(configs), maxLabelsPerGroup)
	}

	seen := make(map[ArincLabel]bool, len(configs))
	for _, c := range configs {
		if seen[c.Label] {
			return nil, fmt.Errorf("%w: NewRxGroup: duplicate label %02X", ErrConfiguration, c.Label)
		}
		seen[c.Label] = true
	}

	g := &RxGroup{
		configs:             append([]LabelConfig(nil), configs...),
		slots:               make([]RxSlot, len(configs)),
		MaxBusFailureCounts: maxBusFailureCounts,
		clock:               clock,
	}
	return g, nil
}

// indexOf returns the slot index for a label, or -1. First match wins;
// duplicates were already rejected at construction.
func (g *RxGroup) indexOf(label ArincLabel) int {
	for i := range g.configs {
		if g.configs[i].Label == label {
			return i
		}
	}
	return -1
}

// Config returns the LabelConfig for a label, for callers (the derived-word
// engine) that need to read configuration without touching slot state.
func (g *RxGroup) Config(label ArincLabel) (*LabelConfig, bool) {
	i := g.indexOf(label)
	if i < 0 {
		return nil, false
	}
	return &g.configs[i], true
}

// ProcessReceived decodes one raw word, dispatches it by label, and updates
// the matching slot's freshness/babble bookkeeping. spec.md section 4.3.
func (g *RxGroup) ProcessReceived(word uint32) (ReadStatus, error) {
	label := ArincLabel(word & 0xFF)
	i := g.indexOf(label)
	if i < 0 {
		return ReadNoMatchingLabel, ErrNoMatchingLabel
	}

	cfg := &g.configs[i]
	var fields RxFields
	var err error
	switch cfg.MsgType {
	case BNR:
		fields, err = DecodeBNR(cfg, word)
	case BCD:
		fields, err = DecodeBCD(cfg, word)
	case Discrete:
		fields, err = DecodeDiscrete(cfg, word)
	default:
		return ReadDecodeError, fmt.Errorf("%w: ProcessReceived: label %02X has unknown message type", ErrInternal, label)
	}
	if err != nil {
		return ReadDecodeError, err
	}

	LogRec(g.RunLog, label, word)
	LogDecoded(g.RunLog, label, fields)

	slot := &g.slots[i]
	now := g.clock.NowMs()

	// Step 4: babbling is evaluated against the *previous* LastGoodMs,
	// before it gets overwritten below.
	if slot.everReceived {
		slot.IsNotBabbling = elapsedMs(now, slot.LastGoodMs) >= cfg.MinTransmitIntervalMs
	} else {
		// Nothing to compare against yet; the first receipt can't be
		// babbling relative to a prior one.
		slot.IsNotBabbling = true
	}

	slot.RawWord = word
	slot.SSM = fields.SSM
	slot.SDI = fields.SDI
	slot.EngFloat = fields.EngFloat
	slot.EngInt = fields.EngInt
	slot.DiscreteBits = fields.DiscreteBits
	slot.LastGoodMs = now
	slot.everReceived = true

	return ReadSuccess, nil
}

// GetLatestLabelData copies the slot for a label and recomputes IsFresh
// against the current clock (invariant 4: freshness is never cached).
func (g *RxGroup) GetLatestLabelData(label ArincLabel) (RxSlot, bool, GetStatus) {
	i := g.indexOf(label)
	if i < 0 {
		return RxSlot{}, false, GetNoMatchingLabel
	}
	cfg := &g.configs[i]
	out := g.slots[i]
	isFresh := out.everReceived && elapsedMs(g.clock.NowMs(), out.LastGoodMs) <= cfg.MaxTransmitIntervalMs
	return out, isFresh, GetSuccess
}

// GetLatestWord reports whether a label exists, is fresh, and is not
// babbling - the standard gate before republishing a received value.
func (g *RxGroup) GetLatestWord(octalLabel uint8) (uint32, bool) {
	label := OctalLabelToWire(octalLabel)
	slot, isFresh, status := g.GetLatestLabelData(label)
	if status != GetSuccess {
		return 0, false
	}
	return slot.RawWord, isFresh && slot.IsNotBabbling
}

// DrainFromTxvr pulls up to maxFIFODrain words from a transceiver FIFO,
// discarding parity-errored words, and dispatches the rest through
// ProcessReceived. On a successful parse, the bus-failure counter resets
// to zero.
func (g *RxGroup) DrainFromTxvr(dataReady func() bool, readWord func() uint32) {
	for range maxFIFODrain {
		if !dataReady() {
			break
		}
		word := readWord()

		const parityErrorBit = 1 << 31
		if word&parityErrorBit != 0 {
			g.ParityErrorCount++
			continue
		}

		status, _ := g.ProcessReceived(word)
		if status == ReadSuccess {
			g.CurrentCounts = 0
		}
	}
}

// TickBusFailure is called once per 10 ms scheduler tick: it increments the
// bus-failure counter and reports whether the group has now timed out.
func (g *RxGroup) TickBusFailure() bool {
	g.CurrentCounts++
	g.HasBusFailed = g.CurrentCounts >= g.MaxBusFailureCounts
	return g.HasBusFailed
}
