package avionics

/*------------------------------------------------------------------
 *
 * Purpose:	Walk a fixed 3x16 byte table, emitting one software-version
 *		ARINC-429 word (label 0x7F, flipped) per call at the
 *		scheduler's 10 Hz rate.
 *
 * Description:	Subsystem 0 holds 8 ASCII-hex nibbles of the local program
 *		CRC followed by the 4 raw CRC bytes. Subsystems 1 and 2 (ADC
 *		and Pitot/AOA) are gathered over RS-422 at init via up to 10
 *		request/reply round trips. spec.md section 9 open question
 *		(c) notes the original used a 5 ms blocking delay per retry;
 *		swVersionGatherer.Poll replaces that with a non-blocking
 *		state machine driven by the Clock, so the scheduler's
 *		cooperative loop never stalls waiting on RS-422.
 *
 *------------------------------------------------------------------*/

import "fmt"

const (
	swVersionNumSubsystems = 3
	swVersionBytesPerSub   = 16
	swVersionLabel         = 0o177 // 0x7F; flips to 0xFE on the wire.

	swVersionMaxRoundTrips  = 10
	swVersionRoundTripMs    = 5
	swVersionReqFrameLen    = 7
	swVersionReplyFrameLen  = 0x19
)

// SwVersionTable is the fixed 3x16 byte table walked to produce version
// words: subsystem 0 is local, subsystems 1/2 are ADC and Pitot/AOA.
type SwVersionTable [swVersionNumSubsystems][swVersionBytesPerSub]byte

// BuildLocalVersionRow fills subsystem 0 with 8 ASCII-hex nibbles of crc
// followed by its 4 raw bytes, matching the table's 16-byte row width.
func BuildLocalVersionRow(crc uint32) [swVersionBytesPerSub]byte {
	const hexDigits = "0123456789ABCDEF"
	var row [swVersionBytesPerSub]byte
	for i := range 8 {
		shift := uint(28 - 4*i)
		nibble := (crc >> shift) & 0xF
		row[i] = hexDigits[nibble]
	}
	row[8] = byte(crc >> 24)
	row[9] = byte(crc >> 16)
	row[10] = byte(crc >> 8)
	row[11] = byte(crc)
	return row
}

// SwVersionGenerator walks the table, wrapping msg_idx within a subsystem
// row and sys_idx across subsystems, and packs each byte into a 32-bit word.
type SwVersionGenerator struct {
	Table  SwVersionTable
	msgIdx int
	sysIdx int
}

// NewSwVersionGenerator returns a generator starting at the first byte of
// subsystem 0.
func NewSwVersionGenerator(table SwVersionTable) *SwVersionGenerator {
	return &SwVersionGenerator{Table: table}
}

// Next emits one 32-bit word carrying the current {subsystem_index,
// message_sub_index, one_byte, sdi} and advances the walk.
func (g *SwVersionGenerator) Next(sdi uint8) uint32 {
	sysIdx := g.sysIdx
	msgIdx := g.msgIdx
	b := g.Table[sysIdx][msgIdx]

	word := uint32(OctalLabelToWire(swVersionLabel))
	word |= uint32(sdi&0x3) << 8
	word |= uint32(b) << 10
	word |= uint32(msgIdx&0xF) << 18
	word |= uint32(sysIdx&0x3) << 22

	g.msgIdx++
	if g.msgIdx >= swVersionBytesPerSub {
		g.msgIdx = 0
		g.sysIdx++
		if g.sysIdx >= swVersionNumSubsystems {
			g.sysIdx = 0
		}
	}
	return word
}

// GatherSwVersionTable builds the full 3x16 table for NewCore: subsystem 0
// from localCRC, subsystems 1 (ADC) and 2 (Pitot/AOA) gathered over adcPort
// via up to swVersionMaxRoundTrips RS-422 request/reply round trips each
// (spec.md section 4.7). Called once at startup; a subsystem whose gather
// never completes is left zeroed rather than failing the whole table.
func GatherSwVersionTable(clock Clock, adcPort RS422Port, localCRC uint32) (SwVersionTable, error) {
	var table SwVersionTable
	table[0] = BuildLocalVersionRow(localCRC)

	if adcPort == nil {
		return table, nil
	}

	for _, sysIdx := range [2]int{1, 2} {
		row, err := gatherSubsystemRow(clock, adcPort, sysIdx)
		if err != nil {
			return table, fmt.Errorf("GatherSwVersionTable: subsystem %d: %w", sysIdx, err)
		}
		table[sysIdx] = row
	}
	return table, nil
}

// gatherSubsystemRow drives one swVersionGatherer to completion, sending a
// swVersionReqFrameLen-byte request carrying sysIdx and reading a
// swVersionReplyFrameLen-byte reply whose first byte echoes sysIdx and next
// swVersionBytesPerSub bytes are the version row.
func gatherSubsystemRow(clock Clock, port RS422Port, sysIdx int) ([swVersionBytesPerSub]byte, error) {
	sendRequest := func() error {
		req := make([]byte, swVersionReqFrameLen)
		req[0] = byte(sysIdx)
		return port.WriteFrame(req)
	}
	tryReply := func() ([swVersionBytesPerSub]byte, bool, error) {
		var row [swVersionBytesPerSub]byte
		frame, ok, err := port.TryReadFrame()
		if err != nil || !ok {
			return row, false, err
		}
		if len(frame) < 1+swVersionBytesPerSub || frame[0] != byte(sysIdx) {
			return row, false, nil
		}
		copy(row[:], frame[1:1+swVersionBytesPerSub])
		return row, true, nil
	}

	g, err := newSwVersionGatherer(clock, sysIdx, sendRequest, tryReply)
	if err != nil {
		return [swVersionBytesPerSub]byte{}, err
	}
	for !g.Done {
		if err := g.Poll(); err != nil {
			return g.Result, err
		}
	}
	return g.Result, nil
}

// swVersionPhase names the non-blocking gather state machine's steps.
type swVersionPhase int

const (
	swVersionPhaseIdle swVersionPhase = iota
	swVersionPhaseAwaitingReply
	swVersionPhaseDone
)

// swVersionGatherer runs the ADC/Pitot-AOA version round trips without
// blocking the scheduler: each Poll call either sends the next request (if
// the retry deadline has elapsed) or checks for a reply, up to
// swVersionMaxRoundTrips tries, for one subsystem row at a time.
type swVersionGatherer struct {
	clock Clock

	sysIdx   int // 1 or 2: which subsystem row this gatherer fills.
	phase    swVersionPhase
	attempt  int
	deadline uint32

	sendRequest func() error
	tryReply    func() (row [swVersionBytesPerSub]byte, ok bool, err error)

	Result [swVersionBytesPerSub]byte
	Done   bool
}

// newSwVersionGatherer constructs a gatherer for ADC (sysIdx=1) or
// Pitot/AOA (sysIdx=2), given the RS-422 send/poll primitives to drive.
func newSwVersionGatherer(clock Clock, sysIdx int, sendRequest func() error, tryReply func() ([swVersionBytesPerSub]byte, bool, error)) (*swVersionGatherer, error) {
	if clock == nil {
		return nil, fmt.Errorf("%w: newSwVersionGatherer: nil clock", ErrConfiguration)
	}
	if sysIdx != 1 && sysIdx != 2 {
		return nil, fmt.Errorf("%w: newSwVersionGatherer: sysIdx must be 1 or 2, got %d", ErrConfiguration, sysIdx)
	}
	return &swVersionGatherer{clock: clock, sysIdx: sysIdx, sendRequest: sendRequest, tryReply: tryReply}, nil
}

// Poll advances the gather state machine by one step. It never blocks: it
// either issues the next request (gated on the 5 ms retry deadline) or
// checks for a pending reply, and gives up after swVersionMaxRoundTrips
// attempts. gatherSubsystemRow calls it repeatedly at startup until Done.
func (g *swVersionGatherer) Poll() error {
	if g.Done {
		return nil
	}

	now := g.clock.NowMs()

	switch g.phase {
	case swVersionPhaseIdle:
		if g.attempt >= swVersionMaxRoundTrips {
			g.Done = true
			return nil
		}
		if err := g.sendRequest(); err != nil {
			return fmt.Errorf("swVersionGatherer: send request for subsystem %d: %w", g.sysIdx, err)
		}
		g.attempt++
		g.deadline = now + swVersionRoundTripMs
		g.phase = swVersionPhaseAwaitingReply

	case swVersionPhaseAwaitingReply:
		row, ok, err := g.tryReply()
		if err != nil {
			return fmt.Errorf("swVersionGatherer: reply for subsystem %d: %w", g.sysIdx, err)
		}
		if ok {
			g.Result = row
			g.Done = true
			return nil
		}
		if elapsedMs(now, g.deadline-swVersionRoundTripMs) >= swVersionRoundTripMs {
			g.phase = swVersionPhaseIdle
		}
	}
	return nil
}
