package avionics

/*------------------------------------------------------------------
 *
 * Purpose:	100 Hz cooperative scheduler: drain receive FIFOs, then run
 *		sub-rate transmit tasks at 50/20/~17/10 Hz with a receive
 *		drain interposed between each so a slow task can't let a
 *		FIFO overflow.
 *
 * Description:	Entry point advances only when a 100 Hz tick flag (set by
 *		the Transceiver Port's timer, out of scope here) is observed
 *		and cleared; RunTick represents one such observed tick.
 *		Sub-rate gating follows spec.md section 4.6's phase-offset
 *		table (0/7/2/3) reduced modulo each task's own period; the
 *		17 Hz task's mod-12==2 condition is given directly in the
 *		spec and kept verbatim.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"
)

// adcReplyFrameLen is the length of the RS-422 reply the bridge writes back
// to the ADC unit every 20 Hz cycle (spec.md section 4.6).
const adcReplyFrameLen = 9

// ahrsPassthroughLabels are republished from AHR to channel B at 50 Hz.
var ahrsPassthroughLabels = []uint8{0o326, 0o327, 0o330, 0o331}

// adcFastPassthroughLabels are republished from ADC to channel A at 50 Hz.
var adcFastPassthroughLabels = []uint8{0o206, 0o210, 0o221}

// adcSlowPassthroughLabels are republished from ADC to channel B at ~17 Hz,
// gated on baro-correction validity: the literal octal span 200..246 plus
// 271 and 377.
var adcSlowPassthroughLabels = buildADCSlowPassthroughLabels()

func buildADCSlowPassthroughLabels() []uint8 {
	labels := make([]uint8, 0, 0o246-0o200+1+2)
	for v := uint8(0o200); v <= 0o246; v++ {
		labels = append(labels, v)
	}
	labels = append(labels, 0o271, 0o377)
	return labels
}

// Scheduler drives Core's tick loop. TickCount is the free-running 100 Hz
// counter used for sub-rate phase gating.
type Scheduler struct {
	core      *Core
	TickCount uint64
}

// NewScheduler wraps a Core for tick-driven operation.
func NewScheduler(core *Core) *Scheduler {
	return &Scheduler{core: core}
}

func (s *Scheduler) passthrough(src *RxGroup, dst Transceiver, label uint8) {
	word, ok := src.GetLatestWord(label)
	if ok {
		s.xmit(dst, word)
	}
}

// xmit transmits word on dst and, when a structured logger is wired, logs it
// at the XMIT level. The wire label lives in word's own low byte, so no
// separate label argument is needed.
func (s *Scheduler) xmit(dst Transceiver, word uint32) {
	dst.Transmit(word)
	LogXmit(s.core.RunLog, ArincLabel(word&0xFF), word)
}

func (s *Scheduler) drainAHRPFD() {
	s.core.AHR.DrainFromTxvr(s.core.ChannelA.DataReadyRx1, s.core.ChannelA.ReadRx1)
	s.core.PFD.DrainFromTxvr(s.core.ChannelB.DataReadyRx1, s.core.ChannelB.ReadRx1)
}

// logBusFailureTransition ticks a group's bus-failure counter and records an
// event log entry the moment it newly latches (spec.md section 9's open
// question (a) companion: the bus timeout itself is silent in the core's
// control flow, but worth surfacing for later analysis).
func (s *Scheduler) logBusFailureTransition(name string, group *RxGroup) {
	wasFailed := group.HasBusFailed
	group.TickBusFailure()
	if group.HasBusFailed && !wasFailed && s.core.Logger != nil {
		s.core.Logger.Record("bus_failure", name) //nolint:errcheck // logging failures must not affect scheduling.
	}
}

func (s *Scheduler) drainADCFrame() error {
	if s.core.ADCPort == nil {
		return nil
	}
	frame, ok, err := s.core.ADCPort.TryReadFrame()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	for i := 0; i+4 <= len(frame); i += 4 {
		word := binary.BigEndian.Uint32(frame[i : i+4])
		s.core.ADC.ProcessReceived(word) //nolint:errcheck // malformed words are dropped silently, per the receive pipeline's contract.
	}
	return nil
}

func (s *Scheduler) transmitAHRSWords() {
	type producer func() (uint32, error)
	producers := []producer{
		s.core.Words.TurnRate,
		s.core.Words.SlipAngle,
		s.core.Words.NewMagHeading,
		s.core.Words.NewPitch,
		s.core.Words.NewRoll,
		s.core.Words.BodyLatAccel,
		s.core.Words.NormalAccel,
	}
	for _, p := range producers {
		if word, err := p(); err == nil {
			s.xmit(s.core.ChannelB, word)
		}
	}
	for _, label := range ahrsPassthroughLabels {
		s.passthrough(s.core.AHR, s.core.ChannelB, label)
	}
	for _, label := range adcFastPassthroughLabels {
		s.passthrough(s.core.ADC, s.core.ChannelA, label)
	}
}

// buildADCReplyFrame packs the bridge's current ADC-link health and
// baro-correction validity into the fixed-length RS-422 reply frame sent
// back to the ADC unit every 20 Hz cycle.
func buildADCReplyFrame(core *Core) []byte {
	frame := make([]byte, adcReplyFrameLen)
	if core.ADC.HasBusFailed {
		frame[0] |= 0x01
	}
	if core.Words.BaroCorrectionValid() {
		frame[0] |= 0x02
	}
	return frame
}

func (s *Scheduler) transmitStatusWords() error {
	r271, _, _ := s.core.AHR.GetLatestLabelData(OctalLabelToWire(0o271))
	r270, _, _ := s.core.AHR.GetLatestLabelData(OctalLabelToWire(0o270))
	r323, _, _ := s.core.AHR.GetLatestLabelData(OctalLabelToWire(0o323))
	adcTimeout := s.core.ADC.HasBusFailed

	s.xmit(s.core.ChannelB, AhrsStatus272(r271.RawWord, adcTimeout))
	s.xmit(s.core.ChannelB, AhrsStatus274(r271.RawWord, r270.RawWord, adcTimeout))
	s.xmit(s.core.ChannelB, AhrsStatus275(r271.RawWord, r323.SSM))

	if s.core.ADCPort == nil {
		return nil
	}
	if err := s.core.ADCPort.WriteFrame(buildADCReplyFrame(s.core)); err != nil {
		return fmt.Errorf("transmitStatusWords: ADC reply: %w", err)
	}
	return nil
}

func (s *Scheduler) transmitADCSlowPassthrough() {
	if !s.core.Words.BaroCorrectionValid() {
		return
	}
	for _, label := range adcSlowPassthroughLabels {
		s.passthrough(s.core.ADC, s.core.ChannelB, label)
	}
}

func (s *Scheduler) transmitSoftwareVersion() {
	word := s.core.SwVersion.Next(0)
	s.xmit(s.core.ChannelB, word)
}

// RunTick executes one observed 100 Hz tick: receive drains, bus-failure
// bookkeeping, then the sub-rate transmit tasks whose phase condition
// matches this tick, each followed by another AHR drain.
func (s *Scheduler) RunTick() error {
	s.drainAHRPFD()
	if err := s.drainADCFrame(); err != nil {
		return err
	}

	s.logBusFailureTransition("AHR", s.core.AHR)
	s.logBusFailureTransition("PFD", s.core.PFD)
	s.logBusFailureTransition("ADC", s.core.ADC)

	tick := s.TickCount

	if tick%2 == 0 { // 50 Hz, phase offset 0.
		s.transmitAHRSWords()
		s.drainAHRPFD()
	}
	if tick%5 == 2 { // 20 Hz, phase offset 7 (mod 5 == 2).
		if err := s.transmitStatusWords(); err != nil {
			return err
		}
		s.drainAHRPFD()
	}
	if tick%12 == 2 { // ~17 Hz, mod 12 == 2 verbatim.
		s.transmitADCSlowPassthrough()
		s.drainAHRPFD()
	}
	if tick%10 == 3 { // 10 Hz, phase offset 3.
		s.transmitSoftwareVersion()
	}

	s.TickCount++
	return nil
}
