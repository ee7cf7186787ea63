package avionics

/*------------------------------------------------------------------
 *
 * Purpose:	Core owns every piece of mutable state in the bridge: the
 *		three RxGroups, the derived-word engine, the transceivers,
 *		the clock, and the software-version generator. spec.md
 *		section 9: "process-wide statics -> owned state ... no
 *		hidden globals."
 *
 *------------------------------------------------------------------*/

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// RS422Port is the port contract for the ADC link (spec.md section 6): the
// core only exchanges opaque byte buffers with it, never framing them
// itself.
type RS422Port interface {
	// TryReadFrame returns the next complete frame, if one is ready.
	TryReadFrame() (frame []byte, ok bool, err error)
	WriteFrame(frame []byte) error
}

// Core bundles every stateful piece the scheduler drives. Constructed once
// at startup and threaded through every tick; nothing here is a package
// global.
type Core struct {
	Clock Clock

	ChannelA Transceiver // AHR transceiver.
	ChannelB Transceiver // PFD transceiver.
	ADCPort  RS422Port

	AHR *RxGroup
	PFD *RxGroup
	ADC *RxGroup

	Words *DerivedWordEngine

	SwVersion *SwVersionGenerator

	BusFault BootFault
	Logger   *EventLog   // daily-rotating CSV of bus events.
	RunLog   *log.Logger // structured REC/DECODED/XMIT/DEBUG logging.
}

// CoreOptions bundles the configuration NewCore needs to build each piece.
type CoreOptions struct {
	Clock    Clock
	ChannelA Transceiver
	ChannelB Transceiver
	ADCPort  RS422Port

	Config *Config

	SwVersionTable SwVersionTable

	// EclipseNarrow selects the 12-bit narrowed new-mag-heading output,
	// normally read once at boot from strap pins (gpio_strap.go).
	EclipseNarrow bool

	Logger *EventLog
	RunLog *log.Logger
}

// NewCore validates and wires every owned component from Config's label
// tables and filter/differentiator coefficients.
func NewCore(opts CoreOptions) (*Core, error) {
	if opts.Clock == nil {
		return nil, fmt.Errorf("%w: NewCore: nil clock", ErrConfiguration)
	}
	if opts.ChannelA == nil || opts.ChannelB == nil {
		return nil, fmt.Errorf("%w: NewCore: nil transceiver", ErrConfiguration)
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("%w: NewCore: nil config", ErrConfiguration)
	}

	ahr, err := NewRxGroup(opts.Clock, opts.Config.MaxBusFailureCounts, opts.Config.AHRLabels)
	if err != nil {
		return nil, fmt.Errorf("NewCore: AHR group: %w", err)
	}
	pfd, err := NewRxGroup(opts.Clock, opts.Config.MaxBusFailureCounts, opts.Config.PFDLabels)
	if err != nil {
		return nil, fmt.Errorf("NewCore: PFD group: %w", err)
	}
	adc, err := NewRxGroup(opts.Clock, opts.Config.MaxBusFailureCounts, opts.Config.ADCLabels)
	if err != nil {
		return nil, fmt.Errorf("NewCore: ADC group: %w", err)
	}

	ahr.RunLog, pfd.RunLog, adc.RunLog = opts.RunLog, opts.RunLog, opts.RunLog

	words, err := NewDerivedWordEngine(ahr,
		opts.Config.Filter.K1, opts.Config.Filter.K2,
		opts.Config.Differentiator.K1, opts.Config.Differentiator.SampleRateHz,
		opts.Config.Differentiator.LowerLimit, opts.Config.Differentiator.UpperLimit,
		opts.Config.Differentiator.LowerDelta, opts.Config.Differentiator.UpperDelta,
		opts.EclipseNarrow)
	if err != nil {
		return nil, fmt.Errorf("NewCore: derived word engine: %w", err)
	}

	return &Core{
		Clock:     opts.Clock,
		ChannelA:  opts.ChannelA,
		ChannelB:  opts.ChannelB,
		ADCPort:   opts.ADCPort,
		AHR:       ahr,
		PFD:       pfd,
		ADC:       adc,
		Words:     words,
		SwVersion: NewSwVersionGenerator(opts.SwVersionTable),
		Logger:    opts.Logger,
		RunLog:    opts.RunLog,
	}, nil
}
