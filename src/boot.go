package avionics

/*------------------------------------------------------------------
 *
 * Purpose:	Power-on built-in test sequence: RAM test, program-CRC check,
 *		loopback, control-register load, label-filter readback.
 *
 * Description:	A failure at any step latches a boot fault in the returned
 *		BootResult. The Scheduler itself does not check it; the
 *		caller does (cmd/arincbridge idles instead of starting the
 *		tick loop when BootResult.OK is false). RAM
 *		test and program-CRC check are themselves out-of-scope
 *		external collaborators (section 1); they're represented here
 *		as injectable functions so boot sequencing can be exercised
 *		without real hardware.
 *
 *------------------------------------------------------------------*/

import "fmt"

// BootFault names which self-test step failed first.
type BootFault int

const (
	BootFaultNone BootFault = iota
	BootFaultRAMTest
	BootFaultProgramCRC
	BootFaultLoopback
	BootFaultCtrlRegister
	BootFaultLabelFilter
)

func (f BootFault) String() string {
	switch f {
	case BootFaultNone:
		return "none"
	case BootFaultRAMTest:
		return "RAM test failed"
	case BootFaultProgramCRC:
		return "program CRC check failed"
	case BootFaultLoopback:
		return "loopback self-test failed"
	case BootFaultCtrlRegister:
		return "control register load failed"
	case BootFaultLabelFilter:
		return "label filter setup failed"
	default:
		return "unknown boot fault"
	}
}

// BootResult is the outcome of RunBootSequence.
type BootResult struct {
	Fault BootFault
	OK    bool
}

// BootOptions bundles the external collaborators and hardware settings a
// boot sequence needs: the out-of-scope RAM/CRC self-tests, the
// transceivers to bring up, the control-register value to load, and the
// label sets to program into each transceiver's recognition filter.
type BootOptions struct {
	RunRAMTest     func() bool
	CheckProgramCRC func() bool

	ChannelA        Transceiver
	ChannelB        Transceiver
	CtrlRegisterVal uint16
	ChannelALabels  []ArincLabel
	ChannelBLabels  []ArincLabel
}

// RunBootSequence runs the power-on built-in tests in order, latching the
// first failure encountered and skipping the rest.
func RunBootSequence(opts BootOptions) (BootResult, error) {
	if opts.ChannelA == nil || opts.ChannelB == nil {
		return BootResult{}, fmt.Errorf("%w: RunBootSequence: nil transceiver", ErrConfiguration)
	}

	if opts.RunRAMTest != nil && !opts.RunRAMTest() {
		return BootResult{Fault: BootFaultRAMTest}, nil
	}
	if opts.CheckProgramCRC != nil && !opts.CheckProgramCRC() {
		return BootResult{Fault: BootFaultProgramCRC}, nil
	}

	if !opts.ChannelA.LoopbackTest() || !opts.ChannelB.LoopbackTest() {
		return BootResult{Fault: BootFaultLoopback}, nil
	}

	if !opts.ChannelA.LoadCtrlRegister(opts.CtrlRegisterVal) || !opts.ChannelB.LoadCtrlRegister(opts.CtrlRegisterVal) {
		return BootResult{Fault: BootFaultCtrlRegister}, nil
	}

	if err := ValidateLabelFilter(opts.ChannelALabels); err != nil {
		return BootResult{}, err
	}
	if err := ValidateLabelFilter(opts.ChannelBLabels); err != nil {
		return BootResult{}, err
	}
	if !opts.ChannelA.SetupLabelFilter(opts.ChannelALabels) || !opts.ChannelB.SetupLabelFilter(opts.ChannelBLabels) {
		return BootResult{Fault: BootFaultLabelFilter}, nil
	}

	return BootResult{Fault: BootFaultNone, OK: true}, nil
}
