package main

/*------------------------------------------------------------------
 *
 * Purpose:	Main program for the ARINC-429 bridge: loads configuration,
 *		runs the power-on built-in tests, and drives the 100 Hz
 *		scheduler loop until told to stop.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"hash/crc32"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	avionics "github.com/kg-avionics/arinc429bridge/src"
)

func main() {
	var chanABus = pflag.StringP("channel-a-spi", "a", "", "SPI bus for the AHR ARINC-429 transceiver chip (spireg name, empty for the first bus found).")
	var chanBBus = pflag.StringP("channel-b-spi", "b", "", "SPI bus for the PFD ARINC-429 transceiver chip (spireg name, empty for the first bus found).")
	var chanHz = pflag.Int64P("channel-speed-hz", "s", 1_000_000, "SPI clock speed for the transceiver chips.")
	var adcDevice = pflag.StringP("adc-device", "d", "/dev/ttyS2", "Serial device for the RS-422 ADC link.")
	var strapChip = pflag.StringP("strap-chip", "c", "", "GPIO chardev for strap-pin mode selection (empty disables strap reading).")
	var strapOffset = pflag.IntP("strap-eclipse-offset", "e", 0, "GPIO line offset selecting the Eclipse-narrowed new-mag-heading output.")
	var logDir = pflag.StringP("log-dir", "l", ".", "Directory for the daily-rotating bus event log.")
	var verbose = pflag.BoolP("verbose", "v", false, "Enable debug-level logging.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")
	pflag.Parse()

	if *help {
		pflag.Usage()
		return
	}

	logger := avionics.NewLogger(os.Stdout)
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	cfg, err := avionics.LoadConfig()
	if err != nil {
		logger.Fatal("loading config", "err", err)
	}

	clock := avionics.NewSystemClock()

	chanA, err := avionics.OpenArincTransceiverSPI(*chanABus, *chanHz)
	if err != nil {
		logger.Fatal("opening channel A", "err", err)
	}
	defer chanA.Close()
	chanB, err := avionics.OpenArincTransceiverSPI(*chanBBus, *chanHz)
	if err != nil {
		logger.Fatal("opening channel B", "err", err)
	}
	defer chanB.Close()
	adcPort, err := avionics.OpenSerialRS422(*adcDevice, 100000, 9)
	if err != nil {
		logger.Fatal("opening ADC link", "err", err)
	}
	defer adcPort.Close()

	eventLog, err := avionics.NewEventLog(*logDir, clock)
	if err != nil {
		logger.Fatal("opening event log", "err", err)
	}
	defer eventLog.Close()

	swVersionTable, err := avionics.GatherSwVersionTable(clock, adcPort, localProgramCRC())
	if err != nil {
		logger.Error("gathering software version table, proceeding with partial table", "err", err)
	}

	eclipseNarrow := readEclipseStrap(logger, *strapChip, *strapOffset)

	core, err := avionics.NewCore(avionics.CoreOptions{
		Clock:          clock,
		ChannelA:       chanA,
		ChannelB:       chanB,
		ADCPort:        adcPort,
		Config:         cfg,
		Logger:         eventLog,
		RunLog:         logger,
		SwVersionTable: swVersionTable,
		EclipseNarrow:  eclipseNarrow,
	})
	if err != nil {
		logger.Fatal("constructing core", "err", err)
	}

	boot, err := avionics.RunBootSequence(avionics.BootOptions{
		ChannelA:       chanA,
		ChannelB:       chanB,
		ChannelALabels: labelsOf(cfg.AHRLabels),
		ChannelBLabels: labelsOf(cfg.PFDLabels),
	})
	if err != nil {
		logger.Fatal("boot sequence", "err", err)
	}
	if !boot.OK {
		logger.Error("boot fault latched, idling", "fault", boot.Fault.String())
		select {}
	}

	sched := avionics.NewScheduler(core)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(10 * time.Millisecond) // stand-in for the 100 Hz hardware tick flag.
	defer ticker.Stop()

	fmt.Fprintf(os.Stderr, "arincbridge: running\n")
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := sched.RunTick(); err != nil {
				logger.Error("tick failed", "err", err)
			}
		}
	}
}

// labelsOf extracts the bare label identities out of a configured label
// table, for the boot-time hardware label filter setup.
func labelsOf(cfgLabels []avionics.LabelConfig) []avionics.ArincLabel {
	labels := make([]avionics.ArincLabel, len(cfgLabels))
	for i, lc := range cfgLabels {
		labels[i] = lc.Label
	}
	return labels
}

// readEclipseStrap reads the Eclipse-narrowing strap pin once at startup.
// Strap reading is an out-of-scope external collaborator with no fixed
// deployment (chip string empty on anything but a real strapped target), so
// a failure to open it falls back to the non-narrowed default rather than
// aborting startup.
func readEclipseStrap(logger *log.Logger, chip string, offset int) bool {
	if chip == "" {
		return false
	}
	reader, err := avionics.OpenGPIOStrapReader(chip, offset)
	if err != nil {
		logger.Error("opening strap reader, defaulting to non-narrowed output", "err", err)
		return false
	}
	defer reader.Close()

	bits, err := reader.Read()
	if err != nil {
		logger.Error("reading strap pins, defaulting to non-narrowed output", "err", err)
		return false
	}
	return bits&0x1 != 0
}

// localProgramCRC hashes the running binary itself with the same CRC-32
// polynomial as cfg.CRCKey (0x04C11DB7, reflected: crc32.IEEE), standing in
// for the program-memory CRC a real target computes over its own flashed
// image. Falls back to 0 if the executable can't be located or read.
func localProgramCRC() uint32 {
	path, err := os.Executable()
	if err != nil {
		return 0
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	return crc32.ChecksumIEEE(data)
}
