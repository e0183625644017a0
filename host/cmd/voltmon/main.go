package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"voltmon/core"
	"voltmon/host/bridge"
	"voltmon/host/config"
	"voltmon/host/serial"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud    = flag.Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	timeout = flag.Int("timeout", 50, "Serial read timeout in milliseconds")
	cfgPath = flag.String("config", "", "YAML profile (overrides the link flags; required for apply)")
	verbose = flag.Bool("verbose", false, "Trace every bus transaction to stderr")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	var cfg *config.Config
	if *cfgPath != "" {
		var err error
		cfg, err = config.LoadFile(*cfgPath)
		if err == nil {
			err = config.Validate(cfg)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	serialCfg := &serial.Config{Device: *device, Baud: *baud, ReadTimeout: *timeout}
	if cfg != nil {
		serialCfg = cfg.SerialConfig()
	}

	br, err := bridge.Dial(serialCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer br.Close()

	tr := core.NewTransactor(br)
	if *verbose {
		tr.SetTrace(traceTransaction)
	}
	mon := core.NewMonitor(tr, br.AlertInput())

	if err := run(mon, cfg, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(mon *core.Monitor, cfg *config.Config, verb string, args []string) error {
	switch verb {
	case "measure":
		return cmdMeasure(mon, args)
	case "set-alert":
		return cmdSetAlert(mon, args)
	case "get-alert":
		return cmdGetAlert(mon, args)
	case "reset-alert":
		return cmdResetAlert(mon, args)
	case "tolerance":
		return cmdTolerance(mon, args)
	case "status":
		return cmdStatus(mon, args)
	case "poll":
		return cmdPoll(mon, args)
	case "watch":
		return cmdWatch(mon, args)
	case "apply":
		return cmdApply(mon, cfg)
	case "help":
		usage()
		return nil
	}
	usage()
	return fmt.Errorf("unknown verb %q", verb)
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: voltmon [flags] VERB [args]\n\n")
	fmt.Fprintf(os.Stderr, "Verbs:\n")
	fmt.Fprintf(os.Stderr, "  measure [PORTS]            One-shot voltage readings (default all ports)\n")
	fmt.Fprintf(os.Stderr, "  set-alert PORTS LOW HIGH   Arm an alert band, thresholds in mV\n")
	fmt.Fprintf(os.Stderr, "  get-alert [PORTS]          Read back alert configuration\n")
	fmt.Fprintf(os.Stderr, "  reset-alert PORTS          Disable alerts\n")
	fmt.Fprintf(os.Stderr, "  tolerance PORTS CENTER PCT Arm a band of CENTER mV +/- PCT percent\n")
	fmt.Fprintf(os.Stderr, "  status [PORTS]             Show latched alert flags without clearing\n")
	fmt.Fprintf(os.Stderr, "  poll [-keep]               Report alerted ports; -keep leaves flags latched\n")
	fmt.Fprintf(os.Stderr, "  watch                      Follow the alert line and report excursions\n")
	fmt.Fprintf(os.Stderr, "  apply                      Push the -config alert profiles\n\n")
	fmt.Fprintf(os.Stderr, "PORTS is a spec like A, b or AB.\n\n")
	fmt.Fprintf(os.Stderr, "Flags:\n")
	flag.PrintDefaults()
}

// portsArg resolves an optional single PORTS argument, falling back to def.
func portsArg(args []string, def string) (core.BufferMask, error) {
	spec := def
	switch len(args) {
	case 0:
	case 1:
		spec = args[0]
	default:
		return 0, fmt.Errorf("expected a single PORTS argument")
	}
	mask, err := core.ParsePorts(spec)
	if err != nil {
		return 0, err
	}
	if mask == 0 {
		return 0, fmt.Errorf("no ports selected")
	}
	return mask, nil
}

func millivoltsArg(name, arg string) (core.Millivolts, error) {
	v, err := strconv.ParseUint(arg, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%s %q: not a millivolt value", name, arg)
	}
	return core.Millivolts(v), nil
}

func cmdMeasure(mon *core.Monitor, args []string) error {
	mask, err := portsArg(args, "AB")
	if err != nil {
		return err
	}
	for _, sel := range core.Ports() {
		if mask&sel == 0 {
			continue
		}
		mv, err := mon.Measure(sel)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d mV\n", sel, mv)
	}
	return nil
}

func cmdSetAlert(mon *core.Monitor, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("set-alert needs PORTS LOW HIGH")
	}
	mask, err := portsArg(args[:1], "")
	if err != nil {
		return err
	}
	low, err := millivoltsArg("LOW", args[1])
	if err != nil {
		return err
	}
	high, err := millivoltsArg("HIGH", args[2])
	if err != nil {
		return err
	}
	if err := mon.SetAlert(mask, low, high); err != nil {
		return err
	}
	return printAlerts(mon, mask)
}

func cmdGetAlert(mon *core.Monitor, args []string) error {
	mask, err := portsArg(args, "AB")
	if err != nil {
		return err
	}
	return printAlerts(mon, mask)
}

func cmdResetAlert(mon *core.Monitor, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("reset-alert needs PORTS")
	}
	mask, err := portsArg(args, "")
	if err != nil {
		return err
	}
	if err := mon.ResetAlert(mask); err != nil {
		return err
	}
	return printAlerts(mon, mask)
}

func cmdTolerance(mon *core.Monitor, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("tolerance needs PORTS CENTER PCT")
	}
	mask, err := portsArg(args[:1], "")
	if err != nil {
		return err
	}
	center, err := millivoltsArg("CENTER", args[1])
	if err != nil {
		return err
	}
	pct, err := strconv.ParseUint(args[2], 10, 8)
	if err != nil || pct > 100 {
		return fmt.Errorf("PCT %q: not a percentage", args[2])
	}
	if err := mon.SetAlertTolerance(mask, center, uint8(pct)); err != nil {
		return err
	}
	return printAlerts(mon, mask)
}

// printAlerts reads back and prints the alert band of every selected port.
// The printed thresholds are the converter's, so callers see the values after
// quantization rather than the ones they asked for.
func printAlerts(mon *core.Monitor, mask core.BufferMask) error {
	for _, sel := range core.Ports() {
		if mask&sel == 0 {
			continue
		}
		r, err := mon.GetAlert(sel)
		if err != nil {
			return err
		}
		if !r.Enabled {
			fmt.Printf("%s: alert disabled\n", sel)
			continue
		}
		fmt.Printf("%s: alert %d..%d mV (%s)\n", sel, r.Low, r.High, r.Rate)
	}
	return nil
}

func cmdStatus(mon *core.Monitor, args []string) error {
	mask, err := portsArg(args, "AB")
	if err != nil {
		return err
	}
	for _, sel := range core.Ports() {
		if mask&sel == 0 {
			continue
		}
		s, err := mon.Status(sel)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", sel, statusText(s))
	}
	return nil
}

func cmdPoll(mon *core.Monitor, args []string) error {
	clear := true
	for _, a := range args {
		switch a {
		case "-keep", "--keep":
			clear = false
		default:
			return fmt.Errorf("unknown poll argument %q", a)
		}
	}
	mask, err := mon.Poll(clear)
	if err != nil {
		return err
	}
	if mask == 0 {
		fmt.Println("no alerts")
		return nil
	}
	fmt.Printf("alerts: %s\n", mask)
	return nil
}

func cmdWatch(mon *core.Monitor, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("watch takes no arguments")
	}
	fmt.Println("Watching the alert line (Ctrl-C to stop)...")
	for {
		if !mon.AlertLineActive() {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		// Identify the sources while the flags stay latched, then clear
		// them and re-arm the pin outputs in a second pass.
		mask, err := mon.Poll(false)
		if err != nil {
			return err
		}
		if mask == 0 {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		for _, sel := range core.Ports() {
			if mask&sel == 0 {
				continue
			}
			s, err := mon.Status(sel)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s: %s\n", time.Now().Format(time.Stamp), sel, statusText(s))
		}
		if _, err := mon.Poll(true); err != nil {
			return err
		}
	}
}

func cmdApply(mon *core.Monitor, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("apply needs -config")
	}
	for _, b := range cfg.Buffers {
		mask, err := core.ParsePort(b.Port)
		if err != nil {
			return err
		}
		if b.Disabled {
			err = mon.ResetAlert(mask)
		} else {
			err = mon.SetAlert(mask, b.LowMV, b.HighMV)
		}
		if err != nil {
			return fmt.Errorf("port %s: %w", mask, err)
		}
		if err := printAlerts(mon, mask); err != nil {
			return err
		}
	}
	return nil
}

func statusText(s core.AlertStatus) string {
	switch {
	case s.UnderRange && s.OverRange:
		return "under-range, over-range"
	case s.UnderRange:
		return "under-range"
	case s.OverRange:
		return "over-range"
	}
	return "ok"
}

func traceTransaction(op string, addr, reg uint8, data []byte, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "bus %-5s addr=0x%02x reg=0x%x: %v\n", op, addr, reg, err)
		return
	}
	fmt.Fprintf(os.Stderr, "bus %-5s addr=0x%02x reg=0x%x data=% x\n", op, addr, reg, data)
}
