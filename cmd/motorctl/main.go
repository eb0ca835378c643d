// Command motorctl is an interactive keypress-driven jogging harness for
// one configured motor: an external collaborator, not part of the motion
// core, grounded on cmd/gpio-test/main.go's flag-driven GPIO exerciser.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/ubuettemeier/a4988motion/internal/engine"
	"github.com/ubuettemeier/a4988motion/internal/hal"
)

func main() {
	backend := flag.String("backend", "mock", "GPIO backend: rpio, gpiocdev, mock")
	chip := flag.String("chip", "", "GPIO chip name for gpiocdev (auto-detect if empty)")
	enablePin := flag.Int("enable", 18, "enable GPIO pin (BCM)")
	dirPin := flag.Int("dir", 23, "direction GPIO pin (BCM)")
	stepPin := flag.Int("step", 24, "step GPIO pin (BCM)")
	stepsPerRev := flag.Uint("steps-per-rev", 200, "motor full steps per revolution")
	startHz := flag.Float64("hz", 200, "initial jog speed in steps/sec")
	flag.Parse()

	gpio, closeGPIO, err := openBackend(*backend, *chip)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open GPIO backend: %v\n", err)
		os.Exit(1)
	}
	defer closeGPIO()

	eng := engine.New(gpio, engine.Config{RTPriority: 0, PinCore: -1, IdleSleep: 1}, nil)
	if err := eng.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start scheduler: %v\n", err)
		os.Exit(1)
	}
	defer eng.Shutdown()

	m, err := eng.NewMotor(engine.Pins{Enable: *enablePin, Dir: *dirPin, Step: *stepPin}, uint32(*stepsPerRev))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to register motor: %v\n", err)
		os.Exit(1)
	}
	if err := eng.Enable(m); err != nil {
		fmt.Fprintf(os.Stderr, "failed to enable motor: %v\n", err)
		os.Exit(1)
	}
	defer eng.Disable(m)

	hz := *startHz
	fmt.Println("motorctl: interactive jog harness")
	fmt.Printf("  backend=%s enable=%d dir=%d step=%d steps/rev=%d\n", *backend, *enablePin, *dirPin, *stepPin, uint32(*stepsPerRev))
	fmt.Println()
	fmt.Println("  j/k   single step CCW/CW (while idle)")
	fmt.Println("  r     start continuous run at the current speed")
	fmt.Println("  +/-   adjust jog speed by 10% (while idle)")
	fmt.Println("  s     graceful stop (ramps down if configured)")
	fmt.Println("  x     fast stop")
	fmt.Println("  q     quit")
	fmt.Println()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	keys, restore, err := rawKeyReader()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to enter raw terminal mode: %v\n", err)
		os.Exit(1)
	}
	defer restore()

	for {
		select {
		case <-sigCh:
			fmt.Println("\nsignal received, stopping")
			return
		case k, ok := <-keys:
			if !ok {
				return
			}
			switch k {
			case 'q':
				return
			case 'j':
				if err := eng.SetDirection(m, engine.CCW); err == nil {
					if err := eng.SingleStep(m); err != nil {
						fmt.Printf("step failed: %v\n", err)
					}
				}
			case 'k':
				if err := eng.SetDirection(m, engine.CW); err == nil {
					if err := eng.SingleStep(m); err != nil {
						fmt.Printf("step failed: %v\n", err)
					}
				}
			case '+':
				hz *= 1.1
				fmt.Printf("jog speed: %.1f Hz\n", hz)
			case '-':
				hz *= 0.9
				fmt.Printf("jog speed: %.1f Hz\n", hz)
			case 'r':
				if err := eng.SetParams(m, steptimeFromHz(hz), 0, 0, 0, m.Direction()); err != nil {
					fmt.Printf("set params failed: %v\n", err)
					continue
				}
				if err := eng.Start(m); err != nil {
					fmt.Printf("start failed: %v\n", err)
				}
			case 's':
				if err := eng.Stop(m); err != nil {
					fmt.Printf("stop failed: %v\n", err)
				}
			case 'x':
				if err := eng.FastStop(m); err != nil {
					fmt.Printf("fast-stop failed: %v\n", err)
				}
			}
		}
	}
}

func steptimeFromHz(hz float64) int {
	if hz <= 0 {
		hz = 1
	}
	return int(1e6 / hz)
}

// openBackend mirrors cmd/motiond's backend selection, trimmed to the
// three backends this harness supports.
func openBackend(backend, chip string) (engine.GPIO, func(), error) {
	switch backend {
	case "rpio":
		board, err := hal.NewRaspberryPiHAL()
		if err != nil {
			return nil, nil, err
		}
		return engine.NewHALAdapter(board.GPIO()), func() { board.Close() }, nil
	case "gpiocdev":
		if chip == "" {
			if board, err := hal.DetectBoard(); err == nil {
				chip = board.GPIOChip
			}
		}
		provider, err := hal.NewGpiocdevGPIO(chip)
		if err != nil {
			return nil, nil, err
		}
		return engine.NewHALAdapter(provider), func() { provider.Close() }, nil
	case "mock", "":
		mockHAL := hal.NewMockHAL()
		return engine.NewHALAdapter(mockHAL.GPIO()), func() { mockHAL.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}
}

// rawKeyReader puts stdin into raw mode and streams single keypresses on
// the returned channel. restore() must be called to reset the terminal.
func rawKeyReader() (<-chan byte, func(), error) {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, nil, err
	}

	keys := make(chan byte)
	go func() {
		defer close(keys)
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil || n == 0 {
				return
			}
			keys <- buf[0]
		}
	}()

	restore := func() { term.Restore(fd, oldState) }
	return keys, restore, nil
}
