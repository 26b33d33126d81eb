package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ardnew/softportal/device"
	"github.com/ardnew/softportal/device/emulated/infinity"
	"github.com/ardnew/softportal/device/emulated/skylander"
	"github.com/ardnew/softportal/internal/config"
	"github.com/ardnew/softportal/internal/portal"
)

// replayEpoch is the manual clock's starting time. Completion times are
// printed relative to it.
var replayEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func runReplay(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("replay", stderr)
	configPath := fs.String("config", "", "configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: replay -config c.yaml <script>", errUsage)
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	cfg.Timing.Realtime = false

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	dev, err := portal.New(cfg, portal.WithClock(device.NewManualClock(replayEpoch)))
	if err != nil {
		return err
	}
	defer dev.Close()

	r := &replayer{dev: dev, out: stdout}
	return r.run(ctx, f)
}

// replayer feeds script lines to a device and prints every completion.
type replayer struct {
	dev *portal.Device
	out io.Writer
}

func (r *replayer) run(ctx context.Context, script io.Reader) error {
	sc := bufio.NewScanner(script)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := r.step(strings.Fields(text)); err != nil {
			fmt.Fprintf(r.out, "line %d: error: %v\n", line, err)
		}
		if _, err := r.dev.Drain(ctx); err != nil {
			return err
		}
	}
	return sc.Err()
}

func (r *replayer) step(fields []string) error {
	switch cmd, args := fields[0], fields[1:]; cmd {
	case "control":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("%w: control <setup hex> [data hex]", errUsage)
		}
		return r.control(args)

	case "interrupt":
		if len(args) != 1 {
			return fmt.Errorf("%w: interrupt <hex>", errUsage)
		}
		return r.interrupt(args[0])

	case "load":
		if len(args) != 2 {
			return fmt.Errorf("%w: load <slot> <path>", errUsage)
		}
		s, err := r.dev.Load(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "loaded %s %s\n", s.Name, s.Figure)
		return nil

	case "remove":
		if len(args) != 1 {
			return fmt.Errorf("%w: remove <slot>", errUsage)
		}
		if err := r.dev.Remove(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "removed %s\n", args[0])
		return nil

	case "activate":
		r.dev.Activate()
		return nil

	case "deactivate":
		r.dev.Deactivate()
		return nil
	}
	return fmt.Errorf("%w: unknown script command %q", errUsage, fields[0])
}

func (r *replayer) control(args []string) error {
	raw, err := hex.DecodeString(args[0])
	if err != nil {
		return err
	}
	var setup device.SetupPacket
	if err := device.ParseSetupPacket(raw, &setup); err != nil {
		return err
	}
	buf := make([]byte, setup.Length)
	if len(args) == 2 {
		data, err := hex.DecodeString(args[1])
		if err != nil {
			return err
		}
		copy(buf, data)
	}
	return r.submit(device.NewControlTransfer(setup, buf))
}

// interrupt submits an interrupt transfer. Infinity command frames go to
// the OUT endpoint; everything else is a poll of the IN endpoint. Buffers
// shorter than a report are zero-padded.
func (r *replayer) interrupt(arg string) error {
	data, err := hex.DecodeString(arg)
	if err != nil {
		return err
	}
	var ep uint8
	var size int
	if r.dev.Family() == config.FamilyInfinity {
		ep, size = infinity.EndpointIn, infinity.ReportSize
		if len(data) > 0 && data[0] == infinity.FrameCommand {
			ep = infinity.EndpointOut
		}
	} else {
		ep, size = skylander.EndpointIn, skylander.ReportSize
	}
	buf := make([]byte, max(size, len(data)))
	copy(buf, data)
	return r.submit(device.NewInterruptTransfer(ep, buf))
}

func (r *replayer) submit(t *device.Transfer) error {
	t.WithCallback(r.print)
	return r.dev.Submit(t)
}

func (r *replayer) print(t *device.Transfer) {
	at := r.dev.Thread().Clock().Now().Sub(replayEpoch)
	fmt.Fprintf(r.out, "%s ep=%#02x %s count=%d t=+%s %s\n",
		t.Kind, t.Endpoint, t.Status, t.ExpectedCount, at, hex.EncodeToString(t.Data(t.Length)))
}
