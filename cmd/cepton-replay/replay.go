package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/cepton-sdk-go/internal/sdk"
	"github.com/banshee-data/cepton-sdk-go/internal/sdk/replay"
)

// traffic counts what a session delivered.
type traffic struct {
	packets atomic.Int64
	bytes   atomic.Int64
	frames  atomic.Int64
}

func (t *traffic) listen(s *sdk.Session) error {
	if err := s.ListenNetworkPackets(func(_ sdk.SensorHandle, _ int64, buf []byte, _ any) {
		t.packets.Add(1)
		t.bytes.Add(int64(len(buf)))
	}, nil); err != nil {
		return err
	}
	if err := s.ListenImageFrames(func(sdk.SensorHandle, []sdk.ImagePoint, any) {
		t.frames.Add(1)
	}, nil); err != nil {
		return err
	}
	return nil
}

func (t *traffic) print(w io.Writer) {
	fmt.Fprintf(w, "packets: %d\nbytes: %d\nframes: %d\n", t.packets.Load(), t.bytes.Load(), t.frames.Load())
}

func printSensors(w io.Writer, s *sdk.Session) error {
	infos := make([]sdk.SensorInformation, 0, s.NumSensors())
	for i := 0; i < s.NumSensors(); i++ {
		info, err := s.SensorInformationByIndex(i)
		if err != nil {
			return err
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Handle < infos[j].Handle })
	fmt.Fprintf(w, "sensors: %d\n", len(infos))
	for _, info := range infos {
		fmt.Fprintf(w, "  %s serial=%d last=%s\n", info.Handle, info.SerialNumber,
			time.UnixMicro(info.LastReportedTimestamp).UTC().Format(time.RFC3339Nano))
	}
	return nil
}

func openReplay(e *env, path string) (*replay.Controller, error) {
	c := replay.New(e.session)
	if err := c.Open(path); err != nil {
		return nil, err
	}
	if err := c.SetSpeed(e.cfg.GetReplaySpeed()); err != nil {
		return nil, err
	}
	if err := c.SetEnableLoop(e.cfg.GetReplayLoop()); err != nil {
		return nil, err
	}
	return c, nil
}

func closeReplay(c *replay.Controller) {
	if err := c.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close: %v\n", err)
	}
}

func newInfoCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info <capture>",
		Short: "Summarise a capture file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.setup(args[0])
			if err != nil {
				return err
			}
			defer e.Close()

			c, err := openReplay(e, args[0])
			if err != nil {
				return err
			}
			defer closeReplay(c)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "file: %s\n", c.Filename())
			fmt.Fprintf(w, "session: %s\n", c.ID())
			fmt.Fprintf(w, "start: %s\n", time.UnixMicro(c.StartTime()).UTC().Format(time.RFC3339Nano))
			fmt.Fprintf(w, "length: %.6fs\n", c.Length())
			fmt.Fprintf(w, "records: %d\n", c.NumRecords())

			// A blocking pass without pacing fills the sensor table.
			if err := c.SetEnableLoop(false); err != nil {
				return err
			}
			if err := c.ResumeBlocking(c.Length()); err != nil {
				return err
			}
			return printSensors(w, e.session)
		},
	}
}

type playFlags struct {
	speed    float64
	loop     bool
	seek     float64
	duration time.Duration
}

func newPlayCmd(g *globalFlags) *cobra.Command {
	f := &playFlags{}
	cmd := &cobra.Command{
		Use:   "play <capture>",
		Short: "Replay a capture in real time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.setup(args[0])
			if err != nil {
				return err
			}
			defer e.Close()

			var t traffic
			if err := t.listen(e.session); err != nil {
				return err
			}
			c, err := openReplay(e, args[0])
			if err != nil {
				return err
			}
			defer closeReplay(c)

			if cmd.Flags().Changed("speed") {
				if err := c.SetSpeed(f.speed); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("loop") {
				if err := c.SetEnableLoop(f.loop); err != nil {
					return err
				}
			}
			if f.seek != 0 {
				if err := c.Seek(f.seek); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if f.duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, f.duration)
				defer cancel()
			}

			if err := c.Resume(); err != nil {
				return err
			}
			ticker := time.NewTicker(10 * time.Millisecond)
			defer ticker.Stop()
			for c.IsRunning() {
				select {
				case <-ctx.Done():
					if err := c.Pause(); err != nil {
						return err
					}
				case <-ticker.C:
				}
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "position: %.6fs of %.6fs\n", c.Position(), c.Length())
			fmt.Fprintf(w, "end: %t\n", c.IsEnd())
			t.print(w)
			return nil
		},
	}
	cmd.Flags().Float64Var(&f.speed, "speed", 1, "playback speed multiplier")
	cmd.Flags().BoolVar(&f.loop, "loop", false, "wrap to the start at the end of the capture")
	cmd.Flags().Float64Var(&f.seek, "seek", 0, "start position in seconds")
	cmd.Flags().DurationVar(&f.duration, "duration", 0, "stop after this much wall time (0 plays to the end)")
	return cmd
}

type stepFlags struct {
	seek  float64
	count int
}

func newStepCmd(g *globalFlags) *cobra.Command {
	f := &stepFlags{}
	cmd := &cobra.Command{
		Use:   "step <capture>",
		Short: "Deliver packets one at a time and print them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.count < 1 {
				return fmt.Errorf("--count must be at least 1, got %d", f.count)
			}
			e, err := g.setup(args[0])
			if err != nil {
				return err
			}
			defer e.Close()

			w := cmd.OutOrStdout()
			if err := e.session.ListenNetworkPackets(func(h sdk.SensorHandle, ts int64, buf []byte, _ any) {
				fmt.Fprintf(w, "%s %s %d bytes\n", time.UnixMicro(ts).UTC().Format(time.RFC3339Nano), h, len(buf))
			}, nil); err != nil {
				return err
			}
			c, err := openReplay(e, args[0])
			if err != nil {
				return err
			}
			defer closeReplay(c)

			if f.seek != 0 {
				if err := c.Seek(f.seek); err != nil {
					return err
				}
			}
			for i := 0; i < f.count && !c.IsEnd(); i++ {
				if err := c.ResumeBlockingOnce(); err != nil {
					return err
				}
			}
			fmt.Fprintf(w, "position: %.6fs\n", c.Position())
			return nil
		},
	}
	cmd.Flags().Float64Var(&f.seek, "seek", 0, "start position in seconds")
	cmd.Flags().IntVar(&f.count, "count", 1, "number of packets to deliver")
	return cmd
}
