package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/cepton-sdk-go/internal/capture"
	"github.com/banshee-data/cepton-sdk-go/internal/network"
	"github.com/banshee-data/cepton-sdk-go/internal/sdk"
)

type listenFlags struct {
	port     uint16
	duration time.Duration
	output   string
}

// runListen receives live traffic until the duration elapses or the process
// is interrupted.
func runListen(cmd *cobra.Command, g *globalFlags, f *listenFlags) error {
	e, err := g.setup("live")
	if err != nil {
		return err
	}
	defer e.Close()

	if cmd.Flags().Changed("port") {
		if err := e.session.SetPort(f.port); err != nil {
			return err
		}
	}
	var t traffic
	if err := t.listen(e.session); err != nil {
		return err
	}

	cfg := network.Config{LogInterval: e.cfg.GetStatsInterval()}
	var w *capture.Writer
	if f.output != "" {
		if w, err = capture.Create(f.output, e.session.Port()); err != nil {
			return err
		}
		defer w.Close()
		cfg.Recorder = w
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if f.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.duration)
		defer cancel()
	}

	l := network.NewUDPListener(e.session, cfg)
	err = l.Start(ctx)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return sdk.FromError(sdk.ErrorCommunication, err)
	}

	out := cmd.OutOrStdout()
	t.print(out)
	if w != nil {
		fmt.Fprintf(out, "recorded: %d packets to %s\n", w.Count(), f.output)
	}
	return printSensors(out, e.session)
}

func newListenCmd(g *globalFlags) *cobra.Command {
	f := &listenFlags{}
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Receive live sensor traffic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runListen(cmd, g, f)
		},
	}
	cmd.Flags().Uint16Var(&f.port, "port", sdk.DefaultPort, "UDP port to listen on")
	cmd.Flags().DurationVar(&f.duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	cmd.Flags().StringVar(&f.output, "record", "", "also record received packets to this pcap file")
	return cmd
}

func newRecordCmd(g *globalFlags) *cobra.Command {
	f := &listenFlags{}
	cmd := &cobra.Command{
		Use:   "record <output.pcap>",
		Short: "Record live sensor traffic to a capture file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.output = args[0]
			return runListen(cmd, g, f)
		},
	}
	cmd.Flags().Uint16Var(&f.port, "port", sdk.DefaultPort, "UDP port to listen on")
	cmd.Flags().DurationVar(&f.duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	return cmd
}
