package main

import (
	"github.com/spf13/cobra"

	"github.com/banshee-data/cepton-sdk-go/internal/config"
	"github.com/banshee-data/cepton-sdk-go/internal/driver"
	"github.com/banshee-data/cepton-sdk-go/internal/faultlog"
	"github.com/banshee-data/cepton-sdk-go/internal/monitoring"
	"github.com/banshee-data/cepton-sdk-go/internal/sdk"
	"github.com/banshee-data/cepton-sdk-go/internal/version"
)

type globalFlags struct {
	configFile string
	logLevel   string
	faultDB    string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "cepton-replay",
		Short: "Inspect, replay and record LIDAR sensor captures",
		Long: `cepton-replay drives the SDK session from the command line.

It can summarise PCAP/PCAPNG captures, replay them in real time or step by
step, listen for live sensor traffic and record it, and browse the fault
journal.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configFile, "config", "c", "", "config file path (.json, .yaml)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&g.faultDB, "fault-db", "", "journal errors and faults to this SQLite file")

	root.AddCommand(
		newInfoCmd(g),
		newPlayCmd(g),
		newStepCmd(g),
		newListenCmd(g),
		newRecordCmd(g),
		newFaultsCmd(g),
	)
	return root
}

// env is the per-command runtime assembled from flags and config.
type env struct {
	cfg     *config.Config
	session *sdk.Session
	journal *faultlog.Journal
}

func (e *env) Close() {
	if err := e.session.Deinitialize(); err != nil {
		monitoring.Errorf("deinitialize: %v", err)
	}
	if e.journal != nil {
		e.journal.Close()
	}
}

// setup loads configuration and initializes a session. source tags journaled
// faults.
func (g *globalFlags) setup(source string) (*env, error) {
	cfg, err := config.Load(g.configFile)
	if err != nil {
		return nil, err
	}
	level := cfg.GetLogLevel()
	if g.logLevel != "" {
		level = g.logLevel
	}
	if err := monitoring.SetLevel(level); err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, session: sdk.NewSession(driver.NewFrameAssembler(nil))}
	var errCb sdk.ErrorCallback
	dbPath := cfg.GetFaultDB()
	if g.faultDB != "" {
		dbPath = g.faultDB
	}
	if dbPath != "" {
		if e.journal, err = faultlog.Open(dbPath); err != nil {
			return nil, err
		}
		errCb = e.journal.Listener(source)
	}
	if err := e.session.Initialize(sdk.APIVersion, cfg.ToOptions(), errCb, nil); err != nil {
		if e.journal != nil {
			e.journal.Close()
		}
		return nil, err
	}
	return e, nil
}
