package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/cobra"

	"github.com/nmlab/attractor/internal/attractor"
	"github.com/nmlab/attractor/internal/config"
	"github.com/nmlab/attractor/internal/logging"
	"github.com/nmlab/attractor/internal/server"
	"github.com/nmlab/attractor/internal/storage"
	"github.com/nmlab/attractor/internal/tui"
)

var (
	configFile string
	preset     string
	listen     string
	record     bool
	dataDir    string

	// Attractor parameter overrides.
	basisFlag   string
	offsetFlag  string
	weightsFlag string
	stiffness   float64
	damping     float64
	interval    float64
	noPublish   bool

	// check inputs.
	positionFlag string
	velocityFlag string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "attractor",
		Short: "3d attractor force service for robotic effectors",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run the sample loop and http/websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, nil)
		},
	}
	addServeFlags(serveCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "serve with a terminal view of the force output",
		RunE: func(cmd *cobra.Command, args []string) error {
			view := tui.NewLiveView()
			return runServe(cmd, view)
		},
	}
	addServeFlags(liveCmd)

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "one-shot projection and force evaluation",
		RunE:  runCheck,
	}
	addParamFlags(checkCmd)
	checkCmd.Flags().StringVar(&positionFlag, "position", "0,0,0", "effector position (m)")
	checkCmd.Flags().StringVar(&velocityFlag, "velocity", "0,0,0", "effector velocity (m/s)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list attractor geometry presets",
		Run: func(cmd *cobra.Command, args []string) {
			names := config.ListPresets()
			sort.Strings(names)
			for _, name := range names {
				fmt.Println(name)
			}
		},
	}

	rootCmd.AddCommand(serveCmd, liveCmd, checkCmd, presetsCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addParamFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "", "attractor geometry preset")
	cmd.Flags().StringVar(&basisFlag, "basis", "", "9 row-major basis values")
	cmd.Flags().StringVar(&offsetFlag, "offset", "", "3 offset values (m)")
	cmd.Flags().StringVar(&weightsFlag, "weights", "", "3 projection weights")
	cmd.Flags().Float64Var(&stiffness, "stiffness", attractor.DefaultStiffness, "spring gain K (N/m)")
	cmd.Flags().Float64Var(&damping, "damping", attractor.DefaultDamping, "viscous gain C (N/(m/s))")
}

func addServeFlags(cmd *cobra.Command) {
	addParamFlags(cmd)
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&listen, "listen", "", "http listen address")
	cmd.Flags().Float64Var(&interval, "interval", attractor.DefaultSampleInterval.Seconds(), "sample interval (s)")
	cmd.Flags().BoolVar(&noPublish, "no-publish", false, "compute forces without emitting them")
	cmd.Flags().BoolVar(&record, "record", false, "record the session to the data directory")
	cmd.Flags().StringVar(&dataDir, "data", "", "data directory for recorded sessions")
}

// buildParams resolves the attractor parameters from config file defaults, a
// preset, and explicit flag overrides, in that order.
func buildParams(cmd *cobra.Command, base attractor.Params) (attractor.Params, error) {
	p := base
	if preset != "" {
		pp, ok := config.GetPreset(preset)
		if !ok {
			return p, fmt.Errorf("unknown preset %q (see 'attractor presets')", preset)
		}
		p = pp
	}

	var err error
	if basisFlag != "" {
		if p.Basis, err = parseFloats(basisFlag, 9); err != nil {
			return p, fmt.Errorf("invalid --basis: %w", err)
		}
	}
	if offsetFlag != "" {
		if p.Offset, err = parseFloats(offsetFlag, 3); err != nil {
			return p, fmt.Errorf("invalid --offset: %w", err)
		}
	}
	if weightsFlag != "" {
		if p.Weights, err = parseFloats(weightsFlag, 3); err != nil {
			return p, fmt.Errorf("invalid --weights: %w", err)
		}
	}
	if cmd.Flags().Changed("stiffness") {
		p.Stiffness = stiffness
	}
	if cmd.Flags().Changed("damping") {
		p.Damping = damping
	}
	if cmd.Flags().Changed("interval") {
		p.SampleInterval = interval
	}
	if noPublish {
		p.PublishEnabled = false
	}
	return p, nil
}

func runServe(cmd *cobra.Command, view *tui.LiveView) error {
	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	if listen != "" {
		cfg.Listen = listen
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if record {
		cfg.Record = true
	}

	params, err := buildParams(cmd, cfg.Attractor)
	if err != nil {
		return err
	}
	acfg, err := attractor.NewConfiguration(params)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	feed := attractor.NewFeed()
	hub := server.NewHub(logger)

	opts := []attractor.Option{
		attractor.WithLogger(logger),
		attractor.WithInput(feed),
	}
	if cfg.Record {
		store := storage.New(cfg.DataDir)
		if err := store.Init(); err != nil {
			return fmt.Errorf("init data dir: %w", err)
		}
		session, err := store.Begin(acfg)
		if err != nil {
			return fmt.Errorf("begin session: %w", err)
		}
		defer session.Close()
		opts = append(opts, attractor.WithObserver(session))
	}
	if view != nil {
		opts = append(opts, attractor.WithObserver(view))
	}

	loop := attractor.NewSampleLoop(acfg, feed, hub, opts...)
	srv := server.New(loop, feed, hub, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 2)
	go func() { errs <- loop.Run(ctx) }()
	go func() { errs <- srv.Start(cfg.Listen) }()

	var runErr error
	if view != nil {
		runErr = view.Run()
	} else {
		select {
		case <-ctx.Done():
		case runErr = <-errs:
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", "err", err)
	}
	loop.Stop()
	<-loop.Done()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	params, err := buildParams(cmd, attractor.DefaultParams())
	if err != nil {
		return err
	}
	cfg, err := attractor.NewConfiguration(params)
	if err != nil {
		return err
	}

	pos, err := parseVec3(positionFlag)
	if err != nil {
		return fmt.Errorf("invalid --position: %w", err)
	}
	vel, err := parseVec3(velocityFlag)
	if err != nil {
		return fmt.Errorf("invalid --velocity: %w", err)
	}

	model := attractor.NewProjectionModel()
	if err := model.Update(cfg); err != nil {
		return err
	}
	target := model.Project(pos)
	force := attractor.SpringDamper(target, pos, vel, cfg.Stiffness, cfg.Damping)
	applied := attractor.AppliedForce(cfg.Transform, force)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "position\t%s\n", fmtVec(pos))
	fmt.Fprintf(w, "velocity\t%s\n", fmtVec(vel))
	fmt.Fprintf(w, "target\t%s\n", fmtVec(target))
	fmt.Fprintf(w, "force\t%s\n", fmtVec(applied))
	return w.Flush()
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(parts))
	}
	out := make([]float64, n)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseVec3(s string) (mgl64.Vec3, error) {
	v, err := parseFloats(s, 3)
	if err != nil {
		return mgl64.Vec3{}, err
	}
	return mgl64.Vec3{v[0], v[1], v[2]}, nil
}

func fmtVec(v mgl64.Vec3) string {
	return fmt.Sprintf("[%g %g %g]", v.X(), v.Y(), v.Z())
}
