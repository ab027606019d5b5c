package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/flightcore/internal/config"
	"github.com/san-kum/flightcore/internal/flight"
	"github.com/san-kum/flightcore/internal/geom"
	"github.com/san-kum/flightcore/internal/sim"
	"github.com/san-kum/flightcore/internal/telemetry"
	"github.com/san-kum/flightcore/internal/transport"
)

var (
	configFile string
	frame      string

	// goal pose flags
	goalX, goalY, goalZ, goalYaw float64

	// sim flags
	simDuration float64
	simLandAt   float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "flightcore",
		Short: "quadrotor flight-control core",
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")

	flyCmd := &cobra.Command{
		Use:   "fly",
		Short: "run the flight controller",
		RunE:  runFly,
	}
	flyCmd.Flags().StringVar(&frame, "frame", "", "pose-source frame to subscribe to (overrides config)")

	takeoffCmd := &cobra.Command{
		Use:   "takeoff",
		Short: "request takeoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTransport("takeoff", func(t *transport.Client) error {
				return t.PublishTakeoff()
			})
		},
	}

	landCmd := &cobra.Command{
		Use:   "land",
		Short: "request landing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTransport("land", func(t *transport.Client) error {
				return t.PublishLand()
			})
		},
	}

	gotoCmd := &cobra.Command{
		Use:   "goto",
		Short: "publish a goal pose",
		RunE:  runGoto,
	}
	gotoCmd.Flags().Float64Var(&goalX, "x", 0, "goal x")
	gotoCmd.Flags().Float64Var(&goalY, "y", 0, "goal y")
	gotoCmd.Flags().Float64Var(&goalZ, "z", 0.5, "goal altitude")
	gotoCmd.Flags().Float64Var(&goalYaw, "yaw", 0, "goal yaw (rad)")

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "live terminal telemetry",
		RunE:  runMonitor,
	}

	simCmd := &cobra.Command{
		Use:   "sim",
		Short: "fly the controller against a simulated vehicle",
		RunE:  runSim,
	}
	simCmd.Flags().Float64Var(&simDuration, "time", 20.0, "mission duration (s)")
	simCmd.Flags().Float64Var(&simLandAt, "land-at", 14.0, "land request time (s)")
	simCmd.Flags().Float64Var(&goalX, "x", 0, "goal x")
	simCmd.Flags().Float64Var(&goalY, "y", 0, "goal y")
	simCmd.Flags().Float64Var(&goalZ, "z", 0.5, "goal altitude")
	simCmd.Flags().Float64Var(&goalYaw, "yaw", 0, "goal yaw (rad)")

	rootCmd.AddCommand(flyCmd, takeoffCmd, landCmd, gotoCmd, monitorCmd, simCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configFile == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(configFile)
}

func withTransport(suffix string, fn func(*transport.Client) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	t, err := transport.Connect(cfg, suffix)
	if err != nil {
		return err
	}
	defer t.Disconnect()
	return fn(t)
}

func runFly(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if frame != "" {
		cfg.Frame = frame
	}

	t, err := transport.Connect(cfg, "controller")
	if err != nil {
		return err
	}
	defer t.Disconnect()

	ctrl := flight.New(cfg.Frame, t, flight.Options{
		TickPeriod:  time.Duration(cfg.TickMs) * time.Millisecond,
		LatencyWarn: time.Duration(cfg.LatencyWarnMs) * time.Millisecond,
	})
	if err := t.BindController(ctrl); err != nil {
		return err
	}

	if cfg.WebAddr != "" {
		go func() {
			if err := telemetry.ServeWeb(cfg.WebAddr, ctrl); err != nil {
				log.Printf("telemetry server stopped: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("controller running, frame %q, tick %dms", cfg.Frame, cfg.TickMs)
	if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Println("controller stopped")
	return nil
}

func runGoto(cmd *cobra.Command, args []string) error {
	return withTransport("goto", func(t *transport.Client) error {
		goal := geom.Pose{
			Position:    geom.Vec3{X: goalX, Y: goalY, Z: goalZ},
			Orientation: geom.FromYaw(goalYaw),
		}
		if err := t.PublishGoal(goal); err != nil {
			return err
		}
		fmt.Printf("goal published: (%.2f, %.2f, %.2f) yaw %.2f\n", goalX, goalY, goalZ, goalYaw)
		return nil
	})
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	t, err := transport.Connect(cfg, "monitor")
	if err != nil {
		return err
	}
	defer t.Disconnect()

	feed := telemetry.NewFeed()
	if err := t.SubscribePose(feed.SetPose); err != nil {
		return err
	}
	if err := t.SubscribeCommand(feed.SetCommand); err != nil {
		return err
	}

	p := tea.NewProgram(telemetry.NewModel(feed))
	_, err = p.Run()
	return err
}

func runSim(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mission := sim.MissionConfig{
		Duration: time.Duration(simDuration * float64(time.Second)),
		LandAt:   time.Duration(simLandAt * float64(time.Second)),
		Goal: geom.Pose{
			Position:    geom.Vec3{X: goalX, Y: goalY, Z: goalZ},
			Orientation: geom.FromYaw(goalYaw),
		},
	}

	fmt.Printf("flying simulated mission for %.1fs (landing at %.1fs)...\n", simDuration, simLandAt)
	result, err := sim.Fly(ctx, mission)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if len(result.Altitudes) > 1 {
		fmt.Println(asciigraph.Plot(result.Altitudes,
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption("altitude vs time"),
		))
		fmt.Println()
		fmt.Println(asciigraph.Plot(result.Thrusts,
			asciigraph.Height(8),
			asciigraph.Width(80),
			asciigraph.Caption("thrust command"),
		))
	}

	if len(result.States) > 0 {
		fmt.Printf("\nfinal state: %s, final altitude: %.3f\n",
			result.States[len(result.States)-1],
			result.Altitudes[len(result.Altitudes)-1])
	}
	if len(result.Metrics) > 0 {
		fmt.Println("\nmetrics:")
		for name, val := range result.Metrics {
			fmt.Printf("  %s: %.4f\n", name, val)
		}
	}
	return nil
}
