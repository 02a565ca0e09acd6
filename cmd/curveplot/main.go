package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cactusdynamics/curveplot"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Error("curveplot failed")
		os.Exit(1)
	}
}

// newRootCmd builds the command tree around a fresh configuration, so flag
// values never outlive the command they were parsed by.
func newRootCmd() *cobra.Command {
	cfg := curveplot.DefaultConfig()
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "curveplot",
		Short: "Plot reserve curves as line charts",
		Long: `curveplot maps a list of reserve amounts through a function and draws the
result as a 400x400 line chart, with both axes spanning [min, max].`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, &cfg, envFile)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&envFile, "env-file", ".env", "File of CURVEPLOT_* variables to load")
	flags.StringVar(&cfg.Labels, "labels", cfg.Labels, "Comma or space separated labels, e.g. 1,2,3")
	flags.StringVar(&cfg.Range, "range", cfg.Range, "Labels as start:stop[:step]")
	flags.StringVar(&cfg.LabelsFile, "labels-file", cfg.LabelsFile, "File of labels, - for stdin")
	flags.StringVar(&cfg.LabelsFormat, "labels-format", cfg.LabelsFormat, "Labels file format: relaxed or csv")
	flags.StringVar(&cfg.Function, "fn", cfg.Function, "Function as name[:param], see curveplot functions")
	flags.Float64Var(&cfg.Min, "min", cfg.Min, "Lower bound of both axes")
	flags.Float64Var(&cfg.Max, "max", cfg.Max, "Upper bound of both axes")
	flags.StringVar(&cfg.CanvasID, "canvas-id", cfg.CanvasID, "Id of the canvas to draw on")
	flags.StringVar(&cfg.Format, "format", cfg.Format, "Image format: png or svg")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Draw the chart into an image file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, &cfg)
		},
	}
	renderCmd.Flags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output file, - for stdout")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Draw the chart and serve it over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, &cfg)
		},
	}
	serveCmd.Flags().StringVar(&cfg.Host, "host", cfg.Host, "Host to listen on")
	serveCmd.Flags().IntVarP(&cfg.Port, "port", "p", cfg.Port, "Port to listen on")
	serveCmd.Flags().BoolVar(&cfg.Open, "open", cfg.Open, "Open the chart in a browser")
	serveCmd.Flags().StringVar(&cfg.Tee, "tee", cfg.Tee, "Also write the dataset as CSV to this file, - for stdout")

	functionsCmd := &cobra.Command{
		Use:   "functions",
		Short: "List the available functions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range curveplot.FunctionNames() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-18s %s\n", name, curveplot.FunctionDescription(name))
			}
		},
	}

	rootCmd.AddCommand(renderCmd, serveCmd, functionsCmd)
	return rootCmd
}

func loadConfig(cmd *cobra.Command, cfg *curveplot.Config, envFile string) error {
	env, err := curveplot.ReadEnv(envFile, cmd.Flags().Changed("env-file"))
	if err != nil {
		return err
	}

	flagSet := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if err := cfg.ApplyEnv(env, flagSet); err != nil {
		return err
	}

	if err := curveplot.ConfigureLogging(cfg.LogLevel); err != nil {
		return err
	}

	cmd.Flags().Visit(func(f *pflag.Flag) {
		logrus.WithField("flag", f.Name).WithField("value", f.Value.String()).Debug("flag set")
	})
	return nil
}

// draw resolves the labels and function and draws the chart on a fresh
// document.
func draw(ctx context.Context, cfg *curveplot.Config) (*curveplot.Chart, error) {
	labels, err := cfg.ResolveLabels(ctx, os.Stdin)
	if err != nil {
		return nil, err
	}

	fn, err := curveplot.LookupFunction(cfg.Function)
	if err != nil {
		return nil, err
	}

	format, err := curveplot.ParseOutputFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	doc := curveplot.NewDocument()
	doc.CreateCanvas(cfg.CanvasID)

	plotter := curveplot.NewPlotter(curveplot.NewGoChartRenderer(format))
	return plotter.DrawLineChart(doc, cfg.CanvasID, labels, fn, cfg.Min, cfg.Max)
}

func runRender(cmd *cobra.Command, cfg *curveplot.Config) error {
	chart, err := draw(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	_, image := chart.Canvas.Snapshot()

	if cfg.Output == "-" {
		_, err = cmd.OutOrStdout().Write(image)
		return err
	}

	if err := os.WriteFile(cfg.Output, image, 0644); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"output": cfg.Output,
		"points": len(chart.Dataset()),
	}).Info("chart written")
	return nil
}

func runServe(cmd *cobra.Command, cfg *curveplot.Config) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chart, err := draw(ctx, cfg)
	if err != nil {
		return err
	}

	var tee io.Writer
	switch cfg.Tee {
	case "":
	case "-":
		tee = cmd.OutOrStdout()
	default:
		f, err := os.Create(cfg.Tee)
		if err != nil {
			return err
		}
		defer f.Close()
		tee = f
	}

	// Room for every point plus the end of stream marker.
	bufferSize := len(chart.Points()) + 1

	dataBroadcaster := curveplot.NewDataBroadcaster(curveplot.NewDatasetReader(chart), bufferSize, tee)
	dataBroadcaster.Start(ctx)

	server := curveplot.NewHttpServer(chart, dataBroadcaster, bufferSize, cfg.Host, cfg.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run()
	}()

	if cfg.Open {
		curveplot.OpenBrowser("http://" + server.Addr())
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logrus.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	dataBroadcaster.Wait()
	return nil
}
