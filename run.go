package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bsaid97/go-attribute-transfer/config"
	"github.com/bsaid97/go-attribute-transfer/handlers"
	"github.com/bsaid97/go-attribute-transfer/layers"
	"github.com/bsaid97/go-attribute-transfer/transfer"
	"github.com/spf13/cobra"
	"github.com/tj/go-spin"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a transfer between two layer files",
	Long: `Run a transfer between two GeoJSON or shapefile layers.

Settings come from a YAML job file (--job) or from flags. Flags given
alongside --job override the values in the file.`,
	RunE: runTransfer,
}

var (
	runJobPath     string
	runSource      string
	runSourceField string
	runTarget      string
	runTargetField string
	runRule        string
	runTolerance   float64
	runOutput      string
	runFormat      string
	runReport      string
	runProgress    bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runJobPath, "job", "", "YAML job file")
	runCmd.Flags().StringVar(&runSource, "source", "", "Source layer file (.geojson, .json or .shp)")
	runCmd.Flags().StringVar(&runSourceField, "source-field", "", "Field to transfer")
	runCmd.Flags().StringVar(&runTarget, "target", "", "Target layer file (.geojson, .json or .shp)")
	runCmd.Flags().StringVar(&runTargetField, "target-field", "", "Field to receive")
	runCmd.Flags().StringVar(&runRule, "rule", "", "Matching rule: intersects, contains, within, touches, equals, vertex-match")
	runCmd.Flags().Float64Var(&runTolerance, "tolerance", 0, "Vertex-match tolerance in layer units (default 0.001)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "Write the updated target layer to this path")
	runCmd.Flags().StringVar(&runFormat, "format", "", "Output format: geojson, shapefile or zip (default from --output extension)")
	runCmd.Flags().StringVar(&runReport, "report", "", "Write the JSON run report to this path")
	runCmd.Flags().BoolVar(&runProgress, "progress", false, "Show a spinner while the transfer runs")
}

func jobFromFlags(cmd *cobra.Command) (*config.Job, error) {
	job := &config.Job{}
	if runJobPath != "" {
		loaded, err := config.ReadJob(runJobPath)
		if err != nil {
			return nil, err
		}
		job = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		job.Source.Path = runSource
	}
	if flags.Changed("source-field") {
		job.Source.Field = runSourceField
	}
	if flags.Changed("target") {
		job.Target.Path = runTarget
	}
	if flags.Changed("target-field") {
		job.Target.Field = runTargetField
	}
	if flags.Changed("rule") {
		job.Rule = runRule
	}
	if flags.Changed("tolerance") {
		job.VertexTolerance = runTolerance
	}
	if flags.Changed("output") {
		job.Output.Path = runOutput
	}
	if flags.Changed("format") {
		job.Output.Format = runFormat
	}
	return job, job.Validate()
}

func runTransfer(cmd *cobra.Command, args []string) error {
	job, err := jobFromFlags(cmd)
	if err != nil {
		return err
	}

	host, params, err := loadJobLayers(job, cfg.ParseWorkers)
	if err != nil {
		return err
	}

	tolerance := cfg.VertexTolerance
	if job.VertexTolerance > 0 {
		tolerance = job.VertexTolerance
	}
	engine := transfer.NewEngine(slog.Default(), tolerance)

	stop := func() {}
	if runProgress {
		stop = startSpinner(cmd.ErrOrStderr(), "transferring attributes")
	}
	result, err := handlers.Transfer(engine, host, params)
	stop()
	if err != nil {
		return err
	}

	summary := result.Summary()
	fmt.Fprintf(cmd.OutOrStdout(), "Transfer completed: %d features updated (%d without match, %d ambiguous, %d rejected).\n",
		summary.Updated, summary.NoMatch, summary.Ambiguous, summary.WriteRejected)

	if runReport != "" {
		if err := writeReport(runReport, handlers.NewReport(result)); err != nil {
			return err
		}
	}

	if job.Output.Path != "" {
		format, err := layers.ParseFormat(job.Output.Format, job.Output.Path)
		if err != nil {
			return err
		}
		target, err := transfer.FindLayer(host, params.TargetLayer)
		if err != nil {
			return err
		}
		if err := layers.Save(job.Output.Path, target, format); err != nil {
			return err
		}
		slog.Info("target layer saved", "path", job.Output.Path, "format", format)
	}
	return nil
}

// loadJobLayers opens both layer files into a host. A job whose source and
// target are the same file shares one layer.
func loadJobLayers(job *config.Job, workers int) (*layers.MemoryHost, handlers.TransferParams, error) {
	params := handlers.TransferParams{
		SourceLayer: "source",
		SourceField: job.Source.Field,
		TargetLayer: "target",
		TargetField: job.Target.Field,
		Rule:        job.Rule,
	}

	sourceTypes, err := job.Source.FieldTypes()
	if err != nil {
		return nil, params, err
	}
	targetTypes, err := job.Target.FieldTypes()
	if err != nil {
		return nil, params, err
	}

	shared, err := samePath(job.Source.Path, job.Target.Path)
	if err != nil {
		return nil, params, err
	}
	if shared {
		types := make(map[string]transfer.FieldType, len(sourceTypes)+len(targetTypes))
		maps.Copy(types, sourceTypes)
		maps.Copy(types, targetTypes)
		layer, err := layers.Open(job.Target.Path, layers.ReadOptions{Workers: workers, Name: "target", FieldTypes: types})
		if err != nil {
			return nil, params, err
		}
		params.SourceLayer = "target"
		return layers.NewMemoryHost(layer), params, nil
	}

	source, err := layers.Open(job.Source.Path, layers.ReadOptions{Workers: workers, Name: "source", ReadOnly: true, FieldTypes: sourceTypes})
	if err != nil {
		return nil, params, err
	}
	target, err := layers.Open(job.Target.Path, layers.ReadOptions{Workers: workers, Name: "target", FieldTypes: targetTypes})
	if err != nil {
		return nil, params, err
	}
	return layers.NewMemoryHost(source, target), params, nil
}

// samePath reports whether a and b name the same file once made absolute.
func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path %s: %w", a, err)
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path %s: %w", b, err)
	}
	return absA == absB, nil
}

func writeReport(path string, report handlers.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// startSpinner animates label on w until the returned function is called.
func startSpinner(w io.Writer, label string) func() {
	s := spin.New()
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				fmt.Fprint(w, "\r\033[K")
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r  \033[36m%s\033[m %s ", s.Next(), label)
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}
