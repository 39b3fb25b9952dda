// Package sonicvg holds the sonicvg CLI's subcommands, grounded on the
// teacher's cmd/file and cmd/realtime packages: each subcommand is a
// small package-level Command(...) constructor the root main.go wires
// together.
package sonicvg

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/sonicvg/svcore/internal/annotation"
	"github.com/sonicvg/svcore/internal/audioreader"
	"github.com/sonicvg/svcore/internal/conf"
	"github.com/sonicvg/svcore/internal/event"
	"github.com/sonicvg/svcore/internal/metrics"
	"github.com/sonicvg/svcore/internal/plugin"
	"github.com/sonicvg/svcore/internal/transform"
)

// AnalyzeCommand runs a Transformer over a decoded file, reporting
// decode progress with github.com/schollz/progressbar/v3
// (grounded in namanag97-logpro's ShowProgress helper) as a stand-in
// for the GUI progress dialog spec.md excludes from core scope.
func AnalyzeCommand(settings *conf.Settings) *cobra.Command {
	var outputIndex int

	cmd := &cobra.Command{
		Use:   "analyze [input-file]",
		Short: "Decode an audio file and run a feature-extraction plugin over it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(settings, args[0], outputIndex)
		},
	}
	cmd.Flags().IntVar(&outputIndex, "output", 0, "plugin output index to materialise")
	return cmd
}

func runAnalyze(settings *conf.Settings, path string, outputIndex int) error {
	path, err := resolveSource(settings, path)
	if err != nil {
		return err
	}

	readerMetrics := metrics.NewReaderMetrics(nil)
	transformMetrics := metrics.NewTransformerMetrics(nil)

	cacheMode := audioreader.CacheMemory
	if settings.Audio.CacheMode == "tempfile" {
		cacheMode = audioreader.CacheTempFile
	}

	reader, err := audioreader.New(audioreader.Config{
		SourceSampleRate: settings.Audio.TargetSampleRate,
		TargetSampleRate: settings.Audio.TargetSampleRate,
		Channels:         2,
		Mode:             cacheMode,
		TempDir:          settings.Audio.TempDir,
		Normalise:        false,
		AccumulateFrames: settings.Audio.AccumulateFrames,
		ResamplerQuality: settings.Audio.ResamplerQuality,
		Metrics:          readerMetrics,
	})
	if err != nil {
		return err
	}
	defer reader.Close()

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("decoding "+path),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	decodeDone := make(chan error, 1)
	go func() { decodeDone <- audioreader.DecodeFile(reader, path) }()
	for {
		select {
		case err := <-decodeDone:
			bar.Finish()
			if err != nil {
				return err
			}
			return runTransform(settings, reader, transformMetrics, outputIndex)
		case <-time.After(100 * time.Millisecond):
			_ = bar.Set(reader.Completion())
		}
	}
}

func runTransform(settings *conf.Settings, reader *audioreader.AudioReader, m *metrics.TransformerMetrics, outputIndex int) error {
	dense := annotation.NewDenseTimeValue(settings.Audio.TargetSampleRate, reader)

	plug := plugin.NewRMSLevelPlugin()
	start, end := dense.Extent()

	t, err := transform.New(plug, []transform.Spec{{OutputIndex: outputIndex, InputChannel: 0}},
		dense, start, end-start, settings.PollInterval(), m)
	if err != nil {
		return err
	}
	if !t.IsOK() {
		return fmt.Errorf("transform: %s", t.Message())
	}

	t.Start()
	t.Wait()

	sparseTV := t.SparseTimeValueAt(0)
	if sparseTV == nil {
		fmt.Println("output is not a SparseTimeValue model; nothing to print")
		return nil
	}
	for _, e := range sparseTV.Series().All() {
		printPoint(e)
	}
	return nil
}

func printPoint(e event.Event) {
	fmt.Printf("frame=%d value=%.6f label=%s\n", e.Frame, e.Value, e.Label)
}
