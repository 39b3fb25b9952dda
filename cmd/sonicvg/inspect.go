package sonicvg

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sonicvg/svcore/internal/annotation"
	"github.com/sonicvg/svcore/internal/audioreader"
	"github.com/sonicvg/svcore/internal/conf"
	"github.com/sonicvg/svcore/internal/metrics"
	"github.com/sonicvg/svcore/internal/modelxml"
	"github.com/sonicvg/svcore/internal/plugin"
	"github.com/sonicvg/svcore/internal/transform"
)

// InspectCommand decodes a file, runs the built-in RMS plugin over it,
// and dumps the resulting model as Model XML (spec.md §6) to stdout.
func InspectCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [input-file]",
		Short: "Decode a file, run the built-in plugin, and print the resulting model as XML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(settings, args[0])
		},
	}
}

func runInspect(settings *conf.Settings, path string) error {
	path, err := resolveSource(settings, path)
	if err != nil {
		return err
	}

	readerMetrics := metrics.NewReaderMetrics(nil)

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
		AccumulateFrames: settings.Audio.AccumulateFrames,
		ResamplerQuality: settings.Audio.ResamplerQuality,
		Metrics:          readerMetrics,
	})
	if err != nil {
		return err
	}
	defer reader.Close()

	if err := audioreader.DecodeFile(reader, path); err != nil {
		return err
	}

	dense := annotation.NewDenseTimeValue(settings.Audio.TargetSampleRate, reader)
	start, end := dense.Extent()

	plug := plugin.NewRMSLevelPlugin()
	t, err := transform.New(plug, []transform.Spec{{OutputIndex: 0, InputChannel: 0}},
		dense, start, end-start, settings.PollInterval(), nil)
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
		return fmt.Errorf("inspect: output is not a SparseTimeValue model")
	}
	return modelxml.WriteSparseTimeValue(os.Stdout, sparseTV)
}
