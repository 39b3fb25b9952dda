package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sonicvg/svcore/cmd/sonicvg"
	"github.com/sonicvg/svcore/internal/conf"
	"github.com/sonicvg/svcore/internal/logging"
)

func main() {
	logging.Init()

	var cfgFile string
	v := viper.New()
	settings := conf.Default()

	root := &cobra.Command{
		Use:   "sonicvg",
		Short: "sonicvg drives feature-extraction plugins over decoded audio",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile == "" {
				return nil
			}
			v.SetConfigFile(cfgFile)
			if err := v.ReadInConfig(); err != nil {
				return err
			}
			loaded, err := conf.Load(v)
			if err != nil {
				return err
			}
			*settings = *loaded
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to an override config.yaml")

	root.AddCommand(sonicvg.AnalyzeCommand(settings))
	root.AddCommand(sonicvg.InspectCommand(settings))
	root.AddCommand(sonicvg.PluginsCommand(settings))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
