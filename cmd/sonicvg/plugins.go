package sonicvg

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sonicvg/svcore/internal/conf"
	"github.com/sonicvg/svcore/internal/helperlookup"
)

// PluginsCommand reports whether the bundled Vamp plugin-host helper
// binary can be located, exercising the same resource-dir → library-dir
// → helpers-dir → own-binary-dir → PATH search internal/helperlookup
// performs when a plugin wants an out-of-process host.
func PluginsCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "Report whether the bundled plugin-host helper binary is available",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlugins(settings)
		},
	}
}

func runPlugins(settings *conf.Settings) error {
	dirs := helperlookup.Dirs{
		ResourceDir: settings.Plugin.ResourceDir,
		LibraryDir:  settings.Plugin.LibraryDir,
		HelpersDir:  settings.Plugin.HelpersDir,
	}

	const hostName = "svcore-plugin-host"
	path, err := helperlookup.Find(dirs, hostName)
	if err != nil {
		fmt.Printf("%s: not found (%v)\n", helperlookup.BinaryName(hostName), err)
		return nil
	}
	fmt.Printf("%s: %s\n", helperlookup.BinaryName(hostName), path)
	return nil
}
