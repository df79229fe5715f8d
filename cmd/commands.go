// bootgen commands install, bootgen commands status
package cmd

import (
	"context"
	"path/filepath"

	"github.com/qobs-build/bootgen/internal/device"
	"github.com/qobs-build/bootgen/internal/msg"
	"github.com/spf13/cobra"
)

var (
	flagDevices     []string
	flagCommandsOut string
)

func attachedDevices(ctx context.Context) []device.Device {
	serials := flagDevices
	if len(serials) == 0 {
		var err error
		serials, err = device.ListDevices(ctx)
		if err != nil {
			msg.Fatal("%v", err)
		}
	}
	if len(serials) == 0 {
		msg.Fatal("%v", device.ErrNoDevices)
	}

	devices := make([]device.Device, len(serials))
	for i, serial := range serials {
		devices[i] = device.NewAdb(serial)
	}
	return devices
}

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Manage the chromium_commands helpers on Android devices",
}

var commandsInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the command wrappers and jar on devices",
	Long:  `Install the command wrappers and jar on the given devices, or on every attached device.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		msg.Verbose = flagVerbose
		out, err := filepath.Abs(flagCommandsOut)
		if err != nil {
			msg.Fatal("%v", err)
		}
		if err := device.InstallAll(cmd.Context(), attachedDevices(cmd.Context()), out); err != nil {
			msg.Fatal("%v", err)
		}
	},
}

var commandsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the commands are installed",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		msg.Verbose = flagVerbose
		for _, d := range attachedDevices(cmd.Context()) {
			ok, err := device.Installed(cmd.Context(), d)
			switch {
			case err != nil:
				msg.Error("%s: %v", d.Serial(), err)
			case ok:
				msg.Info("%s: installed", d.Serial())
			default:
				msg.Warn("%s: not installed", d.Serial())
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(commandsCmd)
	commandsCmd.AddCommand(commandsInstallCmd, commandsStatusCmd)

	commandsCmd.PersistentFlags().StringSliceVar(&flagDevices, "device", nil, "Serial of the target device, may be repeated (default: all attached)")
	commandsCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Print adb invocations")
	commandsInstallCmd.Flags().StringVar(&flagCommandsOut, "out-path", "out", "Output directory containing "+filepath.Join("lib.java", "chromium_commands.dex.jar"))
}
