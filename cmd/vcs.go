// bootgen githead [path], bootgen commit-position [path]
package cmd

import (
	"fmt"

	"github.com/qobs-build/bootgen/internal/msg"
	"github.com/qobs-build/bootgen/internal/vcs"
	"github.com/spf13/cobra"
)

func pathArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

var githeadCmd = &cobra.Command{
	Use:   "githead [path]",
	Short: "Print the ref HEAD points to",
	Long: `Print the ref HEAD points to. The path is a work tree or a HEAD file.
Prints "packed-refs" when the ref has no loose file and nothing for a detached HEAD.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ref, err := vcs.Head(pathArg(args))
		if err != nil {
			msg.Fatal("%v", err)
		}
		fmt.Fprintln(msg.Out, ref)
	},
}

var commitPositionCmd = &cobra.Command{
	Use:   "commit-position [path]",
	Short: "Print the commit position of HEAD",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pos, err := vcs.CommitPosition(pathArg(args))
		if err != nil {
			msg.Fatal("%v", err)
		}
		fmt.Fprintln(msg.Out, pos)
	},
}

func init() {
	rootCmd.AddCommand(githeadCmd)
	rootCmd.AddCommand(commitPositionCmd)
}
