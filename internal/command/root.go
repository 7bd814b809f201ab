package command

import (
	"os"

	"github.com/spf13/cobra"
)

const AppName = "loom"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "Loom - autonomous chat threading engine",
		Long:          "Loom ingests a stream of chat messages and organizes them into persistent discussion threads.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("dir", "", "operate in the given workspace directory")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")

	cmd.AddCommand(
		NewInitCmd(),
		NewPostCmd(),
		NewDaemonCmd(),
		NewThreadsCmd(),
		NewShowCmd(),
		NewStatusCmd(),
	)

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd(Version).Execute()
}
