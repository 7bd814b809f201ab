package command

import (
	"github.com/loomchat/loom/internal/core"
	"github.com/loomchat/loom/internal/db"
	"github.com/spf13/cobra"
)

func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a loom workspace in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			force, _ := cmd.Flags().GetBool("force")

			project, err := core.InitProject(dir, force)
			if err != nil {
				return err
			}

			conn, err := db.OpenDatabase(project)
			if err != nil {
				return err
			}
			defer conn.Close()

			cmd.Printf("Initialized loom workspace at %s\n", project.Root)
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "reinitialize an existing workspace")
	return cmd
}
