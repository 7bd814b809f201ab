package command

import (
	"github.com/loomchat/loom/internal/db"
	"github.com/loomchat/loom/internal/types"
	"github.com/spf13/cobra"
)

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize queue and thread states",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, conn, err := openProject(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			messages, err := db.CountMessagesByStatus(conn)
			if err != nil {
				return err
			}
			threads, err := db.CountThreadsByState(conn)
			if err != nil {
				return err
			}

			counts := types.StatusCounts{Messages: messages, Threads: threads}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(cmd, counts)
			}

			cmd.Println("messages:")
			for _, status := range []types.AssignmentStatus{
				types.AssignmentStatusPending,
				types.AssignmentStatusInProgress,
				types.AssignmentStatusAssigned,
				types.AssignmentStatusFailed,
			} {
				cmd.Printf("  %-12s %d\n", status, messages[status])
			}
			cmd.Println("threads:")
			for _, state := range []types.ThreadState{
				types.ThreadStateActive,
				types.ThreadStateCooling,
				types.ThreadStateArchived,
				types.ThreadStateSuperseded,
			} {
				cmd.Printf("  %-12s %d\n", state, threads[state])
			}
			return nil
		},
	}
	return cmd
}
