package command

import (
	"github.com/loomchat/loom/internal/db"
	"github.com/loomchat/loom/internal/types"
	"github.com/spf13/cobra"
)

func NewThreadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threads",
		Short: "List threads, most recently active first",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, conn, err := openProject(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			options := &types.ThreadQueryOptions{}
			if state, _ := cmd.Flags().GetString("state"); state != "" {
				options.States = []types.ThreadState{types.ThreadState(state)}
			} else if all, _ := cmd.Flags().GetBool("all"); !all {
				options.States = types.LiveThreadStates
			}

			threads, err := db.GetThreads(conn, options)
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(cmd, threads)
			}

			if len(threads) == 0 {
				cmd.Println("no threads")
				return nil
			}
			for _, thread := range threads {
				cmd.Printf("%s  %-10s  %-19s  %s\n",
					shortGUID(thread.GUID), thread.State,
					formatMillisPtr(thread.LastMessageAt), thread.Title)
			}
			return nil
		},
	}

	cmd.Flags().String("state", "", "filter by state (active|cooling|archived|superseded)")
	cmd.Flags().Bool("all", false, "include archived and superseded threads")
	return cmd
}
