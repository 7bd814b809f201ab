package command

import (
	"fmt"

	"github.com/loomchat/loom/internal/db"
	"github.com/spf13/cobra"
)

func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <thread>",
		Short: "Show a thread, its links, and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, conn, err := openProject(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			thread, err := db.GetThreadByPrefix(conn, args[0])
			if err != nil {
				return err
			}
			if thread == nil {
				return fmt.Errorf("no thread matches %q", args[0])
			}

			messages, err := db.GetThreadMessages(conn, thread.GUID)
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(cmd, map[string]any{
					"thread":   thread,
					"messages": messages,
				})
			}

			cmd.Printf("%s  [%s]  %s\n", thread.GUID, thread.State, thread.Title)
			if thread.RevivesThreadGUID != nil {
				cmd.Printf("  revives: %s\n", *thread.RevivesThreadGUID)
			}
			if thread.ContinuedInThreadGUID != nil {
				cmd.Printf("  continued in: %s\n", *thread.ContinuedInThreadGUID)
			}
			if thread.MergedIntoThreadGUID != nil {
				cmd.Printf("  merged into: %s\n", *thread.MergedIntoThreadGUID)
			}
			cmd.Println()
			for _, msg := range messages {
				cmd.Printf("%s  %s  %s\n", formatMillis(msg.CreatedAt), msg.Author, msg.Content)
			}
			return nil
		},
	}
	return cmd
}
