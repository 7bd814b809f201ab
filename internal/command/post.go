package command

import (
	"fmt"
	"strings"

	"github.com/loomchat/loom/internal/db"
	"github.com/loomchat/loom/internal/types"
	"github.com/spf13/cobra"
)

func NewPostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post <message>",
		Short: "Ingest a message into the pending queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, conn, err := openProject(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			author, _ := cmd.Flags().GetString("author")
			content := strings.Join(args, " ")
			if strings.TrimSpace(content) == "" {
				return fmt.Errorf("message content is empty")
			}

			msg, err := db.CreateMessage(conn, types.Message{
				Author:  author,
				Content: content,
			})
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(cmd, msg)
			}
			cmd.Printf("%s queued (%s)\n", msg.GUID, msg.AssignmentStatus)
			return nil
		},
	}

	cmd.Flags().String("author", "anonymous", "message author")
	return cmd
}
