package command

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/loomchat/loom/internal/core"
	"github.com/loomchat/loom/internal/db"
	"github.com/spf13/cobra"
)

// openProject discovers the workspace and opens its database.
func openProject(cmd *cobra.Command) (core.Project, *sql.DB, error) {
	dir, _ := cmd.Flags().GetString("dir")
	project, err := core.DiscoverProject(dir)
	if err != nil {
		return core.Project{}, nil, err
	}
	conn, err := db.OpenDatabase(project)
	if err != nil {
		return core.Project{}, nil, err
	}
	return project, conn, nil
}

// printJSON writes v as indented JSON to the command's stdout.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}

// formatMillis renders a unix-millis timestamp for human output.
func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}

func formatMillisPtr(ms *int64) string {
	if ms == nil {
		return "-"
	}
	return formatMillis(*ms)
}

func shortGUID(guid string) string {
	if len(guid) > 13 {
		return guid[:13]
	}
	return guid
}
