package cmd

import (
	"github.com/Daiya404/CoverPics/internal/log"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List recent download sessions",
	Long: `List recent download sessions recorded under ~/.coverpics/logs,
newest first, with per-session operation counts.`,
	RunE: runLogsCommand,
}

var logsLimit int

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 10, "Maximum number of sessions to list")
}

func runLogsCommand(cmd *cobra.Command, args []string) error {
	sessions, err := log.ReadSessions(logsLimit)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		cmd.Println("No sessions recorded.")
		return nil
	}

	for _, s := range sessions {
		meta := s.Metadata
		cmd.Printf("%s  %s\n", meta.Timestamp.Format("2006-01-02 15:04:05"), meta.SessionID)
		cmd.Printf("  command: %v\n", meta.CommandArgs)
		cmd.Printf("  operations: %d total, %d successful, %d failed\n",
			meta.TotalOps, meta.SuccessfulOps, meta.FailedOps)
		for _, op := range s.Operations {
			if op.Success {
				continue
			}
			cmd.Printf("  failed %s: %s (%s)\n", op.Type, op.Title, op.Error)
		}
	}
	return nil
}
