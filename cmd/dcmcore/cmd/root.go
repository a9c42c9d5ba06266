// Package cmd implements the dcmcore CLI, adapted from the teacher's
// cmd/ctl/cmd (root.go's command-tree/log-level wiring, analyze.go's
// file-analysis RunE), re-pointed at pkg/dcm/decoder, pkg/dcm/windowing,
// pkg/dcm/preset, and pkg/dcm/series instead of pkg/dicos.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

// NewRoot assembles the dcmcore command tree. logLevel is the process's
// shared log level, set from the --log-level flag so it takes effect on
// the already-constructed rotating log handler (see cmd/dcmcore/main.go)
// without replacing it.
func NewRoot(ctx context.Context, gitsha string, logLevel *slog.LevelVar) *cobra.Command {
	root := &cobra.Command{
		Use:   "dcmcore",
		Short: "inspect, window, and assemble single-image DICOM files",
		Long:  "dcmcore decodes DICOM files, applies window/level transforms, and assembles multi-slice series into volumes.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			raw, _ := cmd.Flags().GetString("log-level")
			var level slog.Level
			if err := level.UnmarshalText([]byte(strings.ToUpper(raw))); err != nil {
				slog.WarnContext(ctx, "invalid log level, defaulting to INFO", "level", raw, "error", err)
				level = slog.LevelInfo
			}
			logLevel.Set(level)
		},
		Run: func(cmd *cobra.Command, args []string) {
			printCommandTree(cmd, 0)
		},
	}

	root.AddCommand(
		NewVersionCmd(gitsha),
		NewDecodeCmd(),
		NewWindowCmd(),
		NewSeriesCmd(),
	)

	pf := root.PersistentFlags()
	pf.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR); diagnostics go to the rotated log file, not stdout")
	return root
}

func printCommandTree(cmd *cobra.Command, indent int) {
	fmt.Println(strings.Repeat("\t", indent), cmd.Use+":", cmd.Short)
	for _, sub := range cmd.Commands() {
		printCommandTree(sub, indent+1)
	}
}

// NewVersionCmd reports the build's git SHA.
func NewVersionCmd(gitsha string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the build's git SHA",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(gitsha)
		},
	}
}
