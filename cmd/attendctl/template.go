package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/attendance/internal/client"
	"github.com/JonMunkholm/attendance/internal/core"
)

func newTemplateCmd(a *app) *cobra.Command {
	var kind, out string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Download the upload template workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var buf bytes.Buffer
			name, err := a.client.DownloadTemplate(cmd.Context(), kind, &buf)
			if err != nil {
				return a.failf("%s", client.UserMessage(err))
			}

			if out == "" {
				out = name
			}
			if out == "" {
				out = kind + ".xlsx"
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write template: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Template saved to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", core.KindUserShifts, "Upload kind")
	cmd.Flags().StringVar(&out, "out", "", "Output path (default: the server's file name)")

	return cmd
}
