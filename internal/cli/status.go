package cli

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"inkcast/internal/media"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <url>",
		Short: "Show which stages have completed for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videoID, err := media.ExtractID(args[0])
			if err != nil {
				return err
			}
			p, _, err := buildPipeline(cmd)
			if err != nil {
				return err
			}
			rows, err := p.Status(videoID)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Stage", "Done", "Last Modified", "Outputs"})
			for _, r := range rows {
				done := text.FgRed.Sprint("no")
				if r.Done {
					done = text.FgGreen.Sprint("yes")
				}
				modified := "-"
				if !r.Modified.IsZero() {
					modified = r.Modified.Format("2006-01-02 15:04:05")
				}
				t.AppendRow(table.Row{r.Name, done, modified, strings.Join(r.Outputs, ", ")})
			}
			t.Render()
			return nil
		},
	}
}
