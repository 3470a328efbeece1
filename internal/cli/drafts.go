package cli

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

const draftPreview = 40

func (a *app) draftsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "drafts",
		Short: "List note drafts cached for the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			drafts, err := s.statuses.ListDrafts(cmd.Context(), a.opts.deviceID)
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(drafts))
			for id := range drafts {
				ids = append(ids, id)
			}
			slices.Sort(ids)

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUPDATED\tCONTENT")
			for _, id := range ids {
				d := drafts[id]
				fmt.Fprintf(w, "%s\t%s\t%s\n", id, d.UpdatedAt.Local().Format("2006-01-02 15:04"), preview(d.Content))
			}
			return w.Flush()
		},
	}
}

func preview(content string) string {
	line := strings.Join(strings.Fields(content), " ")
	runes := []rune(line)
	if len(runes) <= draftPreview {
		return line
	}
	return string(runes[:draftPreview-1]) + "…"
}
