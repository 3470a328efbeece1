package cli

import (
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/noah-isme/pack-progress-api/internal/models"
)

func (a *app) statusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Manage device statuses",
	}

	get := &cobra.Command{
		Use:   "get <video-id>",
		Short: "Print the effective status of a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			if !s.store.Has(args[0]) {
				return fmt.Errorf("video %s not found", args[0])
			}
			lookup, _ := s.statuses.Resolve(cmd.Context(), nil, a.opts.deviceID, args[:1])
			fmt.Fprintln(a.out, lookup[args[0]])
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <video-id> <todo|in_progress|done>",
		Short: "Store a device status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := models.ParseNoteStatus(args[1])
			if err != nil {
				return err
			}
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.statuses.SetLocal(cmd.Context(), a.opts.deviceID, args[0], status); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s: %s\n", args[0], status)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored device statuses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			statuses, err := s.statuses.ListLocal(cmd.Context(), a.opts.deviceID)
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(statuses))
			for id := range statuses {
				ids = append(ids, id)
			}
			slices.Sort(ids)

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS")
			for _, id := range ids {
				fmt.Fprintf(w, "%s\t%s\n", id, statuses[id])
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(get, set, list)
	return cmd
}
