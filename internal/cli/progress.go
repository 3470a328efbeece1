package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/pack-progress-api/internal/service"
)

func (a *app) progressCommand() *cobra.Command {
	var pack int

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Print progress for the catalog or one pack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			progress := service.NewProgressService(s.store, s.statuses, a.logger())
			report := progress.Global(cmd.Context(), nil, a.opts.deviceID)
			label := "all packs"
			if cmd.Flags().Changed("pack") {
				if report, err = progress.Pack(cmd.Context(), nil, a.opts.deviceID, pack); err != nil {
					return err
				}
				label = fmt.Sprintf("pack %d", pack)
				if student, ok := s.store.StudentByPack(pack); ok {
					label += " (" + student.Name + ")"
				}
			}

			st := report.Stats
			fmt.Fprintf(a.out, "%s: %d/%d done, %d in progress, %d todo\n", label, st.Done, st.Total, st.InProgress, st.Todo)
			return nil
		},
	}

	cmd.Flags().IntVarP(&pack, "pack", "p", 0, "pack number")
	return cmd
}
