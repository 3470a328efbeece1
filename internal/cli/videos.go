package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/noah-isme/pack-progress-api/internal/catalog"
	"github.com/noah-isme/pack-progress-api/internal/models"
	"github.com/noah-isme/pack-progress-api/internal/service"
)

func (a *app) videosCommand() *cobra.Command {
	var (
		q       models.VideoQuery
		pack    int
		minSec  int
		maxSec  int
		sortKey string
		order   string
	)

	cmd := &cobra.Command{
		Use:   "videos",
		Short: "List catalog videos",
		Long:  `Search, filter, sort and paginate the catalog. Each row shows the device status.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			flags := cmd.Flags()
			if flags.Changed("pack") {
				q.Pack = &pack
			}
			if flags.Changed("min") {
				q.MinDuration = &minSec
			}
			if flags.Changed("max") {
				q.MaxDuration = &maxSec
			}
			q.SortKey = models.SortKey(sortKey)
			q.SortOrder = models.SortOrder(order)

			videos := service.NewVideoService(s.store, s.engine, s.statuses, nil, service.VideoConfig{PerPage: 20, MaxPerPage: 1000}, a.logger())
			page, err := videos.List(cmd.Context(), nil, a.opts.deviceID, q, "")
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PACK\tRANK\tID\tTITLE\tDURATION\tPUBLISHED\tSTATUS")
			for _, v := range page.Items {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
					v.PackNumber, v.RankInPack, v.VideoID, v.Title,
					catalog.FormatDuration(v.DurationS), catalog.FormatDate(v.PublishedAt), v.Status)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "page %d/%d, %d videos\n", page.Pagination.Page, page.Pagination.TotalPages, page.Pagination.TotalCount)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&q.Search, "search", "s", "", "case-insensitive title substring")
	flags.IntVarP(&pack, "pack", "p", 0, "pack number")
	flags.IntVar(&minSec, "min", 0, "minimum duration in seconds")
	flags.IntVar(&maxSec, "max", 0, "maximum duration in seconds")
	flags.StringVar(&q.From, "from", "", "published on or after (ISO-8601)")
	flags.StringVar(&q.To, "to", "", "published on or before (ISO-8601)")
	flags.StringVar(&sortKey, "sort", string(models.SortByDate), "date, duration, title or rank")
	flags.StringVar(&order, "order", string(models.SortDesc), "asc or desc")
	flags.IntVar(&q.Page, "page", 1, "page number")
	flags.IntVar(&q.PerPage, "per-page", 20, "rows per page")
	return cmd
}
