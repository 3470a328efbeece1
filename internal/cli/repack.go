package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/noah-isme/pack-progress-api/internal/catalog"
)

const defaultPacks = 18

func (a *app) repackCommand() *cobra.Command {
	var (
		input  string
		packs  int
		seed   uint32
		output string
	)

	cmd := &cobra.Command{
		Use:   "repack",
		Short: "Spread the catalog over packs of near-equal size",
		Long: `Reassigns pack_number and rank_in_pack for every video with an id.
A zero seed keeps the file order; any other seed shuffles deterministically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				input = a.opts.videosPath
			}
			videos, err := catalog.ReadVideos(input)
			if err != nil {
				return fmt.Errorf("read videos: %w", err)
			}
			repacked, err := catalog.Repack(videos, packs, seed)
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			enc := json.NewEncoder(&buf)
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			if err := enc.Encode(repacked); err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = a.out.Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "pack sizes: %v\n", catalog.PackSizes(len(repacked), packs))
			fmt.Fprintf(a.out, "wrote %d videos in %d packs to %s\n", len(repacked), packs, output)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&input, "input", "i", "", "source file (defaults to --videos)")
	flags.IntVarP(&packs, "packs", "n", defaultPacks, "number of packs")
	flags.Uint32Var(&seed, "seed", 0, "shuffle seed")
	flags.StringVarP(&output, "out", "o", "", "output file (stdout when empty)")
	return cmd
}
