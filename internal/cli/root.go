// Package cli implements packctl, an offline companion to the API: it queries the catalog,
// keeps device statuses in a local bbolt file and rebalances packs.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/pack-progress-api/internal/catalog"
	"github.com/noah-isme/pack-progress-api/internal/service"
	"github.com/noah-isme/pack-progress-api/pkg/devicecache"
)

// Version is set at build time.
var Version = "0.1.0"

type options struct {
	videosPath   string
	studentsPath string
	language     string
	cachePath    string
	deviceID     string
	verbose      bool
}

type app struct {
	opts options
	out  io.Writer
}

// NewRootCommand builds the packctl command tree writing to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:   "packctl",
		Short: "Inspect the video catalog and track progress offline",
		Long: `packctl works on the same catalog files as the API.

Statuses set here are stored per device in a local cache file and
count toward progress exactly like the API's device statuses.`,
		SilenceUsage: true,
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&a.opts.videosPath, "videos", "./data/videos.json", "video catalog file")
	flags.StringVar(&a.opts.studentsPath, "students", "./data/students.json", "student roster file")
	flags.StringVar(&a.opts.language, "lang", catalog.DefaultLanguage.String(), "collation language for title sorting")
	flags.StringVar(&a.opts.cachePath, "cache", "./data/packctl.db", "device cache file")
	flags.StringVar(&a.opts.deviceID, "device", "local", "device id inside the cache file")
	flags.BoolVarP(&a.opts.verbose, "verbose", "v", false, "log degraded reads")

	root.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(a.out, "packctl version %s\n", Version)
			},
		},
		a.videosCommand(),
		a.statusCommand(),
		a.draftsCommand(),
		a.progressCommand(),
		a.repackCommand(),
	)
	return root
}

func (a *app) logger() *zap.Logger {
	if !a.opts.verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// session bundles what a command needs to resolve statuses against the local cache.
type session struct {
	store    *catalog.Store
	engine   *catalog.Engine
	cache    *devicecache.Bolt
	statuses *service.StatusService
}

func (a *app) open() (*session, error) {
	store, err := catalog.Load(a.opts.videosPath, a.opts.studentsPath)
	if err != nil {
		return nil, err
	}
	cache, err := devicecache.OpenBolt(a.opts.cachePath)
	if err != nil {
		return nil, err
	}
	return &session{
		store:    store,
		engine:   catalog.NewEngine(a.opts.language),
		cache:    cache,
		statuses: service.NewStatusService(nil, cache, store, nil, a.logger()),
	}, nil
}

func (s *session) Close() error {
	return s.cache.Close()
}
