package main

import (
	"fmt"
	"os"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"replybot/internal/conf"
	"replybot/internal/data"
	"replybot/internal/server"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = "replybot"
	// Version is the version of the compiled software.
	Version string

	flagconf string
)

func newApp(logger log.Logger, id data.InstanceID, hs *khttp.Server, rs *server.RuleSyncServer) *kratos.App {
	return kratos.New(
		kratos.ID(string(id)),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(
			hs,
			rs,
		),
	)
}

func newLogger(id data.InstanceID) log.Logger {
	return log.With(log.NewStdLogger(os.Stdout),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.id", string(id),
		"service.name", Name,
		"service.version", Version,
	)
}

func loadConfig() (*conf.Bootstrap, error) {
	c := config.New(
		config.WithSource(
			file.NewSource(flagconf),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		return nil, err
	}
	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		return nil, err
	}
	if bc.Server == nil || bc.Data == nil || bc.Data.Database == nil || bc.Data.Redis == nil {
		return nil, fmt.Errorf("%s: server, data.database and data.redis are required", flagconf)
	}
	if bc.Reply == nil {
		bc.Reply = &conf.Reply{}
	}
	if bc.Image == nil {
		bc.Image = &conf.Image{}
	}
	if bc.OCR == nil {
		bc.OCR = &conf.OCR{}
	}
	return &bc, nil
}

var rootCmd = &cobra.Command{
	Use:          Name,
	Short:        "Canned replies for chat groups and duplicate image detection",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and keep the rule cache in sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		bc, err := loadConfig()
		if err != nil {
			return err
		}
		id := data.NewInstanceID()
		logger := newLogger(id)

		app, cleanup, err := wireApp(bc.Server, bc.Data, bc.Reply, bc.Image, bc.OCR, id, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		// start and wait for stop signal
		return app.Run()
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		bc, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := data.OpenDB(bc.Data)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := data.RunMigrate(db); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "database schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: --conf config.yaml")
	rootCmd.AddCommand(serveCmd, migrateCmd, importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
