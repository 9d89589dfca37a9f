package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/Fuchsoria/couponslots/internal/app"
	"github.com/Fuchsoria/couponslots/internal/logger"
	memorystorage "github.com/Fuchsoria/couponslots/internal/storage/memory"
	sqlstorage "github.com/Fuchsoria/couponslots/internal/storage/sql"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cli carries what every command needs. open is swapped in tests.
type cli struct {
	configFile string
	in         io.Reader
	out        io.Writer
	open       func(ctx context.Context, configFile string) (*app.App, func(), error)
}

func newRootCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "couponctl",
		Short:         "Operator tool for coupon imports and layout slots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&c.configFile, "config", "/etc/couponslots/config.json", "Path to configuration file")
	cmd.SetIn(c.in)
	cmd.SetOut(c.out)

	cmd.AddCommand(newImportCmd(c))
	cmd.AddCommand(newAssignCmd(c))
	cmd.AddCommand(newFlagCmd(c))
	cmd.AddCommand(newBoardCmd(c))
	cmd.AddCommand(newColumnsCmd())

	return cmd
}

func main() {
	c := &cli{in: os.Stdin, out: os.Stdout, open: openApp}

	if err := newRootCmd(c).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// openApp wires the application the same way the service does, minus the
// servers and the event broker.
func openApp(ctx context.Context, configFile string) (*app.App, func(), error) {
	v := viper.New()
	v.SetDefault("logger.level", "warn")
	v.SetDefault("logger.file", "")
	v.SetDefault("db.connectionString", "")
	v.SetDefault("storage.type", "sql")
	v.SetEnvPrefix("couponslots")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("cannot read config %s, %w", configFile, err)
		}
	}

	logg := logger.New(v.GetString("logger.level"), v.GetString("logger.file"))

	if v.GetString("storage.type") == "memory" {
		return app.New(logg, memorystorage.New(), nil), func() { _ = logg.Sync() }, nil
	}

	storage, err := sqlstorage.New(ctx, v.GetString("db.connectionString"))
	if err != nil {
		return nil, nil, fmt.Errorf("can't create new storage instance, %w", err)
	}

	return app.New(logg, storage, nil), func() {
		_ = storage.Close()
		_ = logg.Sync()
	}, nil
}
