// Command builder-cli manages site-builder projects directly against the
// configured document store, acting as a single user.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"go-site-builder/internal/assets"
	"go-site-builder/internal/auth"
	"go-site-builder/internal/catalog"
	"go-site-builder/internal/config"
	"go-site-builder/internal/model"
	"go-site-builder/internal/projectmanager"
	"go-site-builder/internal/storage"

	"github.com/spf13/cobra"
)

// cli carries what every subcommand needs once the root command has run setup.
type cli struct {
	configFile string
	userID     string

	cfg     *config.Config
	logger  *slog.Logger
	closer  io.Closer
	catalog *catalog.Catalog
	manager *projectmanager.Manager
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "builder-cli",
		Short:         "Site builder command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.teardown()
		},
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "Path to a config file (default ./sitebuilder.*)")
	root.PersistentFlags().StringVar(&c.userID, "user", defaultUser(), "User id to act as")

	root.AddCommand(
		c.projectsCmd(),
		c.pagesCmd(),
		c.componentsCmd(),
		c.publishCmd(),
		c.unpublishCmd(),
		c.exportCmd(),
		c.previewCmd(),
		c.templatesCmd(),
		c.libraryCmd(),
		c.tokenCmd(),
	)
	return root
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configFile)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = config.NewLogger(cfg.Log, cmd.ErrOrStderr())

	store, closer, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path, cfg.Storage.DSN, c.logger)
	if err != nil {
		return fmt.Errorf("failed to open document store: %w", err)
	}
	c.closer = closer

	c.catalog, err = catalog.New()
	if err != nil {
		return err
	}

	opts := []projectmanager.Option{
		projectmanager.WithLogger(c.logger),
		projectmanager.WithCatalog(c.catalog),
		projectmanager.WithPublishBaseURL(cfg.Publish.BaseURL),
		projectmanager.WithPersistTimeout(cfg.PersistTimeout),
	}
	// Without object storage, publishing only records the URL.
	if cfg.Minio.Endpoint != "" {
		objects, err := assets.NewMinioStore(assets.Config{
			Endpoint:        cfg.Minio.Endpoint,
			AccessKeyID:     cfg.Minio.AccessKey,
			SecretAccessKey: cfg.Minio.SecretKey,
			UseSSL:          cfg.Minio.UseSSL,
			PublicURL:       cfg.Minio.PublicURL,
		})
		if err != nil {
			return err
		}
		opts = append(opts,
			projectmanager.WithObjectStore(objects),
			projectmanager.WithDeployer(projectmanager.NewObjectDeployer(objects, c.logger)),
		)
	}

	users := auth.Static{User: &model.User{ID: c.userID}}
	c.manager = projectmanager.NewManager(store, users, opts...)
	return nil
}

func (c *cli) teardown() error {
	if c.manager != nil {
		c.manager.Close()
	}
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// open loads a project so that subsequent edits can address it.
func (c *cli) open(ctx context.Context, projectID string) (*model.Project, error) {
	return c.manager.OpenProject(ctx, projectID)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
