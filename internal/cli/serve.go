package cli

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yegors/flightsurety/internal/api"
	"github.com/yegors/flightsurety/internal/config"
	"github.com/yegors/flightsurety/internal/oracle"
	"github.com/yegors/flightsurety/internal/provision"
	"github.com/yegors/flightsurety/internal/storage/sqlite"
	"github.com/yegors/flightsurety/internal/surety"
	"github.com/yegors/flightsurety/pkg/logger"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ledger, the oracle pool and the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg, cmd)
			if err != nil {
				return err
			}
			defer log.Sync()

			return serve(cmd.Context(), cfg, log)
		},
	}
}

// services is everything serve runs
type services struct {
	db      *sql.DB
	journal *sqlite.EventStorage
	sub     *surety.Subscription
	app     *surety.App
	pool    *oracle.Pool
	server  *api.Server
}

func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	svc, err := buildServices(cfg, log)
	if err != nil {
		return err
	}
	defer svc.db.Close()

	log.Info("Starting FlightSurety",
		logger.String("version", Version),
		logger.Address("owner", svc.app.Ledger().Owner()),
		logger.Address("app", svc.app.Address()),
		logger.String("database", cfg.Storage.DatabasePath))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer svc.sub.Close()
		return svc.journal.Consume(gctx, svc.sub)
	})
	if svc.pool != nil {
		g.Go(func() error {
			return svc.pool.Run(gctx)
		})
	}

	g.Go(func() error {
		if err := bootstrap(gctx, cfg, svc, log); err != nil {
			return err
		}
		return svc.server.ListenAndServe(gctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("FlightSurety stopped")
	return nil
}

func buildServices(cfg *config.Config, log *logger.Logger) (*services, error) {
	db, err := sqlite.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}
	journal, err := sqlite.NewEventStorage(db, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	bus := surety.NewBus()
	sub := bus.Subscribe()

	ledger, err := surety.NewLedger(surety.LedgerConfig{
		Owner:            cfg.Ledger.OwnerAddress(),
		FirstAirline:     cfg.Ledger.FirstAirlineAddress(),
		FirstAirlineName: cfg.Ledger.FirstAirlineName,
	}, bus, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create ledger: %w", err)
	}
	if err := ledger.AuthorizeCaller(surety.Tx{Caller: ledger.Owner()}, cfg.Ledger.App()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to authorize app: %w", err)
	}
	app := surety.NewApp(surety.AppConfig{
		Address: cfg.Ledger.App(),
		Params:  cfg.Ledger.Params(),
	}, ledger, log)

	svc := &services{
		db:      db,
		journal: journal,
		sub:     sub,
		app:     app,
		server:  api.NewServer(api.NewRouter(app, journal, cfg, log), cfg.Server, log),
	}

	if cfg.Oracles.Enabled {
		svc.pool, err = newOraclePool(cfg.Oracles, app, bus, log)
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	return svc, nil
}

func newOraclePool(cfg config.OraclesConfig, app *surety.App, bus *surety.Bus, log *logger.Logger) (*oracle.Pool, error) {
	var (
		accounts []common.Address
		err      error
	)
	if len(cfg.Accounts) > 0 {
		accounts, err = surety.ParseAccounts(cfg.Accounts)
	} else {
		accounts, err = surety.NewAccounts(cfg.Count)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to prepare oracle accounts: %w", err)
	}

	var newSource oracle.SourceFactory
	switch cfg.StatusSource {
	case config.StatusSourceHTTP:
		newSource = oracle.HTTPSources(oracle.HTTPSourceConfig{
			BaseURL:    cfg.SourceURL,
			Timeout:    time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
			MaxRetries: cfg.MaxRetries,
		}, time.Duration(cfg.CacheTTLSeconds)*time.Second, log)
	default:
		newSource = oracle.RandomSources(cfg.LateAirlineBiasPercent, uint64(time.Now().UnixNano()))
	}

	return oracle.NewPool(app, bus, accounts, newSource, log), nil
}

// bootstrap seeds the ledger when provisioning is enabled, otherwise it only
// registers the oracle pool
func bootstrap(ctx context.Context, cfg *config.Config, svc *services, log *logger.Logger) error {
	if !cfg.Provision.Enabled {
		if svc.pool == nil {
			return nil
		}
		if err := svc.pool.Register(ctx); err != nil {
			return fmt.Errorf("failed to register oracles: %w", err)
		}
		return nil
	}

	airlines, err := provisionAirlines(cfg)
	if err != nil {
		return err
	}

	var registrar provision.OracleRegistrar
	if svc.pool != nil {
		registrar = svc.pool
	}
	_, err = provision.New(svc.app, provision.Config{
		Airlines:          airlines,
		FlightsPerAirline: cfg.Provision.FlightsPerAirline,
	}, registrar, log).Run(ctx)
	return err
}

func provisionAirlines(cfg *config.Config) ([]common.Address, error) {
	var (
		rest []common.Address
		err  error
	)
	if len(cfg.Provision.Airlines) > 0 {
		rest, err = surety.ParseAccounts(cfg.Provision.Airlines)
	} else {
		rest, err = surety.NewAccounts(cfg.Provision.AirlineCount - 1)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to prepare airline accounts: %w", err)
	}
	return append([]common.Address{cfg.Ledger.FirstAirlineAddress()}, rest...), nil
}
