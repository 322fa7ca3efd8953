// Package wiring builds the service graph shared by the api and assigner
// binaries from a shared.Config.
package wiring

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"estate_distribution/internal/adapters/fieldcodec"
	"estate_distribution/internal/adapters/geocoder"
	redisad "estate_distribution/internal/adapters/redis"
	"estate_distribution/internal/adapters/tablestore"
	"estate_distribution/internal/app"
	"estate_distribution/internal/area"
	"estate_distribution/internal/domain"
	"estate_distribution/internal/shared"
	"estate_distribution/internal/storage/sqlrepo"
)

type Store interface {
	domain.PropertyRepository
	domain.BuyerRepository
}

type Deps struct {
	Store      Store
	SQL        *sqlrepo.Repo // nil for the table store backend
	Catalog    *area.Catalog
	Overrides  *area.AddressOverrides
	Resolver   *app.GeoResolver
	Assigner   *app.Assigner
	Recipients *app.RecipientService

	closers []func() error
}

func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}

// Build loads the area catalog first; a *domain.CatalogMisconfiguration is
// returned before any store or network client is created.
func Build(ctx context.Context, cfg shared.Config) (*Deps, error) {
	cat, ov, err := area.LoadFile(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("path", cfg.CatalogPath).
		Int("areas", len(cat.Definitions())).
		Int("overrides", ov.Len()).
		Msg("area catalog loaded")

	d := &Deps{Catalog: cat, Overrides: ov}
	ok := false
	defer func() {
		if !ok {
			d.Close()
		}
	}()

	codec, err := fieldcodec.FromBase64Key(cfg.FieldKey)
	if err != nil {
		return nil, err
	}

	switch cfg.StoreBackend {
	case "sql":
		db, err := sqlrepo.Open(ctx, cfg.DBDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.DBDriver, err)
		}
		d.closers = append(d.closers, db.Close)
		if err := ensureSchema(ctx, cfg, db); err != nil {
			return nil, err
		}
		d.SQL = sqlrepo.New(db, codec)
		d.Store = d.SQL
		log.Info().Str("driver", cfg.DBDriver).Msg("database connection ok")
	case "tablestore":
		ts, err := tablestore.New(tablestore.Config{
			BaseURL:        cfg.TableStoreBase,
			APIKey:         cfg.TableStoreKey,
			PropertyTable:  cfg.PropertyTable,
			BuyerTable:     cfg.BuyerTable,
			RPS:            cfg.TableStoreRPS,
			RequestTimeout: cfg.TableStoreTimeout,
		}, codec)
		if err != nil {
			return nil, err
		}
		d.Store = ts
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	var opts []app.ResolverOption
	opts = append(opts, app.WithLinkExpander(geocoder.NewExpander(cfg.GeocodeTimeout)))
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		d.closers = append(d.closers, rc.Close)
		if err := rc.Ping(ctx); err != nil {
			// the shared tier is optional; the memory tier still dedups
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, geo cache disabled")
		} else {
			opts = append(opts, app.WithCache(rc))
		}
	}

	var geo domain.Geocoder
	if cfg.GeocoderKey != "" {
		gc, err := geocoder.New(geocoder.Config{
			BaseURL: cfg.GeocoderBase,
			APIKey:  cfg.GeocoderKey,
			RPS:     cfg.GeocoderRPS,
			Timeout: cfg.GeocodeTimeout,
		})
		if err != nil {
			return nil, err
		}
		geo = gc
	}

	d.Resolver = app.NewGeoResolver(geo, app.ResolverConfig{
		Attempts:    cfg.GeocodeAttempts,
		CallTimeout: cfg.GeocodeTimeout,
		CacheTTL:    cfg.GeoCacheTTL,
	}, opts...)
	d.Assigner = app.NewAssigner(d.Resolver, cat, ov, d.Store)
	d.Recipients = app.NewRecipientService(d.Store, d.Store, app.NewQualificationEngine())

	ok = true
	return d, nil
}

// SQLite databases are local and disposable, so their schema is created on
// start. MySQL schema comes from migrations/.
func ensureSchema(ctx context.Context, cfg shared.Config, db *sql.DB) error {
	if cfg.DBDriver != "sqlite3" {
		return nil
	}
	return sqlrepo.EnsureSchema(ctx, db)
}
