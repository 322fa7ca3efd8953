// Package sqlrepo stores properties and buyers in MySQL (production) or
// SQLite (local runs and tests) through database/sql.
package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"estate_distribution/internal/adapters/fieldcodec"
	"estate_distribution/internal/domain"
)

// Open connects and pings. SQLite is limited to one connection so writes
// from batch workers serialize instead of failing with SQLITE_BUSY.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case "mysql", "sqlite3":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the tables when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaSQL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Repo implements domain.PropertyRepository and domain.BuyerRepository.
// Personal buyer fields pass through codec on read.
type Repo struct {
	db    *sql.DB
	codec fieldcodec.Codec
}

func New(db *sql.DB, codec fieldcodec.Codec) *Repo {
	if codec == nil {
		codec = fieldcodec.Plain{}
	}
	return &Repo{db: db, codec: codec}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(s rowScanner) (domain.Property, error) {
	var (
		p                 domain.Property
		rawType, rawAreas string
		lat, lng          sql.NullFloat64
	)
	if err := s.Scan(
		&p.Location.PropertyID,
		&p.Location.Address,
		&p.Location.MapLink,
		&p.Location.City,
		&rawType,
		&p.Price,
		&rawAreas,
		&lat,
		&lng,
		&p.Location.GeoKey,
	); err != nil {
		return domain.Property{}, err
	}
	pt, ok := domain.ParsePropertyType(rawType)
	if !ok {
		log.Warn().Str("property", p.ID()).Str("type", rawType).Msg("unknown property type")
	}
	p.Type = pt
	p.Areas = domain.DistributionAreaSet(domain.ParseGlyphs(rawAreas))
	if lat.Valid && lng.Valid {
		if c := (domain.Coordinate{Lat: lat.Float64, Lng: lng.Float64}); c.Valid() {
			p.Location.Coordinate = &c
		}
	}
	return p, nil
}

func (r *Repo) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	p, err := scanProperty(r.db.QueryRowContext(ctx, getPropertySQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, err
}

func (r *Repo) ListProperties(ctx context.Context) ([]domain.Property, error) {
	rows, err := r.db.QueryContext(ctx, listPropertiesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveAssignment is a single UPDATE, so the area set and the coordinate are
// replaced together or not at all. MySQL reports 0 affected rows for an
// unchanged row, so that count is not read as "missing".
func (r *Repo) SaveAssignment(ctx context.Context, a domain.AreaAssignment) error {
	var err error
	if a.Coordinate != nil {
		_, err = r.db.ExecContext(ctx, saveAreasAndCoordSQL,
			a.Areas.String(),
			a.Coordinate.Lat,
			a.Coordinate.Lng,
			a.GeoKey,
			a.PropertyID,
		)
	} else {
		_, err = r.db.ExecContext(ctx, saveAreasSQL, a.Areas.String(), a.PropertyID)
	}
	return err
}

func (r *Repo) ListBuyers(ctx context.Context) ([]domain.BuyerCriteria, error) {
	rows, err := r.db.QueryContext(ctx, listBuyersSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BuyerCriteria
	for rows.Next() {
		var (
			b                  domain.BuyerRecord
			land, house, condo string
			email, phone       string
		)
		if err := rows.Scan(
			&b.ID, &email, &phone, &b.DesiredAreas, &b.DesiredPropertyType,
			&land, &house, &condo,
			&b.Distribution, &b.Status, &b.BrokerInquiry,
		); err != nil {
			return nil, err
		}
		b.Email = r.decode(b.ID, "email", email)
		b.Phone = r.decode(b.ID, "phone", phone)
		b.PriceRanges = map[domain.PropertyType]string{
			domain.PropertyTypeLand:  land,
			domain.PropertyTypeHouse: house,
			domain.PropertyTypeCondo: condo,
		}
		out = append(out, b.Criteria())
	}
	return out, rows.Err()
}

// decode drops a field that cannot be decoded; the buyer then has no
// contact key and is excluded downstream rather than failing the scan.
func (r *Repo) decode(id, field, v string) string {
	if v == "" {
		return ""
	}
	out, err := r.codec.Decode(v)
	if err != nil {
		log.Warn().Str("buyer", id).Str("field", field).Err(err).Msg("personal field decode failed")
		return ""
	}
	return out
}
