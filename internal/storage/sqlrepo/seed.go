package sqlrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// SeedProperty and SeedBuyer mirror the table rows. Buyer contact fields are
// stored exactly as given, so a seed may carry "enc:" values.
type SeedProperty struct {
	ID           string   `json:"id"`
	Address      string   `json:"address"`
	MapLink      string   `json:"map_link"`
	City         string   `json:"city"`
	PropertyType string   `json:"property_type"`
	Price        int64    `json:"price"`
	Areas        string   `json:"distribution_areas"`
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`
	GeoKey       string   `json:"geo_key"`
}

type SeedBuyer struct {
	ID                  string `json:"id"`
	Email               string `json:"email"`
	Phone               string `json:"phone"`
	DesiredAreas        string `json:"desired_areas"`
	DesiredPropertyType string `json:"desired_property_type"`
	PriceRangeLand      string `json:"price_range_land"`
	PriceRangeHouse     string `json:"price_range_house"`
	PriceRangeCondo     string `json:"price_range_condo"`
	Distribution        string `json:"distribution"`
	Status              string `json:"status"`
	BrokerInquiry       bool   `json:"broker_inquiry"`
}

type Seed struct {
	Properties []SeedProperty `json:"properties"`
	Buyers     []SeedBuyer    `json:"buyers"`
}

// LoadSeedFile reads a JSON seed document.
func LoadSeedFile(path string) (Seed, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed file: %w", err)
	}
	var s Seed
	if err := json.Unmarshal(b, &s); err != nil {
		return Seed{}, fmt.Errorf("unmarshal seed: %w", err)
	}
	for i, p := range s.Properties {
		if p.ID == "" {
			return Seed{}, fmt.Errorf("seed property %d: id is required", i)
		}
	}
	for i, b := range s.Buyers {
		if b.ID == "" {
			return Seed{}, fmt.Errorf("seed buyer %d: id is required", i)
		}
	}
	return s, nil
}

func nullable(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// Seed replaces the given rows in one transaction.
func (r *Repo) Seed(ctx context.Context, s Seed) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	pstmt, err := tx.PrepareContext(ctx, replacePropertySQL)
	if err != nil {
		return err
	}
	defer pstmt.Close()
	for _, p := range s.Properties {
		if _, err := pstmt.ExecContext(ctx,
			p.ID, p.Address, p.MapLink, p.City, p.PropertyType, p.Price, p.Areas,
			nullable(p.Lat), nullable(p.Lng), p.GeoKey,
		); err != nil {
			return fmt.Errorf("seed property %s: %w", p.ID, err)
		}
	}

	bstmt, err := tx.PrepareContext(ctx, replaceBuyerSQL)
	if err != nil {
		return err
	}
	defer bstmt.Close()
	for _, b := range s.Buyers {
		if _, err := bstmt.ExecContext(ctx,
			b.ID, b.Email, b.Phone, b.DesiredAreas, b.DesiredPropertyType,
			b.PriceRangeLand, b.PriceRangeHouse, b.PriceRangeCondo,
			b.Distribution, b.Status, b.BrokerInquiry,
		); err != nil {
			return fmt.Errorf("seed buyer %s: %w", b.ID, err)
		}
	}
	return tx.Commit()
}
