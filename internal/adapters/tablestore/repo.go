// Package tablestore reads properties and buyers from a hosted table store
// over its REST API and writes area assignments back.
package tablestore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"estate_distribution/internal/adapters/fieldcodec"
	"estate_distribution/internal/adapters/httpclient"
	"estate_distribution/internal/domain"
)

type record struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

type page struct {
	Records []record `json:"records"`
	Offset  string   `json:"offset"`
}

type Config struct {
	BaseURL        string
	APIKey         string
	PropertyTable  string
	BuyerTable     string
	RPS            int
	RequestTimeout time.Duration
}

// Store implements domain.PropertyRepository and domain.BuyerRepository.
type Store struct {
	cl     *httpclient.Client
	props  string
	buyers string
	codec  fieldcodec.Codec
}

func New(cfg Config, codec fieldcodec.Codec) (*Store, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("table store API key is required")
	}
	if cfg.PropertyTable == "" {
		cfg.PropertyTable = "properties"
	}
	if cfg.BuyerTable == "" {
		cfg.BuyerTable = "buyers"
	}
	if codec == nil {
		codec = fieldcodec.Plain{}
	}
	cl, err := httpclient.New(cfg.BaseURL, httpclient.Options{
		Service: "tablestore",
		RPS:     cfg.RPS,
		Timeout: cfg.RequestTimeout,
		Headers: map[string]string{
			"Authorization": "Bearer " + cfg.APIKey,
			"User-Agent":    "estate-distribution/1.0",
		},
	})
	if err != nil {
		return nil, err
	}
	return &Store{cl: cl, props: cfg.PropertyTable, buyers: cfg.BuyerTable, codec: codec}, nil
}

func (s *Store) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	var r record
	err := s.cl.GetJSON(ctx, "get_record", fmt.Sprintf("/tables/%s/records/%s", url.PathEscape(s.props), url.PathEscape(id)), nil, &r)
	if errors.Is(err, httpclient.ErrNotFound) {
		return domain.Property{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Property{}, err
	}
	if r.ID == "" {
		r.ID = id
	}
	return mapProperty(r), nil
}

func (s *Store) ListProperties(ctx context.Context) ([]domain.Property, error) {
	var out []domain.Property
	err := s.each(ctx, s.props, func(r record) {
		out = append(out, mapProperty(r))
	})
	return out, err
}

// SaveAssignment is a single PATCH so the area set and coordinate change together.
func (s *Store) SaveAssignment(ctx context.Context, a domain.AreaAssignment) error {
	body := map[string]any{"fields": assignmentFields(a)}
	err := s.cl.SendJSON(ctx, http.MethodPatch, "update_record",
		fmt.Sprintf("/tables/%s/records/%s", url.PathEscape(s.props), url.PathEscape(a.PropertyID)), body, nil)
	if errors.Is(err, httpclient.ErrNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func (s *Store) ListBuyers(ctx context.Context) ([]domain.BuyerCriteria, error) {
	var out []domain.BuyerCriteria
	err := s.each(ctx, s.buyers, func(r record) {
		out = append(out, mapBuyer(r, s.codec))
	})
	return out, err
}

// each walks every page of table, following the offset cursor.
func (s *Store) each(ctx context.Context, table string, fn func(record)) error {
	offset := ""
	for {
		q := url.Values{}
		if offset != "" {
			q.Set("offset", offset)
		}
		var pg page
		if err := s.cl.GetJSON(ctx, "list_records", fmt.Sprintf("/tables/%s/records", url.PathEscape(table)), q, &pg); err != nil {
			return fmt.Errorf("list %s: %w", table, err)
		}
		for _, r := range pg.Records {
			fn(r)
		}
		if pg.Offset == "" || pg.Offset == offset {
			return nil
		}
		offset = pg.Offset
	}
}
