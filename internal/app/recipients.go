package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"estate_distribution/internal/domain"
)

// RecipientService answers "who receives this property" from the stored
// area set and the current buyer population.
type RecipientService struct {
	props  domain.PropertyRepository
	buyers domain.BuyerRepository
	engine *QualificationEngine
}

func NewRecipientService(p domain.PropertyRepository, b domain.BuyerRepository, e *QualificationEngine) *RecipientService {
	if e == nil {
		e = NewQualificationEngine()
	}
	return &RecipientService{props: p, buyers: b, engine: e}
}

func (s *RecipientService) Recipients(ctx context.Context, propertyID string) (domain.MatchResult, error) {
	p, err := s.props.GetProperty(ctx, propertyID)
	if err != nil {
		return domain.MatchResult{}, err
	}
	buyers, err := s.buyers.ListBuyers(ctx)
	if err != nil {
		return domain.MatchResult{}, fmt.Errorf("list buyers: %w", err)
	}
	res := s.engine.Qualify(p.Offer(), buyers)
	log.Info().
		Str("property", propertyID).
		Str("areas", p.Areas.String()).
		Int("candidates", len(buyers)).
		Int("recipients", len(res.QualifiedContactKeys)).
		Msg("recipients computed")
	return res, nil
}
