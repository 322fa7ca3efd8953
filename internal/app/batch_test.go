package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"estate_distribution/internal/app"
	"estate_distribution/internal/domain"
)

func TestBatch_CountsOutcomesAndContinuesPastErrors(t *testing.T) {
	s := newScenario(t)
	var props []domain.Property
	coords := map[string]domain.Coordinate{}
	for i := 0; i < 6; i++ {
		addr := fmt.Sprintf("addr-%d", i)
		props = append(props, domain.Property{Location: domain.PropertyLocation{PropertyID: fmt.Sprintf("p%d", i), Address: addr, City: "CityA"}})
		coords[addr] = s.site
	}
	// p4 cannot be geocoded, p5 cannot be written
	delete(coords, "addr-4")
	repo := newFakePropRepo(props...)
	repo.failFor = map[string]error{"p5": errors.New("locked")}
	geo := &fakeGeocoder{coords: coords}

	rep, err := app.NewBatchAssigner(s.assigner(geo, repo), repo, 3).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Run == "" || rep.Total != 6 || rep.Changed != 5 || rep.Errors != 1 || rep.GeoFailures != 1 || rep.Skipped != 0 {
		t.Fatalf("unexpected report %+v", rep)
	}
	p4, _ := repo.GetProperty(context.Background(), "p4")
	if p4.Areas.String() != "㊵" {
		t.Fatalf("geo failure should still assign city-wide areas, got %q", p4.Areas)
	}

	// second run over the written state changes nothing
	rep2, err := app.NewBatchAssigner(s.assigner(geo, repo), repo, 3).Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if rep2.Changed != 0 || rep2.Unchanged != 5 || rep2.Errors != 1 || rep2.GeoFailures != 1 {
		t.Fatalf("second run report %+v", rep2)
	}
	if rep2.Run == rep.Run {
		t.Fatalf("each run needs its own id")
	}
}

func TestBatch_CancelledBeforeStartLaunchesNothing(t *testing.T) {
	s := newScenario(t)
	repo := newFakePropRepo(
		domain.Property{Location: domain.PropertyLocation{PropertyID: "p1", City: "CityA"}},
		domain.Property{Location: domain.PropertyLocation{PropertyID: "p2", City: "CityA"}},
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := app.NewBatchAssigner(s.assigner(&fakeGeocoder{}, repo), repo, 1).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if rep.Skipped != 2 || repo.saveCount() != 0 {
		t.Fatalf("nothing should run after cancellation: %+v saves=%d", rep, repo.saveCount())
	}
}
