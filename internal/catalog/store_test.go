package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/xtding233/scale-backend/internal/drycost"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(DriverSQLite, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "x"); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("want ErrUnknownDriver, got %v", err)
	}
}

func TestBindPostgres(t *testing.T) {
	s := &Store{driver: DriverPostgres}
	if got := s.bind("VALUES (?, ?, ?)"); got != "VALUES ($1, $2, $3)" {
		t.Fatalf("bind=%q", got)
	}
	s.driver = DriverSQLite
	if got := s.bind("VALUES (?)"); got != "VALUES (?)" {
		t.Fatalf("bind=%q", got)
	}
}

func TestStoreRoundTripAndPopulate(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	recs := []PartRecord{
		{
			Name: "fuelTank", Title: "FL-T100", Cost: 100,
			Resources: []drycost.Resource{{Name: "LiquidFuel", MaxAmount: 10, UnitCost: 5}},
			Modules:   []string{"ModuleFuel", "TweakScale"},
		},
		{Name: "strut", Title: "Strut", Cost: 4, Modules: []string{"ModuleStrut"}},
	}
	for _, r := range recs {
		if err := s.Insert(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Insert(ctx, recs[1]); err == nil {
		t.Fatal("duplicate insert must fail")
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "fuelTank" || len(got[0].Resources) != 1 || got[0].Modules[1] != "TweakScale" {
		t.Fatalf("loaded=%+v", got)
	}

	cat := New()
	if _, ok := cat.Entries(); ok {
		t.Fatal("catalog must not exist before populate")
	}
	if err := s.Populate(ctx, cat, drycost.DefaultScaleModule, nil); err != nil {
		t.Fatal(err)
	}
	entries, ok := cat.Entries()
	if !ok || len(entries) != 2 {
		t.Fatalf("entries=%d ok=%v", len(entries), ok)
	}

	tank, _ := cat.Part("fuelTank")
	if _, ok := tank.ScaleModule(drycost.DefaultScaleModule); !ok {
		t.Fatal("fuel tank should carry a scale module")
	}
	strut, _ := cat.Part("strut")
	if _, ok := strut.ScaleModule(drycost.DefaultScaleModule); ok {
		t.Fatal("strut has no scale module")
	}
}

type instantTicker struct{}

func (instantTicker) Tick() {}

func TestCoordinatorOverCatalog(t *testing.T) {
	cat := New()
	tank := NewPart("tank", "Tank", 100)
	cheap := NewPart("cheap", "Cheap", 10)
	pending := NewPart("pending", "Pending", 1)
	fuel := []drycost.Resource{{Name: "LiquidFuel", MaxAmount: 10, UnitCost: 5}}
	tank.SetPrototype(NewPrototype(fuel, []string{"TweakScale"}, "TweakScale"))
	cheap.SetPrototype(NewPrototype(fuel, []string{"TweakScale", "FSfuelSwitch"}, "TweakScale"))
	cat.Append(tank, cheap, pending)

	rep := drycost.New(cat, instantTicker{}, drycost.Options{WaitRounds: 2}).Run()

	if m, _ := tank.ScaleModule("TweakScale"); m.DryCost != 50 {
		t.Errorf("tank dry cost=%g", m.DryCost)
	}
	m, _ := cheap.ScaleModule("TweakScale")
	if m.DryCost != 0 || !m.IgnoreResourcesForCost {
		t.Errorf("cheap=%+v", m)
	}
	if rep.Results[2].Status != drycost.StatusSkipped {
		t.Errorf("pending part must be skipped: %+v", rep.Results[2])
	}
	if pending.Prototype() != nil {
		t.Error("typed nil leaked through Prototype")
	}
}
