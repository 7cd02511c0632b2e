package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xtding233/scale-backend/internal/catalog"
	"github.com/xtding233/scale-backend/internal/drycost"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	def := DefaultConfig()
	if cfg.ConfigDir != def.ConfigDir || cfg.DryCost.WaitRounds != 120 || cfg.DryCost.ScaleModule != "TweakScale" {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.DryCost.TickInterval != drycost.DefaultTickInterval {
		t.Fatalf("tick=%v", cfg.DryCost.TickInterval)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	doc := `
config_dir: /srv/GameData
mode: career
save_path: /srv/saves/persistent.yaml
save_poll_interval: 500ms
catalog:
  driver: postgres
  dsn: postgres://scale@localhost/catalog?sslmode=disable
dry_cost:
  wait_rounds: 30
  tick_interval: 10ms
  cost_exclusion: [FSfuelSwitch, B9PartSwitch]
grpc_addr: ""
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ConfigDir != "/srv/GameData" || cfg.Catalog.Driver != catalog.DriverPostgres {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.SavePollInterval != 500*time.Millisecond || cfg.DryCost.TickInterval != 10*time.Millisecond {
		t.Fatalf("durations=%v %v", cfg.SavePollInterval, cfg.DryCost.TickInterval)
	}
	if cfg.DryCost.WaitRounds != 30 || len(cfg.DryCost.CostExclusion) != 2 {
		t.Fatalf("dry_cost=%+v", cfg.DryCost)
	}
	if cfg.GRPCAddr != "" || cfg.HTTPAddr != ":8080" {
		t.Fatalf("addrs=%q %q", cfg.HTTPAddr, cfg.GRPCAddr)
	}
}

func TestValidateConfigCollectsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = "CAREER"
	cfg.Catalog.Driver = "mysql"
	cfg.DryCost.WaitRounds = -1
	cfg.GRPCAddr = cfg.HTTPAddr

	err := ValidateConfig(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{
		"config validation failed",
		"save_path is required for mode=CAREER",
		"catalog.driver",
		"dry_cost.wait_rounds",
		"must differ",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("missing %q in %q", want, msg)
		}
	}

	if err := ValidateConfig(DefaultConfig()); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	zero := DefaultConfig()
	zero.SavePollInterval = 0
	zero.DryCost.TickInterval = 0
	if err := ValidateConfig(zero); err != nil {
		t.Fatalf("zero intervals mean default: %v", err)
	}
	neg := DefaultConfig()
	neg.SavePollInterval = -time.Second
	neg.DryCost.TickInterval = -time.Millisecond
	err = ValidateConfig(neg)
	if err == nil || !strings.Contains(err.Error(), "save_poll_interval must be >= 0") ||
		!strings.Contains(err.Error(), "dry_cost.tick_interval must be >= 0") {
		t.Fatalf("negative intervals: %v", err)
	}

	bad := DefaultConfig()
	bad.Mode = "creative"
	if err := ValidateConfig(bad); err == nil || !strings.Contains(err.Error(), "mode must be one of") {
		t.Fatalf("unknown mode: %v", err)
	}
}

const scaleDB = `
SCALETYPE:
  - name: stack
    freeScale: true
    defaultScale: 1.25
    scaleFactors: [0.625, 1.25, 2.5]
    techRequired: ["", "", advRocketry]
  - name: stack_square
    type: stack
    family: square
`

const saveDoc = `
GAME:
  SCENARIO:
    - name: ResearchAndDevelopment
      Tech:
        - id: start
`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(b, out); err != nil {
		t.Fatalf("decode %s: %v (%s)", url, err, b)
	}
	return resp.StatusCode
}

func TestAppEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "GameData", "scaletypes.yaml"), scaleDB)
	writeFile(t, filepath.Join(dir, "persistent.yaml"), saveDoc)

	dsn := filepath.Join(dir, "catalog.db")
	seed, err := catalog.Open(catalog.DriverSQLite, dsn)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := seed.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	if err := seed.Insert(ctx, catalog.PartRecord{
		Name: "tank", Title: "Tank", Cost: 100,
		Resources: []drycost.Resource{{Name: "LiquidFuel", MaxAmount: 10, UnitCost: 5}},
		Modules:   []string{"TweakScale"},
	}); err != nil {
		t.Fatal(err)
	}
	seed.Close()

	cfg := DefaultConfig()
	cfg.ConfigDir = filepath.Join(dir, "GameData")
	cfg.Mode = "CAREER"
	cfg.SavePath = filepath.Join(dir, "persistent.yaml")
	cfg.SavePollInterval = 10 * time.Millisecond
	cfg.Catalog.DSN = dsn
	cfg.DryCost.TickInterval = time.Millisecond
	cfg.DryCost.WaitRounds = 50
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.GRPCAddr = "127.0.0.1:0"
	if err := ValidateConfig(cfg); err != nil {
		t.Fatal(err)
	}

	a, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer a.Shutdown(ctx)
	base := "http://" + a.HTTPAddr()

	var st map[string]any
	if code := getJSON(t, base+"/scaletypes/stack_square", &st); code != http.StatusOK {
		t.Fatalf("status=%d", code)
	}
	if st["family"] != "square" || len(st["scale_factors"].([]any)) != 2 {
		t.Fatalf("stack_square=%v", st)
	}
	if a.GRPCAddr() == "" {
		t.Fatal("grpc listener not bound")
	}

	deadline := time.Now().Add(5 * time.Second)
	var rep map[string]any
	for {
		getJSON(t, base+"/drycost", &rep)
		if rep["concluded"] == true {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("dry cost never concluded: %v", rep)
		}
		time.Sleep(5 * time.Millisecond)
	}
	results := rep["results"].([]any)
	if len(results) != 1 || results[0].(map[string]any)["dry_cost"].(float64) != 50 {
		t.Fatalf("results=%v", results)
	}

	// Unlocking the third step through the save file widens the gated view.
	writeFile(t, cfg.SavePath, saveDoc+"        - id: advRocketry\n")
	deadline = time.Now().Add(5 * time.Second)
	for !a.Gate.IsUnlocked("advRocketry") {
		if time.Now().After(deadline) {
			t.Fatal("save change not picked up")
		}
		time.Sleep(5 * time.Millisecond)
	}
	getJSON(t, base+"/scaletypes/stack", &st)
	if n := len(st["scale_factors"].([]any)); n != 3 {
		t.Fatalf("unlocked factors=%d", n)
	}

	if err := a.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestShutdownConcludesPendingDryCost(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.ConfigDir = filepath.Join(dir, "GameData")
	cfg.Catalog.DSN = filepath.Join(dir, "missing", "catalog.db")
	cfg.DryCost.TickInterval = time.Hour
	cfg.DryCost.WaitRounds = 1000
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.GRPCAddr = ""

	a, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := a.Start(ctx); err != nil {
		t.Fatal(err)
	}
	_ = a.Shutdown(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for !a.DryCost.Concluded() {
		if time.Now().After(deadline) {
			t.Fatalf("dry cost stuck in %v after shutdown", a.DryCost.State())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if rep, _ := a.DryCost.Report(); !rep.CatalogTimedOut {
		t.Fatalf("report=%+v", rep)
	}
}
