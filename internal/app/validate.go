package app

import (
	"fmt"
	"strings"

	"github.com/xtding233/scale-backend/internal/catalog"
	"github.com/xtding233/scale-backend/internal/tech"
)

// ValidateConfig checks semantic constraints of a Config.
func ValidateConfig(cfg Config) error {
	var errs []string

	if strings.TrimSpace(cfg.ConfigDir) == "" {
		errs = append(errs, "config_dir is required")
	}

	// mode
	mode := tech.Mode(strings.ToUpper(strings.TrimSpace(cfg.Mode)))
	switch mode {
	case tech.ModeNone, tech.ModeSandbox, tech.ModeCareer, tech.ModeScienceSandbox:
	default:
		errs = append(errs, "mode must be one of: SANDBOX, CAREER, SCIENCE_SANDBOX or empty")
	}
	if mode.Gated() && cfg.SavePath == "" {
		errs = append(errs, fmt.Sprintf("save_path is required for mode=%s", mode))
	}
	if cfg.SavePollInterval < 0 {
		errs = append(errs, "save_poll_interval must be >= 0 (0 means default)")
	}

	// catalog
	switch cfg.Catalog.Driver {
	case catalog.DriverSQLite, catalog.DriverPostgres:
	default:
		errs = append(errs, "catalog.driver must be one of: sqlite3, postgres")
	}
	if cfg.Catalog.DSN == "" {
		errs = append(errs, "catalog.dsn is required")
	}

	// dry_cost
	if cfg.DryCost.WaitRounds < 1 {
		errs = append(errs, "dry_cost.wait_rounds must be >= 1")
	}
	if cfg.DryCost.TickInterval < 0 {
		errs = append(errs, "dry_cost.tick_interval must be >= 0 (0 means default)")
	}
	for i, m := range cfg.DryCost.CostExclusion {
		if strings.TrimSpace(m) == "" {
			errs = append(errs, fmt.Sprintf("dry_cost.cost_exclusion[%d] must not be empty", i))
		}
	}

	// listeners
	if cfg.HTTPAddr == "" && cfg.GRPCAddr == "" {
		errs = append(errs, "at least one of http_addr, grpc_addr is required")
	}
	if cfg.HTTPAddr != "" && cfg.HTTPAddr == cfg.GRPCAddr && !strings.HasSuffix(cfg.HTTPAddr, ":0") {
		errs = append(errs, "http_addr and grpc_addr must differ")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
