package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultMatchesEngineDefaults(t *testing.T) {
	cfg := Default()
	bt, br, warnings := cfg.Split()
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings from engine defaults, got %v", warnings)
	}
	if bt.InitialCapital != 100_000 {
		t.Fatalf("expected default initial capital 100000, got %v", bt.InitialCapital)
	}
	if br.MakerFee != 0.001 {
		t.Fatalf("expected default maker fee 0.001, got %v", br.MakerFee)
	}
}

func TestSplitClampsNegativeFees(t *testing.T) {
	cfg := Default()
	cfg.MakerFee = -0.01
	cfg.SlippagePct = -0.5
	_, br, warnings := cfg.Split()
	if br.MakerFee != 0 || br.SlippagePct != 0 {
		t.Fatalf("expected negative fee/slippage clamped to 0, got maker=%v slippage=%v", br.MakerFee, br.SlippagePct)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings for 2 clamped fields, got %d", len(warnings))
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "initial_capital: 50000\ntimeframe: \"1h\"\nmaker_fee: 0.002\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.InitialCapital != 50000 {
		t.Fatalf("expected initial_capital overridden to 50000, got %v", cfg.InitialCapital)
	}
	if cfg.MakerFee != 0.002 {
		t.Fatalf("expected maker_fee overridden to 0.002, got %v", cfg.MakerFee)
	}
}
