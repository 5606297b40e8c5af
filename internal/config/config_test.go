package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nmlab/attractor/internal/attractor"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Listen != DefaultListen {
		t.Errorf("expected listen %s, got %s", DefaultListen, cfg.Listen)
	}
	if cfg.Attractor.Stiffness != attractor.DefaultStiffness {
		t.Errorf("expected stiffness %f, got %f", attractor.DefaultStiffness, cfg.Attractor.Stiffness)
	}
	if _, err := attractor.NewConfiguration(cfg.Attractor); err != nil {
		t.Errorf("default attractor params must validate: %v", err)
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attractor.yaml")

	cfg := DefaultConfig()
	cfg.Listen = ":9000"
	cfg.Attractor.Stiffness = 1500
	cfg.Attractor.Offset = []float64{0, 0, 0.1}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Listen != ":9000" {
		t.Errorf("expected listen :9000, got %s", loaded.Listen)
	}
	if loaded.Attractor.Stiffness != 1500 {
		t.Errorf("expected stiffness 1500, got %f", loaded.Attractor.Stiffness)
	}
	if loaded.Attractor.Offset[2] != 0.1 {
		t.Errorf("expected offset z 0.1, got %f", loaded.Attractor.Offset[2])
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	tests := []struct {
		name      string
		basisSum  float64
		wantFound bool
	}{
		{"free", 3, true},
		{"plane-xy", 2, true},
		{"line-x", 1, true},
		{"point", 0, true},
		{"nonexistent", 0, false},
	}

	for _, tt := range tests {
		p, ok := GetPreset(tt.name)
		if ok != tt.wantFound {
			t.Errorf("preset %s: found=%v, want %v", tt.name, ok, tt.wantFound)
			continue
		}
		if !ok {
			continue
		}
		sum := 0.0
		for _, v := range p.Basis {
			sum += v
		}
		if sum != tt.basisSum {
			t.Errorf("preset %s: basis trace sum %f, want %f", tt.name, sum, tt.basisSum)
		}
		if _, err := attractor.NewConfiguration(p); err != nil {
			t.Errorf("preset %s must validate: %v", tt.name, err)
		}
	}
}

func TestListPresets(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Errorf("expected %d presets, got %d", len(Presets), len(names))
	}
}
