package tester

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()

	if c.MaxPages != 100 {
		t.Errorf("MaxPages = %d, want 100", c.MaxPages)
	}
	if c.MaxDepth != 5 {
		t.Errorf("MaxDepth = %d, want 5", c.MaxDepth)
	}
	if c.Strategy != "dfs" {
		t.Errorf("Strategy = %q, want dfs", c.Strategy)
	}
	if c.CrawlDelay != time.Second {
		t.Errorf("CrawlDelay = %v, want 1s", c.CrawlDelay)
	}
	if !c.IncludeQueryParams || c.IncludeHash {
		t.Errorf("query/hash defaults = %v/%v, want true/false", c.IncludeQueryParams, c.IncludeHash)
	}
	if len(c.ErrorStatusCodes) == 0 || c.ErrorStatusCodes[0] != 400 {
		t.Errorf("ErrorStatusCodes = %v", c.ErrorStatusCodes)
	}
	if c.OutputDir != "test_results" {
		t.Errorf("OutputDir = %q", c.OutputDir)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing target", func(c *Config) { c.Target = "" }, true},
		{"zero pages", func(c *Config) { c.MaxPages = 0 }, true},
		{"zero depth", func(c *Config) { c.MaxDepth = 0 }, true},
		{"bad strategy", func(c *Config) { c.Strategy = "random" }, true},
		{"bad auth mode", func(c *Config) { c.Auth.Mode = "oauth" }, true},
		{"unknown module", func(c *Config) { c.Module = "Ghost" }, true},
		{"duplicate module", func(c *Config) {
			c.Modules = append(c.Modules, ModuleConfig{Name: "Shop"}, ModuleConfig{Name: "Shop"})
		}, true},
		{"known module", func(c *Config) {
			c.Modules = []ModuleConfig{{Name: "Shop", Seeds: []string{"/shop"}}}
			c.Module = "Shop"
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			c.Target = "https://app.example.com"
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigFileRoundTrip(t *testing.T) {
	c := DefaultConfig()
	c.Target = "https://app.example.com"
	c.MaxPages = 25
	c.Modules = []ModuleConfig{{Name: "Shop", Seeds: []string{"/shop", "/cart"}}}
	c.RouteSeeds.Enabled = true
	c.RouteSeeds.Routes = []string{"/admin", "/users/:id"}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := c.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.Target != c.Target || loaded.MaxPages != 25 {
		t.Errorf("loaded = %q/%d", loaded.Target, loaded.MaxPages)
	}
	if len(loaded.Modules) != 1 || loaded.Modules[0].Name != "Shop" {
		t.Errorf("modules = %+v", loaded.Modules)
	}
	if !loaded.RouteSeeds.Enabled || len(loaded.RouteSeeds.Routes) != 2 {
		t.Errorf("route seeds = %+v", loaded.RouteSeeds)
	}
}

func TestLoadFromFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("target: https://app.example.com\nmax_pages: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if c.MaxPages != 7 {
		t.Errorf("MaxPages = %d, want 7", c.MaxPages)
	}
	if c.MaxDepth != 5 {
		t.Errorf("MaxDepth = %d, defaults must survive partial config", c.MaxDepth)
	}
}

func TestConfigClone(t *testing.T) {
	c := DefaultConfig()
	c.Target = "https://app.example.com"
	c.Modules = []ModuleConfig{{Name: "Shop", Seeds: []string{"/shop"}}}

	clone := c.Clone()
	clone.Modules[0].Name = "Changed"
	if c.Modules[0].Name != "Shop" {
		t.Error("Clone() must deep-copy modules")
	}
}
