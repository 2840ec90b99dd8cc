package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// setTestConfigHome points configDir at a temp directory for the duration
// of the test. Overriding HOME doesn't work on Windows where
// os.UserHomeDir() reads USERPROFILE, so XDG_CONFIG_HOME is used instead.
func setTestConfigHome(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", dir)
}

func TestInitConfig(t *testing.T) {
	t.Run("CreatesWellFormedFile", func(t *testing.T) {
		setTestConfigHome(t, t.TempDir())

		p, err := InitConfig(false)
		if err != nil {
			t.Fatalf("InitConfig: %v", err)
		}

		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("generated config unreadable: %v", err)
		}

		got := string(data)
		for _, section := range []string{
			"# Goshawk Configuration File",
			"logging:",
			"registry:",
			"api:",
			"metrics:",
			"telemetry:",
			"backup:",
		} {
			if !strings.Contains(got, section) {
				t.Errorf("generated config missing %q", section)
			}
		}

		var doc map[string]interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			t.Fatalf("generated config is not valid YAML: %v", err)
		}
	})

	t.Run("RefusesToOverwrite", func(t *testing.T) {
		setTestConfigHome(t, t.TempDir())

		if _, err := InitConfig(false); err != nil {
			t.Fatalf("first InitConfig: %v", err)
		}

		if _, err := InitConfig(false); err == nil {
			t.Fatal("second InitConfig should refuse to overwrite")
		} else if !strings.Contains(err.Error(), "already exists") {
			t.Errorf("want 'already exists' in error, got: %v", err)
		}
	})

	t.Run("ForceRegenerates", func(t *testing.T) {
		setTestConfigHome(t, t.TempDir())

		p, err := InitConfig(false)
		if err != nil {
			t.Fatalf("first InitConfig: %v", err)
		}

		// Mangle the file, then force-recreate it.
		if err := os.WriteFile(p, []byte("mangled: [\n"), 0600); err != nil {
			t.Fatalf("failed to mangle config: %v", err)
		}
		if _, err := InitConfig(true); err != nil {
			t.Fatalf("forced InitConfig: %v", err)
		}

		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("recreated config unreadable: %v", err)
		}
		if !strings.Contains(string(data), "registry:") {
			t.Error("force overwrite did not regenerate the template")
		}
	})
}

func TestInitConfigToPath(t *testing.T) {
	t.Run("CreatesParentDirs", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")

		if err := InitConfigToPath(p, false); err != nil {
			t.Fatalf("InitConfigToPath: %v", err)
		}

		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("generated config unreadable: %v", err)
		}

		var doc map[string]interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			t.Fatalf("generated config is not valid YAML: %v", err)
		}
	})

	t.Run("RefusesToOverwrite", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "config.yaml")

		if err := InitConfigToPath(p, false); err != nil {
			t.Fatalf("first InitConfigToPath: %v", err)
		}

		if err := InitConfigToPath(p, false); err == nil {
			t.Fatal("second InitConfigToPath should refuse to overwrite")
		} else if !strings.Contains(err.Error(), "already exists") {
			t.Errorf("want 'already exists' in error, got: %v", err)
		}
	})

	t.Run("ForceRegenerates", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "config.yaml")

		if err := InitConfigToPath(p, false); err != nil {
			t.Fatalf("first InitConfigToPath: %v", err)
		}
		if err := InitConfigToPath(p, true); err != nil {
			t.Fatalf("forced InitConfigToPath: %v", err)
		}

		fi, err := os.Stat(p)
		if err != nil {
			t.Fatalf("failed to stat recreated config: %v", err)
		}
		if fi.Size() == 0 {
			t.Fatal("recreated config file is empty")
		}
	})
}

func TestInitProducesLoadableConfig(t *testing.T) {
	tmpDir := t.TempDir()
	setTestConfigHome(t, tmpDir)
	p := filepath.Join(tmpDir, "config.yaml")

	if err := InitConfigToPath(p, false); err != nil {
		t.Fatalf("InitConfigToPath: %v", err)
	}

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("failed to load generated config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("want INFO log level in generated config, got %q", cfg.Logging.Level)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("want port 8080 in generated config, got %d", cfg.API.Port)
	}
	if cfg.Registry.Backend != RegistryBackendSQLite {
		t.Errorf("want sqlite registry backend, got %q", cfg.Registry.Backend)
	}
	if cfg.Registry.SQLite.Path == "" {
		t.Error("want sqlite path in generated config")
	}
}
