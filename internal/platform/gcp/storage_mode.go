package gcp

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

type ObjectStorageMode string

const (
	ObjectStorageModeGCS         ObjectStorageMode = "gcs"
	ObjectStorageModeGCSEmulator ObjectStorageMode = "gcs_emulator"
	// ObjectStorageModeDisabled skips image upload; badges are issued without art.
	ObjectStorageModeDisabled ObjectStorageMode = "disabled"
)

type ObjectStorageConfig struct {
	Mode         ObjectStorageMode
	EmulatorHost string
}

func (cfg ObjectStorageConfig) IsEmulatorMode() bool {
	return cfg.Mode == ObjectStorageModeGCSEmulator
}

func (cfg ObjectStorageConfig) Enabled() bool {
	return cfg.Mode == ObjectStorageModeGCS || cfg.Mode == ObjectStorageModeGCSEmulator
}

type ObjectStorageConfigError struct {
	Mode         string
	EmulatorHost string
	Reason       string
}

func (e *ObjectStorageConfigError) Error() string {
	if e == nil {
		return "invalid object storage config"
	}
	return fmt.Sprintf("invalid object storage config (mode=%q emulator_host=%q): %s", e.Mode, e.EmulatorHost, e.Reason)
}

// ResolveObjectStorageConfigFromEnv reads OBJECT_STORAGE_MODE and
// STORAGE_EMULATOR_HOST. An empty mode picks the emulator when a host is set,
// otherwise real GCS.
func ResolveObjectStorageConfigFromEnv() (ObjectStorageConfig, error) {
	return ResolveObjectStorageConfig(os.Getenv("OBJECT_STORAGE_MODE"), os.Getenv("STORAGE_EMULATOR_HOST"))
}

func ResolveObjectStorageConfig(rawMode, emulatorHost string) (ObjectStorageConfig, error) {
	cfg := ObjectStorageConfig{EmulatorHost: strings.TrimSpace(emulatorHost)}
	switch mode := ObjectStorageMode(strings.ToLower(strings.TrimSpace(rawMode))); mode {
	case "":
		cfg.Mode = ObjectStorageModeGCS
		if cfg.EmulatorHost != "" {
			cfg.Mode = ObjectStorageModeGCSEmulator
		}
	case ObjectStorageModeGCS, ObjectStorageModeGCSEmulator, ObjectStorageModeDisabled:
		cfg.Mode = mode
	default:
		return cfg, &ObjectStorageConfigError{Mode: rawMode, Reason: "unknown mode"}
	}
	return cfg, ValidateObjectStorageConfig(cfg)
}

func ValidateObjectStorageConfig(cfg ObjectStorageConfig) error {
	switch cfg.Mode {
	case ObjectStorageModeGCS, ObjectStorageModeDisabled:
		return nil
	case ObjectStorageModeGCSEmulator:
	default:
		return &ObjectStorageConfigError{Mode: string(cfg.Mode), Reason: "unknown mode"}
	}
	if cfg.EmulatorHost == "" {
		return &ObjectStorageConfigError{Mode: string(cfg.Mode), Reason: "STORAGE_EMULATOR_HOST is required"}
	}
	u, err := url.Parse(cfg.EmulatorHost)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ObjectStorageConfigError{
			Mode:         string(cfg.Mode),
			EmulatorHost: cfg.EmulatorHost,
			Reason:       "expected absolute URL like http://fake-gcs:4443",
		}
	}
	return nil
}
