package c2pa

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Settings controls engine-wide behavior. Loaded once via LoadSettings
// and read on every operation that it gates.
type Settings struct {
	Verify VerifySettings `json:"verify"`
}

// VerifySettings controls manifest validation behavior.
type VerifySettings struct {
	// RemoteManifestFetch allows readers to follow remote manifest
	// references over HTTP. Enabled by default.
	RemoteManifestFetch bool `json:"remote_manifest_fetch"`
}

var (
	settingsMu sync.RWMutex
	settings   = defaultSettings()
)

func defaultSettings() Settings {
	return Settings{
		Verify: VerifySettings{RemoteManifestFetch: true},
	}
}

// LoadSettings replaces the engine settings from a serialized document.
// Only the "json" format is supported.
func LoadSettings(data string, format string) error {
	if strings.ToLower(format) != "json" {
		return fmt.Errorf("unsupported settings format: %s", format)
	}
	next := defaultSettings()
	if err := json.Unmarshal([]byte(data), &next); err != nil {
		return fmt.Errorf("parsing settings: %w", err)
	}
	settingsMu.Lock()
	settings = next
	settingsMu.Unlock()
	log().Debug("settings loaded", "remote_manifest_fetch", next.Verify.RemoteManifestFetch)
	return nil
}

func currentSettings() Settings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings
}
