package config

import (
	"path/filepath"

	"github.com/Laisky/syncd/library/log"

	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
)

// LoadFromFile loads settings.yml-style configuration and makes its
// directory available to relative-path settings.
func LoadFromFile(cfgPath string) {
	gconfig.Shared.Set("cfg_dir", filepath.Dir(cfgPath))
	if err := gconfig.Shared.LoadFromFile(cfgPath); err != nil {
		log.Logger.Panic("load configuration",
			zap.Error(err),
			zap.String("config", cfgPath))
	}

	log.Logger.Info("load configuration",
		zap.String("config", cfgPath))
}

// LoadTest loads the configuration at the fixed path
// /opt/configs/syncd/settings.yml, the --config default in cmd/root.go.
func LoadTest() {
	LoadFromFile("/opt/configs/syncd/settings.yml")
}
