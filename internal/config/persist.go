package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// FilePersister writes individual settings back to the config file.
// Used for the pipeline's ranker self-configuration.
type FilePersister struct{}

// PersistRankerPath records an adopted ranker executable path in the
// config file, creating the file from defaults if it does not exist.
func (FilePersister) PersistRankerPath(path string) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	v := viper.New()
	applyDefaults(v)
	v.SetConfigName(ConfigFileName)
	v.SetConfigType(ConfigFileExt)
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		// Missing file is fine; we are about to create it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	v.Set("search.ranker_path", path)
	target := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := v.WriteConfigAs(target); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
