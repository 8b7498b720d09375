package file

import "fmt"

// Config holds the output path and rotation policy of the file sink.
type Config struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max-size-mb"`
	MaxBackups int    `mapstructure:"max-backups"`
	MaxAgeDays int    `mapstructure:"max-age-days"`
	Compress   bool   `mapstructure:"compress"`
}

func (c Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("sink.file.path must be set when sink.type is 'file'")
	}
	return nil
}
