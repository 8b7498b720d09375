package reader

import (
	"errors"

	"github.com/renjunqu/taildir/internal/event"
)

// Config holds the construction-time options of a Reader.
type Config struct {
	// FileGroups maps a group name to a glob pattern. Required.
	FileGroups map[string]string `mapstructure:"file-groups"`
	// Headers maps a group name to static headers applied to every event
	// produced from that group's files.
	Headers map[string]map[string]string `mapstructure:"headers"`
	// PositionFilePath is where per-file offsets are checkpointed. Required.
	PositionFilePath string `mapstructure:"position-file"`
	// SkipToEnd starts newly discovered files at their end instead of byte 0.
	SkipToEnd bool `mapstructure:"skip-to-end"`
	// AddByteOffset attaches each event's line-start offset as a header.
	AddByteOffset bool `mapstructure:"add-byte-offset"`
	// CachePatternMatching reuses match results until a directory changes.
	CachePatternMatching bool `mapstructure:"cache-pattern-matching"`
	// AnnotateFileName attaches the source path and basename as headers.
	AnnotateFileName bool `mapstructure:"annotate-file-name"`
	// FileNameHeaderKey is the header key for the source path.
	FileNameHeaderKey string `mapstructure:"file-name-header-key"`
}

// Default fills in the defaults for optional fields.
func (c *Config) Default() {
	c.CachePatternMatching = true
	c.AnnotateFileName = true
	c.FileNameHeaderKey = event.DefaultFileNameHeaderKey
}

// Validate checks the required fields.
func (c *Config) Validate() error {
	if len(c.FileGroups) == 0 {
		return errors.New("reader.file-groups must not be empty")
	}
	for group, pattern := range c.FileGroups {
		if pattern == "" {
			return errors.New("reader.file-groups pattern must not be empty for group " + group)
		}
	}
	if c.PositionFilePath == "" {
		return errors.New("reader.position-file must be set")
	}
	return nil
}
