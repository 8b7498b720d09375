//go:build windows

package tailfile

import (
	"errors"
	"os"
)

// Inode is not supported on Windows: there is no stable inode to key the
// registry on.
func Inode(_ os.FileInfo) (uint64, error) {
	return 0, errors.New("inode-based tracking is not supported on windows")
}

func InodeFromPath(_ string) (uint64, error) {
	return 0, errors.New("inode-based tracking is not supported on windows")
}
