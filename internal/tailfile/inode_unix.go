//go:build linux || darwin

package tailfile

import (
	"fmt"
	"os"
	"syscall"
)

// Inode extracts the filesystem inode number from a FileInfo.
func Inode(info os.FileInfo) (uint64, error) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, fmt.Errorf("failed to get raw stat_t data for %s", info.Name())
	}
	return stat.Ino, nil
}

// InodeFromPath stats path and returns its inode number.
func InodeFromPath(path string) (uint64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return Inode(info)
}
