package library

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	byLabelDir = "/dev/disk/by-label"
	mountsPath = "/proc/self/mounts"
)

// ResolveMount finds where the filesystem with the given volume label is
// mounted. Used for USB library roots so the configuration can name the
// stick instead of guessing a mount point.
func ResolveMount(label string) (string, error) {
	device, err := filepath.EvalSymlinks(filepath.Join(byLabelDir, label))
	if err != nil {
		return "", fmt.Errorf("no device labelled %q: %w", label, err)
	}

	f, err := os.Open(mountsPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	mountPoint, ok := mountPointForDevice(f, device)
	if !ok {
		return "", fmt.Errorf("device %s (label %q) is not mounted", device, label)
	}
	return mountPoint, nil
}

// mountPointForDevice scans a mounts table for the given device. Mount
// entries escape whitespace octally, so points like "/media/MY STICK" come
// through as "/media/MY\040STICK".
func mountPointForDevice(mounts io.Reader, device string) (string, bool) {
	scanner := bufio.NewScanner(mounts)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		if fields[0] == device {
			return unescapeMountPath(fields[1]), true
		}
	}
	return "", false
}

func unescapeMountPath(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			if code, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(code))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
