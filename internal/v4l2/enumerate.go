package v4l2

import (
	"os"
	"path/filepath"
	"sort"
)

// DeviceInfo is one discoverable /dev/video* node, probed for logging
// only; discovery never gates capture startup.
type DeviceInfo struct {
	Path   string
	Opened bool
	Err    error
}

// Enumerate globs /dev/video* and reports which nodes can be opened
// read-write. This is informational: the capture loop always attempts
// the configured device path directly regardless of what Enumerate
// finds.
func Enumerate() []DeviceInfo {
	paths, _ := filepath.Glob("/dev/video*")
	sort.Strings(paths)

	infos := make([]DeviceInfo, 0, len(paths))
	for _, p := range paths {
		f, err := os.OpenFile(p, os.O_RDWR, 0)
		info := DeviceInfo{Path: p, Opened: err == nil, Err: err}
		if err == nil {
			f.Close()
		}
		infos = append(infos, info)
	}
	return infos
}
