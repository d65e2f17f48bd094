package library

import (
	"log/slog"

	"localdeck/internal/config"
	"localdeck/internal/logging"
)

// ResolveRoots flattens the configured library sources into scan roots.
// USB entries are resolved by volume label when possible; entries with an
// explicit path fall back to it when the label is not mounted. Unresolvable
// entries are logged and skipped so one missing stick never blocks a scan.
func ResolveRoots(lib config.Library, logger *slog.Logger) []string {
	log := logging.NewComponentLogger(logger, "library")

	roots := make([]string, 0, len(lib.Roots)+len(lib.USB))
	roots = append(roots, lib.Roots...)
	for _, usb := range lib.USB {
		point, err := ResolveMount(usb.Label)
		if err == nil {
			roots = append(roots, point)
			continue
		}
		if usb.Path != "" {
			log.Warn("USB label not mounted, using configured path",
				logging.String("label", usb.Label),
				logging.String("path", usb.Path),
				logging.Error(err))
			roots = append(roots, usb.Path)
			continue
		}
		log.Warn("USB root unavailable",
			logging.String("label", usb.Label),
			logging.Error(err))
	}
	return roots
}
