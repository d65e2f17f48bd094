package library

import (
	"context"
)

// Report compares what is on disk against what the registry knows, in the
// spirit of a VCS status listing.
type Report struct {
	// New are files on disk with no registry record yet.
	New []ScannedFile
	// Known are files on disk the registry already tracks.
	Known []ScannedFile
	// Lost are registered cards whose content is no longer in the store.
	Lost []string
}

// Status scans the roots and classifies every file against the registry.
func (m *Manager) Status(ctx context.Context) (Report, error) {
	files, err := m.Scan(ctx)
	if err != nil {
		return Report{}, err
	}

	var report Report
	for _, file := range files {
		track, err := m.registry.Lookup(ctx, file.CardID)
		if err != nil {
			return Report{}, err
		}
		if track == nil {
			report.New = append(report.New, file)
		} else {
			report.Known = append(report.Known, file)
		}
	}

	tracks, err := m.registry.List(ctx)
	if err != nil {
		return Report{}, err
	}
	for _, track := range tracks {
		if track.HasContent() && !m.store.Exists(track.ContentRef) {
			report.Lost = append(report.Lost, track.CardID)
		}
	}
	return report, nil
}
