package wayback

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// maxCaptureProbes bounds how many releases SelectByCapture queries before
// falling back. Each probe is a remote metadata request.
const maxCaptureProbes = 12

// IsSummer reports whether the date falls in June through September.
func IsSummer(t time.Time) bool {
	m := t.Month()
	return m >= time.June && m <= time.September
}

// Newest returns the most recent release. Releases are expected sorted
// newest first, as Client.Releases returns them.
func Newest(releases []Release) (Release, bool) {
	if len(releases) == 0 {
		return Release{}, false
	}
	return releases[0], true
}

// NewestSummer returns the most recent release whose release date falls in
// June through September, falling back to the newest release overall.
func NewestSummer(releases []Release) (Release, bool) {
	for _, rel := range releases {
		if IsSummer(rel.Date) {
			return rel, true
		}
	}
	return Newest(releases)
}

// SelectByCapture walks releases newest first and returns the first whose
// local capture date at the coordinate falls in summer, along with that
// capture date. Releases without queryable metadata are skipped. When no
// probed release qualifies, it falls back to the newest release with its
// release date as the capture date.
func SelectByCapture(ctx context.Context, c Client, releases []Release, lat, lng float64) (Release, time.Time, error) {
	probes := 0
	for _, rel := range releases {
		if probes >= maxCaptureProbes {
			break
		}
		if rel.MetadataURL == "" {
			continue
		}
		probes++

		captured, err := c.CaptureDate(ctx, rel, lat, lng)
		if err != nil {
			if ctx.Err() != nil {
				return Release{}, time.Time{}, eris.Wrap(ctx.Err(), "wayback: select by capture")
			}
			zap.L().Debug("wayback: capture date probe failed",
				zap.String("release", rel.ID),
				zap.Error(err))
			continue
		}
		if IsSummer(captured) {
			return rel, captured, nil
		}
	}

	rel, ok := Newest(releases)
	if !ok {
		return Release{}, time.Time{}, eris.New("wayback: no releases to select from")
	}
	return rel, rel.Date, nil
}
