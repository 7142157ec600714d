package narration

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/simonhull/audiometa"
)

// Availability describes whether a page's narration can be played.
type Availability struct {
	Available bool
	// Duration is zero when unknown.
	Duration time.Duration
	Remote   bool
}

// Probe checks a narration reference. Local files must exist; their
// duration is read from the audio metadata when the format is supported.
// Remote URLs are assumed available with unknown duration.
func Probe(ctx context.Context, ref string) Availability {
	if ref == "" {
		return Availability{}
	}
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && !filepath.IsAbs(ref) {
		if u.Scheme == "file" {
			ref = u.Path
		} else {
			return Availability{Available: true, Remote: true}
		}
	}

	info, err := os.Stat(ref)
	if err != nil || info.IsDir() {
		return Availability{}
	}

	avail := Availability{Available: true}
	file, err := audiometa.OpenContext(ctx, ref)
	if err != nil {
		return avail
	}
	defer file.Close()
	avail.Duration = time.Duration(file.Audio.Duration)
	return avail
}
