package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"Mirror_Rank_Go/pkg/model"
)

// MirrorlistFileName is the well-known name of the ranked artifact inside
// the output directory.
const MirrorlistFileName = "mirrorlist.ranked"

// WriteMirrorlist renders the fastest topN mirrors into a ready-to-install
// mirrorlist for the downstream package manager. Each entry carries a
// comment with the measured speed and transfer time, followed by a Server
// line built from the endpoint base URL and the repo path template.
// With fewer than topN ranked mirrors all available entries are written;
// with none at all the file is skipped entirely.
func WriteMirrorlist(path string, ranked []model.ProbeOutcome, topN int, repoPathTemplate string, generated time.Time) error {
	if len(ranked) == 0 {
		return nil
	}
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "##\n## Ranked mirrorlist generated on %s\n## Fastest mirrors first, measured by timed transfer\n##\n", generated.UTC().Format("2006-01-02 15:04:05 MST"))
	for _, o := range ranked {
		fmt.Fprintf(&buf, "\n## %.2f Mbps, %.2f s\nServer = %s\n", o.SpeedMbps(), o.ElapsedSeconds, joinURL(o.Endpoint.URL, repoPathTemplate))
	}

	return writeFileAtomic(path, buf.Bytes())
}

func joinURL(base, rel string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(rel, "/")
}
