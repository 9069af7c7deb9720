package output

import (
	"bytes"
	"fmt"
	"time"

	"Mirror_Rank_Go/pkg/model"
)

// ReportFileName is the well-known name of the summary report inside the
// output directory.
const ReportFileName = "benchmark_report.txt"

const reportTopFastest = 5

// WriteReport publishes the human-readable run summary: the fastest
// mirrors, best and mean speed, the qualitative connection classification
// and the recommended parallel download count.
func WriteReport(path string, ranked []model.ProbeOutcome, summary model.RunSummary, generated time.Time) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Mirror benchmark report\nGenerated: %s\n\n", generated.UTC().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&buf, "Probed: %d  Succeeded: %d  Failed: %d\n\n", summary.Probed, summary.Succeeded, summary.Failed)

	if summary.Succeeded == 0 {
		buf.WriteString("No mirror completed the timed transfer.\nBest: none\n")
		return writeFileAtomic(path, buf.Bytes())
	}

	buf.WriteString("Top fastest mirrors:\n")
	top := ranked
	if len(top) > reportTopFastest {
		top = top[:reportTopFastest]
	}
	for i, o := range top {
		fmt.Fprintf(&buf, "  %d. %-55s %8.2f Mbps\n", i+1, o.Endpoint.URL, o.SpeedMbps())
	}

	fmt.Fprintf(&buf, "\nBest speed: %.2f Mbps\nMean speed: %.2f Mbps\n", summary.BestMbps(), summary.MeanMbps())
	fmt.Fprintf(&buf, "Connection quality: %s\nRecommended parallel downloads: %d\n", summary.Quality, summary.ParallelHint)

	return writeFileAtomic(path, buf.Bytes())
}
