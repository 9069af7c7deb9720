package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"Mirror_Rank_Go/pkg/model"
)

func success(url string, speedBps float64) model.ProbeOutcome {
	return model.ProbeOutcome{
		Endpoint:         model.Endpoint{URL: url},
		Status:           model.StatusSuccess,
		StatusCode:       200,
		BytesTransferred: 1 << 20,
		ElapsedSeconds:   1.5,
		SpeedBps:         speedBps,
	}
}

func countServerLines(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	n := 0
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "Server = ") {
			n++
		}
	}
	return n
}

func TestWriteMirrorlistCapsAtTopN(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, MirrorlistFileName)

	var ranked []model.ProbeOutcome
	for i := 0; i < 15; i++ {
		ranked = append(ranked, success("https://m.example/", float64(1000-i)))
	}

	if err := WriteMirrorlist(path, ranked, 10, "$repo/os/$arch", time.Now()); err != nil {
		t.Fatalf("WriteMirrorlist: %v", err)
	}
	if got := countServerLines(t, path); got != 10 {
		t.Errorf("server lines = %d, want 10", got)
	}
}

func TestWriteMirrorlistNeverPads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, MirrorlistFileName)

	ranked := []model.ProbeOutcome{
		success("https://a.example/", 2000),
		success("https://b.example/", 1000),
	}
	if err := WriteMirrorlist(path, ranked, 10, "$repo/os/$arch", time.Now()); err != nil {
		t.Fatalf("WriteMirrorlist: %v", err)
	}
	if got := countServerLines(t, path); got != 2 {
		t.Errorf("server lines = %d, want 2", got)
	}
}

func TestWriteMirrorlistSkipsWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, MirrorlistFileName)

	if err := WriteMirrorlist(path, nil, 10, "$repo/os/$arch", time.Now()); err != nil {
		t.Fatalf("WriteMirrorlist: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("mirrorlist should not be written with zero ranked mirrors")
	}
}

func TestWriteMirrorlistServerLineFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, MirrorlistFileName)

	ranked := []model.ProbeOutcome{success("https://m.example/arch/", 1e6)}
	if err := WriteMirrorlist(path, ranked, 10, "$repo/os/$arch", time.Now()); err != nil {
		t.Fatalf("WriteMirrorlist: %v", err)
	}
	data, _ := os.ReadFile(path)
	want := "Server = https://m.example/arch/$repo/os/$arch"
	if !strings.Contains(string(data), want) {
		t.Errorf("mirrorlist missing %q:\n%s", want, data)
	}
}

func TestWriteMirrorlistIdempotent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "first")
	b := filepath.Join(dir, "second")

	ranked := []model.ProbeOutcome{
		success("https://a.example/", 2e6),
		success("https://b.example/", 1e6),
	}
	generated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if err := WriteMirrorlist(a, ranked, 10, "$repo/os/$arch", generated); err != nil {
		t.Fatal(err)
	}
	if err := WriteMirrorlist(b, ranked, 10, "$repo/os/$arch", generated); err != nil {
		t.Fatal(err)
	}

	da, _ := os.ReadFile(a)
	db, _ := os.ReadFile(b)
	if string(da) != string(db) {
		t.Errorf("same input produced different artifacts:\n%s\n---\n%s", da, db)
	}
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ReportFileName)

	ranked := []model.ProbeOutcome{
		success("https://fast.example/", 20e6 / 8),
		success("https://slow.example/", 2e6 / 8),
	}
	summary := model.RunSummary{
		Probed: 3, Succeeded: 2, Failed: 1,
		BestBps: 20e6 / 8, MeanBps: 11e6 / 8,
		Quality: "Good", ParallelHint: 5,
	}

	if err := WriteReport(path, ranked, summary, time.Now()); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	data, _ := os.ReadFile(path)
	report := string(data)
	for _, want := range []string{
		"https://fast.example/",
		"Best speed: 20.00 Mbps",
		"Mean speed: 11.00 Mbps",
		"Connection quality: Good",
		"Recommended parallel downloads: 5",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestWriteReportNoSuccesses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ReportFileName)

	summary := model.RunSummary{Probed: 4, Failed: 4}
	if err := WriteReport(path, nil, summary, time.Now()); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "Best: none") {
		t.Errorf("report should state there is no best mirror:\n%s", data)
	}
}
