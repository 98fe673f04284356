package debug

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestLogWritesCategories(t *testing.T) {
	t.Setenv(EnvCategories, "")
	path := filepath.Join(t.TempDir(), "logs", "debug.log")
	if err := Enable(path); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	defer Disable()

	Log("clock", "start bpm=%d", 120)
	Dump("engine", "result", struct{ Attacks []string }{[]string{"C4"}})
	for range 4 {
		LogEvery(2, "tick", "pos=%s", "0:0:0")
	}
	Disable()

	out := readLog(t, path)
	for _, want := range []string{"go-tiles trace", "clock", "start bpm=120", "Attacks", "pos=0:0:0 [4 calls]"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "[1 calls]") || strings.Contains(out, "[3 calls]") {
		t.Errorf("LogEvery wrote off-period lines:\n%s", out)
	}
}

func TestLogFiltersCategories(t *testing.T) {
	t.Setenv(EnvCategories, "midi, Voice")
	path := filepath.Join(t.TempDir(), "debug.log")
	if err := Enable(path); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	defer Disable()

	if !Enabled("voice") || Enabled("clock") {
		t.Error("Expected only midi and voice enabled")
	}
	Log("clock", "dropped")
	Log("midi", "kept")
	Disable()

	out := readLog(t, path)
	if strings.Contains(out, "dropped") || !strings.Contains(out, "kept") {
		t.Errorf("Filter not applied:\n%s", out)
	}
}

func TestParseCategories(t *testing.T) {
	if ParseCategories("") != nil || ParseCategories("clock,all") != nil {
		t.Error("Expected empty and all filters to log everything")
	}
	got := ParseCategories(" tick ,,SHARE")
	if len(got) != 2 || !got["tick"] || !got["share"] {
		t.Errorf("Expected tick and share, got %v", got)
	}
}

func TestLogDisabledIsSilent(t *testing.T) {
	Disable()
	if Enabled("clock") {
		t.Fatal("Expected logging disabled")
	}
	// must not panic with no file
	Log("clock", "ignored")
	Dump("clock", "ignored", 1)
	LogEvery(1, "clock", "ignored")
}
