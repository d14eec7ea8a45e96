package discovery_test

import (
	"context"
	"path/filepath"
	"testing"

	"spool/internal/discovery"
	"spool/internal/logging"
	"spool/internal/testsupport"
)

func TestListCandidatesFiltersAndFingerprints(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "b-clip.mkv"), []byte("clip contents"))
	testsupport.WriteFile(t, filepath.Join(dir, "a-clip.mp4"), []byte("other contents"))
	testsupport.WriteFile(t, filepath.Join(dir, "notes.txt"), []byte("not media"))
	testsupport.WriteFile(t, filepath.Join(dir, ".hidden.mkv"), []byte("hidden"))
	testsupport.WriteFile(t, filepath.Join(dir, "empty.mkv"), nil)
	testsupport.WriteFile(t, filepath.Join(dir, "shows", "episode.webm"), []byte("episode contents"))

	scanner := discovery.NewScanner(dir, logging.NewNop())
	candidates, err := scanner.ListCandidates(context.Background())
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}

	want := []string{"a-clip.mp4", "b-clip.mkv", "shows/episode.webm"}
	if len(candidates) != len(want) {
		t.Fatalf("expected %v, got %#v", want, candidates)
	}
	for i, name := range want {
		if candidates[i].Name != name {
			t.Fatalf("expected %v in order, got %#v", want, candidates)
		}
		if candidates[i].Fingerprint == "" || candidates[i].Size == 0 {
			t.Fatalf("candidate missing fingerprint or size: %#v", candidates[i])
		}
	}
}

func TestListCandidatesIdenticalContentSharesFingerprint(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "copy-one.mkv"), []byte("same bytes"))
	testsupport.WriteFile(t, filepath.Join(dir, "copy-two.mkv"), []byte("same bytes"))

	scanner := discovery.NewScanner(dir, logging.NewNop())
	candidates, err := scanner.ListCandidates(context.Background())
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Fingerprint != candidates[1].Fingerprint {
		t.Fatal("identical contents must share a fingerprint")
	}
}

func TestListCandidatesMissingDirectoryIsEmpty(t *testing.T) {
	scanner := discovery.NewScanner(filepath.Join(t.TempDir(), "absent"), logging.NewNop())
	candidates, err := scanner.ListCandidates(context.Background())
	if err != nil {
		t.Fatalf("missing directory must not fault: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %#v", candidates)
	}
}

func TestListCandidatesDeterministic(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "one.mkv"), []byte("one"))
	testsupport.WriteFile(t, filepath.Join(dir, "two.mkv"), []byte("two"))

	scanner := discovery.NewScanner(dir, logging.NewNop())
	first, err := scanner.ListCandidates(context.Background())
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}
	second, err := scanner.ListCandidates(context.Background())
	if err != nil {
		t.Fatalf("ListCandidates: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("scan results differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("scan not deterministic: %#v vs %#v", first[i], second[i])
		}
	}
}
