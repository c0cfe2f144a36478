package docmerge_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/steveyegge/docmerge"
)

func TestMergeResolveRecord(t *testing.T) {
	base, local, remote := "a\nb\nc", "a\nX\nc", "a\nY\nc"

	res, err := docmerge.ThreeWayMerge(&base, &local, &remote, docmerge.WithLabel("notes.md"))
	if err != nil {
		t.Fatalf("ThreeWayMerge failed: %v", err)
	}
	if !res.HasConflicts || len(res.Conflicts) != 1 {
		t.Fatalf("expected one conflict, got %+v", res.Conflicts)
	}

	r, err := docmerge.ResolveConflict(res.Conflicts[0], docmerge.StrategyRemote, nil)
	if err != nil {
		t.Fatalf("ResolveConflict failed: %v", err)
	}
	text, unresolved, err := docmerge.Apply(res, []docmerge.Resolution{r})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if text != "a\nY\nc" || len(unresolved) != 0 {
		t.Errorf("Apply = %q (%d unresolved), want remote side", text, len(unresolved))
	}

	ctx := context.Background()
	h, err := docmerge.OpenHistory(ctx, filepath.Join(t.TempDir(), "history.json"))
	if err != nil {
		t.Fatalf("OpenHistory failed: %v", err)
	}
	logID, err := h.Log(ctx, res.Conflicts[0], r, "notes.md")
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if got := h.GetHistory(docmerge.HistoryFilter{FilePath: "notes.md"}); len(got) != 1 || got[0].LogID != logID {
		t.Errorf("GetHistory = %+v, want the logged entry", got)
	}
}

func TestAbsentInput(t *testing.T) {
	s := "x"
	_, err := docmerge.ThreeWayMerge(nil, &s, &s)
	if !errors.Is(err, docmerge.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRendering(t *testing.T) {
	st := docmerge.GetStats("a\nb", "a\nc\nd")
	if st.Modifications != 1 || st.Additions != 1 || st.Deletions != 0 {
		t.Errorf("GetStats = %+v", st)
	}
	if got := docmerge.SideBySide("a", "b", 1); got != "a | b" {
		t.Errorf("SideBySide = %q", got)
	}
	if got := docmerge.HighlightConflicts("a", nil); got != "a" {
		t.Errorf("HighlightConflicts without conflicts = %q", got)
	}
	if h := docmerge.NewMemoryHistory(); h.Count() != 0 {
		t.Errorf("new history has %d entries", h.Count())
	}
}
