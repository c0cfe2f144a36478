package render

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/steveyegge/docmerge/internal/textnorm"
	"github.com/steveyegge/docmerge/internal/ui"
)

// UnifiedOptions configures Unified.
type UnifiedOptions struct {
	FromLabel string
	ToLabel   string
	// Context lines around each hunk. Zero prints changed lines only;
	// negative uses DefaultContextLines.
	Context int
	Color   bool
}

// Unified renders a standard unified diff with @@ -a,b +c,d @@ hunks.
// Identical inputs produce "".
func Unified(left, right string, opts UnifiedOptions) (string, error) {
	from, to := opts.FromLabel, opts.ToLabel
	if from == "" {
		from = "left"
	}
	if to == "" {
		to = "right"
	}
	ctx := opts.Context
	if ctx < 0 {
		ctx = DefaultContextLines
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(textnorm.NormalizeEOL(left)),
		B:        difflib.SplitLines(textnorm.NormalizeEOL(right)),
		FromFile: from,
		ToFile:   to,
		Context:  ctx,
	}
	if left == "" {
		diff.A = nil
	}
	if right == "" {
		diff.B = nil
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("unified diff: %w", err)
	}
	if !opts.Color || text == "" {
		return text, nil
	}
	return colorUnified(text), nil
}

func colorUnified(text string) string {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, l := range lines {
		switch {
		case strings.HasPrefix(l, "+++"), strings.HasPrefix(l, "---"):
			lines[i] = ui.RenderHeader(l)
		case strings.HasPrefix(l, "@@"):
			lines[i] = ui.RenderAccent(l)
		case strings.HasPrefix(l, "+"):
			lines[i] = ui.RenderAdded(l)
		case strings.HasPrefix(l, "-"):
			lines[i] = ui.RenderRemoved(l)
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
