package resolve

import (
	"fmt"

	"github.com/steveyegge/docmerge/internal/types"
)

// Apply splices resolutions into a merge result, replacing each resolved
// conflict's marker block with its resolved lines.
//
// Conflicts without a resolution, or resolved with the manual strategy, keep
// their markers and are returned as still unresolved.
func Apply(result types.MergeResult, resolutions []types.Resolution) (string, []types.Conflict, error) {
	byID := make(map[string]types.Resolution, len(resolutions))
	for _, r := range resolutions {
		byID[r.ConflictID] = r
	}

	out := make([]types.Line, 0, len(result.Merged))
	var unresolved []types.Conflict
	next := 0

	for _, c := range result.Conflicts {
		if c.MergedStart < next || c.MergedEnd < c.MergedStart || c.MergedEnd >= len(result.Merged) {
			return "", nil, fmt.Errorf("conflict %s: marker block %d-%d out of range", c.ID, c.MergedStart, c.MergedEnd)
		}
		out = append(out, result.Merged[next:c.MergedStart]...)

		r, ok := byID[c.ID]
		if !ok || r.Strategy == types.StrategyManual {
			out = append(out, result.Merged[c.MergedStart:c.MergedEnd+1]...)
			unresolved = append(unresolved, c)
		} else {
			for _, l := range r.ResolvedLines {
				out = append(out, types.Line{Content: l})
			}
		}
		next = c.MergedEnd + 1
	}
	out = append(out, result.Merged[next:]...)

	return types.JoinLines(out), unresolved, nil
}
