package merge

import (
	"strings"

	"github.com/steveyegge/docmerge/internal/types"
)

// DetectSections tags every line of a Markdown document.
//
// A leading block opened by "---" on the first line and closed by "---" or
// "..." is frontmatter. Lines between fences (``` or ~~~, at least three,
// closed by the same character with at least as many) are code, fence lines
// included. Everything else is body. An unterminated frontmatter block is
// treated as body since the document is not valid frontmatter Markdown.
func DetectSections(lines []string) []types.Section {
	out := make([]types.Section, len(lines))
	for i := range out {
		out[i] = types.SectionBody
	}

	start := 0
	if len(lines) > 0 && strings.TrimRight(lines[0], " \t") == "---" {
		for i := 1; i < len(lines); i++ {
			l := strings.TrimRight(lines[i], " \t")
			if l == "---" || l == "..." {
				for j := 0; j <= i; j++ {
					out[j] = types.SectionFrontmatter
				}
				start = i + 1
				break
			}
		}
	}

	var fenceChar byte
	fenceLen := 0
	for i := start; i < len(lines); i++ {
		ch, n := fence(lines[i])
		if fenceLen == 0 {
			if n > 0 {
				fenceChar, fenceLen = ch, n
				out[i] = types.SectionCodeBlock
			}
			continue
		}
		out[i] = types.SectionCodeBlock
		// A closing fence carries no info string.
		if n >= fenceLen && ch == fenceChar && strings.TrimSpace(lines[i]) == strings.Repeat(string(ch), n) {
			fenceLen = 0
		}
	}
	return out
}

// fence reports the fence character and run length if line opens or closes
// a fenced code block. Up to three spaces of indentation are allowed.
func fence(line string) (byte, int) {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 || len(trimmed) < 3 {
		return 0, 0
	}
	ch := trimmed[0]
	if ch != '`' && ch != '~' {
		return 0, 0
	}
	n := 0
	for n < len(trimmed) && trimmed[n] == ch {
		n++
	}
	if n < 3 {
		return 0, 0
	}
	return ch, n
}

// sectionAt picks the section for an aligned row, preferring base, then
// local, then remote.
func sectionAt(i int, row Row, base, local, remote []types.Section) types.Section {
	switch {
	case row.Base.Present && i < len(base):
		return base[i]
	case row.Local.Present && i < len(local):
		return local[i]
	case row.Remote.Present && i < len(remote):
		return remote[i]
	}
	return types.SectionBody
}
