package newick

import (
	"sort"
	"strconv"
	"strings"
)

// FormatBranch renders a branch length with the shortest decimal
// representation that parses back to the same value, always carrying a
// decimal point or exponent so lengths stay visually distinct from labels:
// 1 renders as "1.0", 0.5 as "0.5", 1e21 as "1e+21".
func FormatBranch(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}

	return s
}

// JoinSubtrees composes an internal node from its children's rendered text.
//
// Children are sorted lexicographically by their full rendered string before
// joining, which makes the output canonical: two trees differing only in
// sibling order render identically. The sort key intentionally includes each
// child's entire subtree, not just its label.
func JoinSubtrees(rendered []string) string {
	sort.Strings(rendered)

	var sb strings.Builder
	size := 2 + len(rendered) - 1
	for _, r := range rendered {
		size += len(r)
	}
	sb.Grow(size)

	sb.WriteByte('(')
	for i, r := range rendered {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(r)
	}
	sb.WriteByte(')')

	return sb.String()
}
