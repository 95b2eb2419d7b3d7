package builder

import "strings"

// MakeQuery renders tree as the body of a selection set, leaving out every
// field whose path is listed in ignore. Matching is by exact path; excluding a
// whole branch means listing the branch's own path. Object fields whose
// remaining subtree is empty are omitted.
func MakeQuery(tree *FieldTree, ignore []string) string {
	skip := make(map[string]struct{}, len(ignore))
	for _, p := range ignore {
		skip[p] = struct{}{}
	}
	var b strings.Builder
	writeSelection(&b, tree, skip)
	return b.String()
}

func writeSelection(b *strings.Builder, tree *FieldTree, skip map[string]struct{}) bool {
	if tree == nil {
		return false
	}
	wrote := false
	sep := func() {
		if wrote {
			b.WriteByte(' ')
		}
		wrote = true
	}
	for _, f := range tree.Scalar {
		if _, ok := skip[f.Path]; ok {
			continue
		}
		sep()
		b.WriteString(f.Name)
	}
	for _, f := range tree.Object {
		if _, ok := skip[f.Path]; ok || f.Fields.Empty() {
			continue
		}
		var sub strings.Builder
		if !writeSelection(&sub, f.Fields, skip) {
			continue
		}
		sep()
		b.WriteString(f.Name)
		b.WriteString(" { ")
		b.WriteString(sub.String())
		b.WriteString(" }")
	}
	return wrote
}
