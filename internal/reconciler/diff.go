package reconciler

import "sort"

// ComputeDiff compares desired definitions with owned links. It is a pure
// function and its output is sorted by name.
//
// Foreign entries never count as present: a desired name occupied by one is
// skipped as a conflict instead of being added, updated or removed.
func ComputeDiff(desired DesiredState, actual ActualState) ReconcileDiff {
	var diff ReconcileDiff

	want := make(map[string]UnitDefinition, len(desired.Definitions))
	for _, def := range desired.Definitions {
		want[def.Name] = def
	}
	have := make(map[string]ManagedLink, len(actual.Links))
	for _, link := range actual.Links {
		have[link.Name] = link
	}
	foreign := make(map[string]bool, len(actual.Foreign))
	for _, entry := range actual.Foreign {
		foreign[entry.Name] = true
		_, conflict := want[entry.Name]
		diff.Skipped = append(diff.Skipped, SkippedEntry{ForeignEntry: entry, Conflict: conflict})
	}

	for _, def := range desired.Definitions {
		if foreign[def.Name] {
			continue
		}
		link, ok := have[def.Name]
		switch {
		case !ok:
			diff.ToAdd = append(diff.ToAdd, def)
		case link.ResolvedTarget != def.SourcePath:
			diff.ToUpdate = append(diff.ToUpdate, LinkUpdate{Definition: def, Link: link})
		}
	}

	for _, link := range actual.Links {
		if _, ok := want[link.Name]; !ok {
			diff.ToRemove = append(diff.ToRemove, link)
		}
	}

	diff.Ignored = append(diff.Ignored, desired.Ignored...)

	sort.Slice(diff.ToAdd, func(i, j int) bool { return diff.ToAdd[i].Name < diff.ToAdd[j].Name })
	sort.Slice(diff.ToUpdate, func(i, j int) bool {
		return diff.ToUpdate[i].Definition.Name < diff.ToUpdate[j].Definition.Name
	})
	sort.Slice(diff.ToRemove, func(i, j int) bool { return diff.ToRemove[i].Name < diff.ToRemove[j].Name })
	sort.Slice(diff.Skipped, func(i, j int) bool { return diff.Skipped[i].Name < diff.Skipped[j].Name })
	sort.SliceStable(diff.Ignored, func(i, j int) bool { return diff.Ignored[i].Name < diff.Ignored[j].Name })

	return diff
}
