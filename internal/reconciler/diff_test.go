package reconciler

import (
	"reflect"
	"testing"
)

func mkDef(name, root string, priority int) UnitDefinition {
	return UnitDefinition{Name: name, SourcePath: root + "/" + name, SourceRoot: root, Priority: priority}
}

func mkLink(name, target string) ManagedLink {
	return ManagedLink{Name: name, LinkPath: "/etc/containers/systemd/" + name, ResolvedTarget: target}
}

func TestComputeDiff(t *testing.T) {
	tests := []struct {
		name         string
		desired      DesiredState
		actual       ActualState
		wantAdd      []string
		wantUpdate   []string
		wantRemove   []string
		wantSkipped  []string
		wantConflict []string
	}{
		{
			name: "empty",
		},
		{
			name:    "all missing",
			desired: DesiredState{Definitions: []UnitDefinition{mkDef("b.container", "/src", 0), mkDef("a.container", "/src", 0)}},
			wantAdd: []string{"a.container", "b.container"},
		},
		{
			name:    "in sync",
			desired: DesiredState{Definitions: []UnitDefinition{mkDef("a.container", "/src", 0)}},
			actual:  ActualState{Links: []ManagedLink{mkLink("a.container", "/src/a.container")}},
		},
		{
			name:       "wrong target",
			desired:    DesiredState{Definitions: []UnitDefinition{mkDef("a.container", "/high", 0)}},
			actual:     ActualState{Links: []ManagedLink{mkLink("a.container", "/low/a.container")}},
			wantUpdate: []string{"a.container"},
		},
		{
			name:       "orphaned link",
			desired:    DesiredState{Definitions: []UnitDefinition{mkDef("a.container", "/src", 0)}},
			actual:     ActualState{Links: []ManagedLink{mkLink("a.container", "/src/a.container"), mkLink("z.container", "/src/z.container")}},
			wantRemove: []string{"z.container"},
		},
		{
			name:    "foreign entry blocks desired name",
			desired: DesiredState{Definitions: []UnitDefinition{mkDef("a.container", "/src", 0)}},
			actual: ActualState{Foreign: []ForeignEntry{
				{Name: "a.container", Path: "/etc/containers/systemd/a.container", Reason: ReasonNotSymlink},
			}},
			wantSkipped:  []string{"a.container"},
			wantConflict: []string{"a.container"},
		},
		{
			name: "foreign entry not desired",
			actual: ActualState{Foreign: []ForeignEntry{
				{Name: "x.container", Path: "/etc/containers/systemd/x.container", Reason: ReasonOutsideRoots},
			}},
			wantSkipped: []string{"x.container"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := ComputeDiff(tt.desired, tt.actual)

			if got := names(diff.ToAdd); !equalNames(got, tt.wantAdd) {
				t.Errorf("ToAdd = %v, want %v", got, tt.wantAdd)
			}
			var updates []string
			for _, u := range diff.ToUpdate {
				updates = append(updates, u.Definition.Name)
			}
			if !equalNames(updates, tt.wantUpdate) {
				t.Errorf("ToUpdate = %v, want %v", updates, tt.wantUpdate)
			}
			if got := linkNames(diff.ToRemove); !equalNames(got, tt.wantRemove) {
				t.Errorf("ToRemove = %v, want %v", got, tt.wantRemove)
			}
			var skipped, conflicts []string
			for _, s := range diff.Skipped {
				skipped = append(skipped, s.Name)
				if s.Conflict {
					conflicts = append(conflicts, s.Name)
				}
			}
			if !equalNames(skipped, tt.wantSkipped) {
				t.Errorf("Skipped = %v, want %v", skipped, tt.wantSkipped)
			}
			if !equalNames(conflicts, tt.wantConflict) {
				t.Errorf("conflicts = %v, want %v", conflicts, tt.wantConflict)
			}

			wantEmpty := len(tt.wantAdd)+len(tt.wantUpdate)+len(tt.wantRemove) == 0
			if diff.IsEmpty() != wantEmpty {
				t.Errorf("IsEmpty() = %v, want %v", diff.IsEmpty(), wantEmpty)
			}
		})
	}
}

func TestComputeDiff_CarriesIgnored(t *testing.T) {
	desired := DesiredState{
		Definitions: []UnitDefinition{mkDef("a.container", "/high", 0)},
		Ignored:     []UnitDefinition{mkDef("a.container", "/low", 1)},
	}
	diff := ComputeDiff(desired, ActualState{Links: []ManagedLink{mkLink("a.container", "/high/a.container")}})

	if !diff.IsEmpty() {
		t.Errorf("expected empty diff, got %+v", diff)
	}
	if len(diff.Ignored) != 1 || diff.Ignored[0].SourceRoot != "/low" {
		t.Errorf("expected the low-priority duplicate to be ignored, got %+v", diff.Ignored)
	}
}

func TestComputeDiff_Pure(t *testing.T) {
	desired := DesiredState{Definitions: []UnitDefinition{mkDef("b.container", "/src", 0), mkDef("a.container", "/src", 0)}}
	actual := ActualState{Links: []ManagedLink{mkLink("c.container", "/src/c.container")}}
	desiredCopy := DesiredState{Definitions: append([]UnitDefinition(nil), desired.Definitions...)}

	first := ComputeDiff(desired, actual)
	second := ComputeDiff(desired, actual)

	if !reflect.DeepEqual(first, second) {
		t.Error("ComputeDiff is not deterministic")
	}
	if !reflect.DeepEqual(desired, desiredCopy) {
		t.Error("ComputeDiff modified its input")
	}
}

func TestServiceNameFor(t *testing.T) {
	tests := []struct {
		definition, extension, suffix, want string
	}{
		{"web.container", ".container", ".service", "web.service"},
		{"my.app.container", ".container", ".service", "my.app.service"},
		{"web.kube", ".kube", ".service", "web.service"},
		{"web", ".container", ".service", "web.service"},
	}
	for _, tt := range tests {
		if got := ServiceNameFor(tt.definition, tt.extension, tt.suffix); got != tt.want {
			t.Errorf("ServiceNameFor(%q) = %q, want %q", tt.definition, got, tt.want)
		}
	}
}

func equalNames(got, want []string) bool {
	if len(got) == 0 && len(want) == 0 {
		return true
	}
	return reflect.DeepEqual(got, want)
}
