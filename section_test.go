package psd

import "testing"

func namedLayer(name string, visible bool) *Layer {
	l := &Layer{Opacity: 255, BlendModeKey: BlendModeNormal}
	l.SetUnicodeName(name)
	l.SetVisible(visible)
	return l
}

func folderLayer(name string, visible bool, typ SectionType) *Layer {
	l := namedLayer(name, visible)
	l.setSection(SectionInfo{Type: typ, BlendKey: BlendModePassThrough})
	return l
}

func dividerLayer() *Layer {
	l := namedLayer(sectionDividerName, true)
	l.setSection(SectionInfo{Type: SectionDivider, BlendKey: BlendModePassThrough})
	return l
}

// --- Import Tests ---

func TestImportFolderVisibility(t *testing.T) {
	tests := []struct {
		name          string
		folderVisible bool
		wantVisible   bool
	}{
		{"visible folder keeps members", true, true},
		{"hidden folder hides members", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Bottom-to-top: divider, three members, folder on top.
			layers := []*Layer{
				dividerLayer(),
				namedLayer("c", true),
				namedLayer("b", true),
				namedLayer("a", true),
				folderLayer("G", tt.folderVisible, SectionOpenFolder),
			}
			entries := ImportSections(layers)
			if len(entries) != 5 {
				t.Fatalf("entries: got %d, want 5", len(entries))
			}
			if entries[0].Role != SectionRoleGroupStart || entries[0].DisplayName != "<G>" {
				t.Errorf("entry 0: %v %q", entries[0].Role, entries[0].DisplayName)
			}
			for i := 1; i <= 3; i++ {
				if entries[i].Role != SectionRoleLayer {
					t.Errorf("entry %d: role %v", i, entries[i].Role)
				}
				if got := entries[i].Layer.Visible(); got != tt.wantVisible {
					t.Errorf("entry %d: visible %v, want %v", i, got, tt.wantVisible)
				}
			}
			if entries[4].Role != SectionRoleGroupEnd || entries[4].DisplayName != "</G>" {
				t.Errorf("entry 4: %v %q", entries[4].Role, entries[4].DisplayName)
			}
		})
	}
}

func TestImportNestedHiddenGroup(t *testing.T) {
	// Outer visible group containing a hidden inner group and a
	// trailing sibling: only the inner group's member goes invisible.
	layers := []*Layer{
		dividerLayer(),
		namedLayer("sibling", true),
		dividerLayer(),
		namedLayer("inner member", true),
		folderLayer("Inner", false, SectionClosedFolder),
		folderLayer("Outer", true, SectionOpenFolder),
	}
	entries := ImportSections(layers)

	byName := map[string]*Layer{}
	for _, e := range entries {
		if e.Role == SectionRoleLayer {
			byName[e.DisplayName] = e.Layer
		}
	}
	if byName["inner member"].Visible() {
		t.Error("inner member should be forced invisible")
	}
	if !byName["sibling"].Visible() {
		t.Error("sibling after the hidden group closed should stay visible")
	}
}

func TestImportUnmatchedDivider(t *testing.T) {
	layers := []*Layer{dividerLayer(), namedLayer("a", true)}
	entries := ImportSections(layers)
	if entries[1].Role != SectionRoleLayer {
		t.Errorf("unmatched divider: role %v, want plain layer", entries[1].Role)
	}
}

// --- Export Tests ---

func TestExportRegeneratesBrackets(t *testing.T) {
	layers := []*Layer{
		dividerLayer(),
		namedLayer("c", true),
		namedLayer("b", false),
		namedLayer("a", true),
		folderLayer("G", false, SectionClosedFolder),
	}
	out := ExportSections(ImportSections(layers))
	if len(out) != 5 {
		t.Fatalf("layers: got %d, want 5", len(out))
	}

	// Bottom-to-top again: divider first, folder last.
	info, ok := out[0].section()
	if !ok || info.Type != SectionDivider {
		t.Errorf("bottom layer: section %v %v", info, ok)
	}
	if out[0].Opacity != 255 || out[0].BlendModeKey != BlendModePassThrough {
		t.Errorf("divider: opacity %d blend %q", out[0].Opacity, out[0].BlendModeKey)
	}
	if len(out[0].Channels) != 0 {
		t.Error("divider carries image payload")
	}

	info, ok = out[4].section()
	if !ok || info.Type != SectionClosedFolder {
		t.Errorf("top layer: section %v %v (folder was hidden)", info, ok)
	}
	if !out[4].Visible() {
		t.Error("folder marker visibility must be forced true")
	}
}

func TestExportOpenFolderForVisibleGroup(t *testing.T) {
	entries := []SectionEntry{
		{Layer: folderLayer("G", true, SectionOpenFolder), Role: SectionRoleGroupStart},
		{Layer: namedLayer("a", true), Role: SectionRoleLayer},
		{Layer: dividerLayer(), Role: SectionRoleGroupEnd},
	}
	out := ExportSections(entries)
	info, ok := out[2].section()
	if !ok || info.Type != SectionOpenFolder {
		t.Errorf("visible group: section type %v, want OpenFolder", info.Type)
	}
}

func TestExportUnmatchedGroupEnd(t *testing.T) {
	entries := []SectionEntry{
		{Layer: namedLayer("stray end", true), Role: SectionRoleGroupEnd},
		{Layer: namedLayer("a", true), Role: SectionRoleLayer},
	}
	out := ExportSections(entries)
	if len(out) != 2 {
		t.Fatalf("layers: got %d, want 2", len(out))
	}
	if _, ok := out[1].section(); ok {
		t.Error("stray group end must demote to a regular layer")
	}
}

func TestExportAutoClosesOpenGroups(t *testing.T) {
	entries := []SectionEntry{
		{Layer: folderLayer("G", true, SectionOpenFolder), Role: SectionRoleGroupStart},
		{Layer: namedLayer("a", true), Role: SectionRoleLayer},
	}
	out := ExportSections(entries)
	if len(out) != 3 {
		t.Fatalf("layers: got %d, want 3 with synthesized divider", len(out))
	}
	info, ok := out[0].section()
	if !ok || info.Type != SectionDivider {
		t.Errorf("synthesized bottom layer: section %v %v", info, ok)
	}
	if out[0].Name != sectionDividerName {
		t.Errorf("synthesized divider name: %q", out[0].Name)
	}
}
