package psd

// SectionRole is a layer's role in the bracketed group structure.
type SectionRole int

const (
	SectionRoleLayer SectionRole = iota
	SectionRoleGroupStart
	SectionRoleGroupEnd
)

// SectionEntry is one element of the annotated top-to-bottom layer
// structure produced by ImportSections and consumed by ExportSections.
// Group boundaries get wrapped display names: "<name>" for a begin
// marker, "</name>" for an end marker.
type SectionEntry struct {
	Layer       *Layer
	Role        SectionRole
	DisplayName string
}

// sectionDividerName is the conventional name Photoshop writes on the
// hidden divider layer that closes a group.
const sectionDividerName = "</Layer group>"

// ImportSections converts the stored bottom-to-top layer list into an
// explicit begin/end bracketed structure, processed top to bottom.
// Visibility of a hidden group propagates to every descendant: members
// of the outermost hidden group are forced invisible regardless of
// their own stored flag. A divider with no open group is kept as a
// plain layer.
func ImportSections(layers []*Layer) []SectionEntry {
	entries := make([]SectionEntry, 0, len(layers))
	var stack []string
	hiddenDepth := -1

	for i := len(layers) - 1; i >= 0; i-- {
		l := layers[i]
		if hiddenDepth >= 0 && len(stack) > hiddenDepth {
			l.SetVisible(false)
		}

		entry := SectionEntry{Layer: l, Role: SectionRoleLayer, DisplayName: l.UnicodeName()}
		if info, ok := l.section(); ok {
			switch info.Type {
			case SectionOpenFolder, SectionClosedFolder:
				if !l.Visible() && hiddenDepth < 0 {
					hiddenDepth = len(stack)
				}
				stack = append(stack, entry.DisplayName)
				entry.Role = SectionRoleGroupStart
				entry.DisplayName = "<" + entry.DisplayName + ">"
			case SectionDivider:
				if len(stack) > 0 {
					name := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					entry.Role = SectionRoleGroupEnd
					entry.DisplayName = "</" + name + ">"
					if len(stack) == hiddenDepth {
						hiddenDepth = -1
					}
				}
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// ExportSections converts an annotated top-to-bottom structure back to
// the stored bottom-to-top layer list with section markers attached.
// A group-end with no matching start is demoted to a regular layer;
// groups still open at the end of the list are auto-closed with
// synthesized dividers so the file stays structurally valid.
func ExportSections(entries []SectionEntry) []*Layer {
	layers := make([]*Layer, 0, len(entries))
	open := 0

	for _, e := range entries {
		l := e.Layer
		switch e.Role {
		case SectionRoleGroupStart:
			typ := SectionClosedFolder
			if l.Visible() {
				typ = SectionOpenFolder
			}
			l.setSection(SectionInfo{Type: typ, BlendKey: blendKeyOrDefault(l)})
			// The folder marker's own visibility is not meaningful;
			// member visibility carries the group's state.
			l.SetVisible(true)
			open++
		case SectionRoleGroupEnd:
			if open == 0 {
				l.clearSection()
				break
			}
			open--
			makeDivider(l)
		default:
			l.clearSection()
		}
		layers = append(layers, l)
	}
	for k := 0; k < open; k++ {
		l := &Layer{}
		l.SetUnicodeName(sectionDividerName)
		makeDivider(l)
		layers = append(layers, l)
	}

	// Back to bottom-to-top file order.
	for i, j := 0, len(layers)-1; i < j; i, j = i+1, j-1 {
		layers[i], layers[j] = layers[j], layers[i]
	}
	return layers
}

func blendKeyOrDefault(l *Layer) string {
	if l.BlendModeKey == "" {
		return BlendModePassThrough
	}
	return l.BlendModeKey
}

// makeDivider turns a layer into a group-closing divider: fully
// opaque, pass-through blend, no image payload.
func makeDivider(l *Layer) {
	l.setSection(SectionInfo{Type: SectionDivider, BlendKey: BlendModePassThrough})
	l.Opacity = 255
	l.BlendModeKey = BlendModePassThrough
	l.Rect = Rect{}
	l.Channels = nil
	l.Mask = nil
	if l.Name == "" {
		l.SetUnicodeName(sectionDividerName)
	}
}
