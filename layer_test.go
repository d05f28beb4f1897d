package psd

import (
	"bytes"
	"testing"
)

// --- Additional Info Tests ---

func TestAdditionalInfoRoundTrip(t *testing.T) {
	infos := []*AdditionalInfo{
		newUnicodeNameInfo("Background", false),
		{Signature: infoSignature, Key: "lyid", Data: []byte{0, 0, 0, 7}},
		{Signature: infoSignature, Key: "zZzZ", Data: []byte{1, 2, 3, 4, 5}},
	}
	w := newWriter()
	writeAdditionalInfos(w, infos, false, false)

	got := parseAdditionalInfos(newReader(w.Bytes()), w.Len(), false, false)
	if len(got) != len(infos) {
		t.Fatalf("records: got %d, want %d", len(got), len(infos))
	}
	for i, ai := range got {
		if ai.Key != infos[i].Key || !bytes.Equal(ai.Data, infos[i].Data) {
			t.Errorf("record %d (%s) did not round trip", i, infos[i].Key)
		}
	}
	if name, ok := got[0].UnicodeName(); !ok || name != "Background" {
		t.Errorf("luni: got %q %v", name, ok)
	}
}

func TestAdditionalInfoGlobalAlignment(t *testing.T) {
	// Global-level records are padded to 4 bytes past the declared
	// length; the parser must swallow the slack and find the next
	// record.
	infos := []*AdditionalInfo{
		{Signature: infoSignature, Key: "aaAA", Data: []byte{1, 2, 3, 4, 5}},
		{Signature: infoSignature, Key: "bbBB", Data: []byte{9}},
	}
	w := newWriter()
	writeAdditionalInfos(w, infos, true, false)

	// First record: 12 header bytes + 5 payload + 3 slack.
	if w.Len() != 20+12+1+3 {
		t.Fatalf("encoded size: got %d, want 36", w.Len())
	}
	got := parseAdditionalInfos(newReader(w.Bytes()), w.Len(), true, false)
	if len(got) != 2 {
		t.Fatalf("records: got %d, want 2", len(got))
	}
	if got[1].Key != "bbBB" || !bytes.Equal(got[1].Data, []byte{9}) {
		t.Errorf("second record: %q % X", got[1].Key, got[1].Data)
	}
}

func TestAdditionalInfoCorruptRecordSkipped(t *testing.T) {
	// A bogus signature mid-stream loses the rest of the region, not
	// the records already decoded, and leaves the cursor at end.
	w := newWriter()
	writeAdditionalInfos(w, []*AdditionalInfo{
		{Signature: infoSignature, Key: "good", Data: []byte{1, 2}},
	}, false, false)
	w.WriteString("XXXXjunkjunkjunk")

	r := newReader(w.Bytes())
	got := parseAdditionalInfos(r, w.Len(), false, false)
	if len(got) != 1 || got[0].Key != "good" {
		t.Fatalf("got %d records", len(got))
	}
	if r.Pos() != w.Len() {
		t.Errorf("cursor at %d, want %d", r.Pos(), w.Len())
	}
}

func TestAdditionalInfoPSBWideKeys(t *testing.T) {
	infos := []*AdditionalInfo{
		{Signature: infoSignature, Key: "Lr32", Data: []byte{1, 2, 3, 4}},
		{Signature: infoSignature, Key: "norm", Data: []byte{5, 6}},
	}
	w := newWriter()
	writeAdditionalInfos(w, infos, false, true)

	// Lr32 carries an 8-byte length in PSB, norm a 4-byte one.
	wantLen := (4 + 4 + 8 + 4) + (4 + 4 + 4 + 2)
	if w.Len() != wantLen {
		t.Fatalf("encoded size: got %d, want %d", w.Len(), wantLen)
	}
	got := parseAdditionalInfos(newReader(w.Bytes()), w.Len(), false, true)
	if len(got) != 2 || !bytes.Equal(got[0].Data, []byte{1, 2, 3, 4}) {
		t.Fatalf("wide-length record did not round trip")
	}
}

func TestSectionInfoEncoding(t *testing.T) {
	info := newSectionInfo(SectionInfo{Type: SectionClosedFolder, BlendKey: BlendModePassThrough})
	got, ok := info.Section()
	if !ok || got.Type != SectionClosedFolder || got.BlendKey != BlendModePassThrough {
		t.Errorf("decoded: %+v %v", got, ok)
	}

	// Short form: type only.
	short := &AdditionalInfo{Key: KeySection, Data: []byte{0, 0, 0, 3}}
	got, ok = short.Section()
	if !ok || got.Type != SectionDivider || got.BlendKey != "" {
		t.Errorf("short form: %+v %v", got, ok)
	}

	// Subtype form survives decoding.
	long := &AdditionalInfo{Key: KeySection, Data: []byte{
		0, 0, 0, 1, '8', 'B', 'I', 'M', 'n', 'o', 'r', 'm', 0, 0, 0, 1,
	}}
	got, ok = long.Section()
	if !ok || !got.HasSubtype || got.Subtype != 1 {
		t.Errorf("subtype form: %+v %v", got, ok)
	}
}

// --- Layer Record Tests ---

func testLayer() *Layer {
	l := &Layer{
		Rect:         Rect{Top: 4, Left: 8, Bottom: 20, Right: 40},
		BlendModeKey: BlendModeMultiply,
		Opacity:      200,
		Clipping:     1,
		Name:         "shadow",
		BlendingRanges: []byte{
			0, 0, 255, 255, 0, 0, 255, 255,
		},
	}
	l.Channels = []*Channel{
		{ID: 0}, {ID: 1}, {ID: 2}, {ID: ChannelTransparency},
	}
	l.SetVisible(false)
	l.SetProtectTransparency(true)
	return l
}

func TestLayerRecordRoundTrip(t *testing.T) {
	l := testLayer()
	l.Mask = &Mask{
		Rect:         Rect{Top: 6, Left: 10, Bottom: 18, Right: 30},
		DefaultColor: 255,
		Flags:        maskFlagDisabled,
	}
	l.Channels = append(l.Channels, &Channel{ID: ChannelUserMask})
	l.AdditionalInfo = []*AdditionalInfo{
		newUnicodeNameInfo("shadow", false),
		{Signature: infoSignature, Key: "opaq", Data: []byte{0xDE, 0xAD}},
	}

	lengths := []int64{12, 34, 56, 78, 90}
	w := newWriter()
	if err := writeLayerRecord(w, l, lengths, false); err != nil {
		t.Fatalf("writeLayerRecord: %v", err)
	}

	got, gotLengths, err := parseLayerRecord(newReader(w.Bytes()), false)
	if err != nil {
		t.Fatalf("parseLayerRecord: %v", err)
	}
	if got.Rect != l.Rect {
		t.Errorf("rect: %+v", got.Rect)
	}
	if len(gotLengths) != 5 {
		t.Fatalf("channel lengths: %v", gotLengths)
	}
	for i, n := range lengths {
		if gotLengths[i] != n {
			t.Errorf("channel %d length: got %d, want %d", i, gotLengths[i], n)
		}
	}
	if got.BlendModeKey != BlendModeMultiply || got.Opacity != 200 || got.Clipping != 1 {
		t.Errorf("blend fields: %q %d %d", got.BlendModeKey, got.Opacity, got.Clipping)
	}
	if got.Visible() || !got.ProtectTransparency() {
		t.Errorf("flags: %#x", got.Flags)
	}
	if got.Name != "shadow" || got.UnicodeName() != "shadow" {
		t.Errorf("names: %q %q", got.Name, got.UnicodeName())
	}
	if got.Mask == nil || got.Mask.Rect != l.Mask.Rect || !got.Mask.Disabled() {
		t.Errorf("mask: %+v", got.Mask)
	}
	if !bytes.Equal(got.BlendingRanges, l.BlendingRanges) {
		t.Error("blending ranges mismatch")
	}
	if got.Channel(ChannelUserMask).Rect != l.Mask.Rect {
		t.Error("mask channel must use the mask rectangle")
	}
	if got.Channel(0).Rect != l.Rect {
		t.Error("color channel must use the layer rectangle")
	}
	if len(got.AdditionalInfo) != 2 || !bytes.Equal(got.AdditionalInfo[1].Data, []byte{0xDE, 0xAD}) {
		t.Error("additional info mismatch")
	}
}

func TestLayerRecordBadBlendKey(t *testing.T) {
	l := testLayer()
	l.BlendModeKey = "toolong"
	err := writeLayerRecord(newWriter(), l, make([]int64, len(l.Channels)), false)
	if err == nil {
		t.Fatal("expected error for 7-byte blend key")
	}
}

func TestMaskExtendedFormPreserved(t *testing.T) {
	// The 36-byte dual-mask form keeps its trailing bytes opaque.
	w := newWriter()
	w.WriteUint32(36)
	writeRect(w, Rect{Top: 1, Left: 2, Bottom: 3, Right: 4})
	w.WriteByte(0)
	w.WriteByte(maskFlagRelative)
	tail := bytes.Repeat([]byte{0xAB}, 18)
	w.WriteBytes(tail)

	m, err := parseMask(newReader(w.Bytes()))
	if err != nil {
		t.Fatalf("parseMask: %v", err)
	}
	if !m.PositionedRelative() {
		t.Error("relative flag lost")
	}

	out := newWriter()
	writeMask(out, m)
	if !bytes.Equal(out.Bytes(), w.Bytes()) {
		t.Error("extended mask block did not round trip byte-identical")
	}
}
