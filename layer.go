package psd

import "fmt"

// Blend mode keys, exactly 4 characters on the wire.
const (
	BlendModeNormal      = "norm"
	BlendModePassThrough = "pass"
	BlendModeDissolve    = "diss"
	BlendModeDarken      = "dark"
	BlendModeMultiply    = "mul "
	BlendModeLighten     = "lite"
	BlendModeScreen      = "scrn"
	BlendModeOverlay     = "over"
	BlendModeDifference  = "diff"
	BlendModeLuminosity  = "lum "
)

// Layer flag byte bits. The wire sense of visibility is inverted: a
// set bit means hidden.
const (
	layerFlagProtectTransparency = 1 << 0
	layerFlagHidden              = 1 << 1
)

// Mask flag byte bits.
const (
	maskFlagRelative      = 1 << 0
	maskFlagDisabled      = 1 << 1
	maskFlagInvertOnBlend = 1 << 2
)

// Mask is a layer's mask block. The mask pixel plane itself lives in
// the layer's channel set under ChannelUserMask or
// ChannelSecondaryMask; the block here carries its rectangle and
// flags. Extended 36-byte blocks keep their trailing real-mask bytes
// opaquely in extra so they re-emit unchanged.
type Mask struct {
	Rect         Rect
	DefaultColor byte
	Flags        byte

	extra []byte
}

func (m *Mask) PositionedRelative() bool { return m.Flags&maskFlagRelative != 0 }
func (m *Mask) Disabled() bool           { return m.Flags&maskFlagDisabled != 0 }
func (m *Mask) InvertOnBlend() bool      { return m.Flags&maskFlagInvertOnBlend != 0 }

// Layer is one entry of the document's bottom-to-top layer list.
type Layer struct {
	Rect         Rect
	Channels     []*Channel
	BlendModeKey string
	Opacity      byte
	Clipping     byte
	// Flags preserves the whole wire byte; unrecognized bits survive a
	// round trip. Use the accessors for the known bits.
	Flags byte

	Mask           *Mask
	BlendingRanges []byte
	Name           string
	AdditionalInfo []*AdditionalInfo
}

// Visible reports the layer's own stored visibility.
func (l *Layer) Visible() bool { return l.Flags&layerFlagHidden == 0 }

func (l *Layer) SetVisible(v bool) {
	if v {
		l.Flags &^= layerFlagHidden
	} else {
		l.Flags |= layerFlagHidden
	}
}

func (l *Layer) ProtectTransparency() bool { return l.Flags&layerFlagProtectTransparency != 0 }

func (l *Layer) SetProtectTransparency(v bool) {
	if v {
		l.Flags |= layerFlagProtectTransparency
	} else {
		l.Flags &^= layerFlagProtectTransparency
	}
}

// Channel returns the channel with the given id, or nil.
func (l *Layer) Channel(id int16) *Channel {
	for _, c := range l.Channels {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// channelRect is the plane rectangle for a channel id: mask channels
// use the mask's own rectangle, everything else the layer's.
func (l *Layer) channelRect(id int16) Rect {
	if (id == ChannelUserMask || id == ChannelSecondaryMask) && l.Mask != nil {
		return l.Mask.Rect
	}
	return l.Rect
}

// UnicodeName returns the 'luni' name when present, else the Pascal
// name.
func (l *Layer) UnicodeName() string {
	for _, ai := range l.AdditionalInfo {
		if s, ok := ai.UnicodeName(); ok {
			return s
		}
	}
	return l.Name
}

// SetUnicodeName sets both the Pascal name and the 'luni' record.
func (l *Layer) SetUnicodeName(name string) {
	l.Name = name
	for i, ai := range l.AdditionalInfo {
		if ai.Key == KeyUnicodeName {
			l.AdditionalInfo[i] = newUnicodeNameInfo(name, false)
			return
		}
	}
	l.AdditionalInfo = append(l.AdditionalInfo, newUnicodeNameInfo(name, false))
}

// section returns the decoded 'lsct' group marker, if any.
func (l *Layer) section() (SectionInfo, bool) {
	for _, ai := range l.AdditionalInfo {
		if info, ok := ai.Section(); ok {
			return info, true
		}
	}
	return SectionInfo{}, false
}

func (l *Layer) setSection(info SectionInfo) {
	rec := newSectionInfo(info)
	for i, ai := range l.AdditionalInfo {
		if ai.Key == KeySection {
			l.AdditionalInfo[i] = rec
			return
		}
	}
	l.AdditionalInfo = append(l.AdditionalInfo, rec)
}

func (l *Layer) clearSection() {
	out := l.AdditionalInfo[:0]
	for _, ai := range l.AdditionalInfo {
		if ai.Key != KeySection {
			out = append(out, ai)
		}
	}
	l.AdditionalInfo = out
}

func parseRect(r *reader) (Rect, error) {
	var rect Rect
	var err error
	if rect.Top, err = r.ReadInt32(); err != nil {
		return rect, err
	}
	if rect.Left, err = r.ReadInt32(); err != nil {
		return rect, err
	}
	if rect.Bottom, err = r.ReadInt32(); err != nil {
		return rect, err
	}
	if rect.Right, err = r.ReadInt32(); err != nil {
		return rect, err
	}
	return rect, nil
}

func writeRect(w *writer, rect Rect) {
	w.WriteInt32(rect.Top)
	w.WriteInt32(rect.Left)
	w.WriteInt32(rect.Bottom)
	w.WriteInt32(rect.Right)
}

// parseLayerRecord reads one layer record and returns the layer plus
// the declared per-channel payload lengths; the payload bytes
// themselves follow after all records, in the same relative order.
func parseLayerRecord(r *reader, psb bool) (*Layer, []int64, error) {
	l := &Layer{}
	rect, err := parseRect(r)
	if err != nil {
		return nil, nil, err
	}
	l.Rect = rect

	channelCount, err := r.ReadUint16()
	if err != nil {
		return nil, nil, err
	}
	if channelCount > maxChannelCount {
		return nil, nil, &FormatError{Offset: int64(r.Pos()), Err: ErrBadChannelCount}
	}
	lengths := make([]int64, channelCount)
	for i := range lengths {
		id, err := r.ReadInt16()
		if err != nil {
			return nil, nil, err
		}
		n, err := r.ReadLength(psb)
		if err != nil {
			return nil, nil, err
		}
		l.Channels = append(l.Channels, &Channel{ID: id})
		lengths[i] = n
	}

	sig, err := r.ReadString(4)
	if err != nil {
		return nil, nil, err
	}
	if sig != infoSignature {
		return nil, nil, &FormatError{Offset: int64(r.Pos() - 4), Err: ErrBadSignature}
	}
	if l.BlendModeKey, err = r.ReadString(4); err != nil {
		return nil, nil, err
	}
	if l.Opacity, err = r.ReadByte(); err != nil {
		return nil, nil, err
	}
	if l.Clipping, err = r.ReadByte(); err != nil {
		return nil, nil, err
	}
	if l.Flags, err = r.ReadByte(); err != nil {
		return nil, nil, err
	}
	if err := r.Skip(1); err != nil { // filler
		return nil, nil, err
	}

	extraLen, err := r.ReadUint32()
	if err != nil {
		return nil, nil, err
	}
	extraEnd := r.Pos() + int(extraLen)
	if extraEnd > len(r.data) {
		return nil, nil, r.truncErr()
	}
	if extraLen > 0 {
		if l.Mask, err = parseMask(r); err != nil {
			return nil, nil, err
		}
		rangesLen, err := r.ReadUint32()
		if err != nil {
			return nil, nil, err
		}
		if l.BlendingRanges, err = r.ReadBytes(int(rangesLen)); err != nil {
			return nil, nil, err
		}
		if l.Name, err = r.ReadPascalString(4); err != nil {
			return nil, nil, err
		}
		l.AdditionalInfo = parseAdditionalInfos(r, extraEnd, false, psb)
	}
	r.SeekTo(extraEnd)

	for _, c := range l.Channels {
		c.Rect = l.channelRect(c.ID)
	}
	return l, lengths, nil
}

// parseMask reads the layer mask block. The 20-byte form ends in two
// pad bytes, the 36-byte form in the real-mask fields; either tail is
// preserved verbatim.
func parseMask(r *reader) (*Mask, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	end := r.Pos() + int(n)
	if end > len(r.data) {
		return nil, r.truncErr()
	}
	m := &Mask{}
	if m.Rect, err = parseRect(r); err != nil {
		return nil, err
	}
	if m.DefaultColor, err = r.ReadByte(); err != nil {
		return nil, err
	}
	if m.Flags, err = r.ReadByte(); err != nil {
		return nil, err
	}
	if m.extra, err = r.ReadBytes(end - r.Pos()); err != nil {
		return nil, err
	}
	return m, nil
}

func writeMask(w *writer, m *Mask) {
	if m == nil {
		w.WriteUint32(0)
		return
	}
	extra := m.extra
	if extra == nil {
		extra = []byte{0, 0}
	}
	w.WriteUint32(uint32(18 + len(extra)))
	writeRect(w, m.Rect)
	w.WriteByte(m.DefaultColor)
	w.WriteByte(m.Flags)
	w.WriteBytes(extra)
}

// writeLayerRecord emits one layer record. channelLengths are the
// total stored payload sizes (method tag included) computed by the
// parallel encode phase, in channel order.
func writeLayerRecord(w *writer, l *Layer, channelLengths []int64, psb bool) error {
	key := l.BlendModeKey
	if key == "" {
		key = BlendModeNormal
	}
	if len(key) != 4 {
		return &FormatError{Err: fmt.Errorf("%w: %q", ErrBadBlendKey, key)}
	}

	writeRect(w, l.Rect)
	w.WriteUint16(uint16(len(l.Channels)))
	for i, c := range l.Channels {
		w.WriteInt16(c.ID)
		w.WriteLength(channelLengths[i], psb)
	}
	w.WriteString(infoSignature)
	w.WriteString(key)
	w.WriteByte(l.Opacity)
	w.WriteByte(l.Clipping)
	w.WriteByte(l.Flags)
	w.WriteByte(0) // filler

	extra := w.BeginLength(false)
	writeMask(w, l.Mask)
	w.WriteUint32(uint32(len(l.BlendingRanges)))
	w.WriteBytes(l.BlendingRanges)
	w.WritePascalString(l.Name, 4)
	writeAdditionalInfos(w, l.AdditionalInfo, false, psb)
	w.EndLength(extra)
	return nil
}
