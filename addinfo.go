package psd

// Additional-info record signatures and the keys this package
// interprets. Every other key round-trips as opaque bytes.
const (
	infoSignature    = "8BIM"
	infoSignaturePSB = "8B64"

	KeyUnicodeName = "luni"
	KeySection     = "lsct"
)

// psbWideLengthKeys lists the record keys whose length field is 8 bytes
// in PSB files. All other keys, and all PSD records, use 4 bytes.
var psbWideLengthKeys = map[string]bool{
	"LMsk": true, "Lr16": true, "Lr32": true, "Layr": true,
	"Mt16": true, "Mt32": true, "Mtrn": true, "Alph": true,
	"FMsk": true, "lnk2": true, "FEid": true, "FXid": true,
	"PxSD": true, "cinf": true,
}

// AdditionalInfo is one key-tagged metadata record attached to a layer
// or to the global layer-and-mask section. The payload is kept exactly
// as stored so unknown keys re-emit byte-identical; the typed accessors
// decode the keys this package understands.
type AdditionalInfo struct {
	Signature string // "8BIM", or "8B64" in some PSB records
	Key       string
	Data      []byte
}

// SectionType is the group-marker role carried by an 'lsct' record.
type SectionType int32

const (
	SectionAny          SectionType = 0
	SectionOpenFolder   SectionType = 1
	SectionClosedFolder SectionType = 2
	SectionDivider      SectionType = 3
)

// SectionInfo is the decoded form of an 'lsct' record.
type SectionInfo struct {
	Type       SectionType
	BlendKey   string // empty when the record carries no blend key
	Subtype    int32
	HasSubtype bool
}

// UnicodeName decodes a 'luni' payload. The second result is false for
// any other key or a malformed payload.
func (ai *AdditionalInfo) UnicodeName() (string, bool) {
	if ai.Key != KeyUnicodeName {
		return "", false
	}
	s, err := newReader(ai.Data).ReadUnicodeString()
	if err != nil {
		return "", false
	}
	return s, true
}

// Section decodes an 'lsct' payload. The second result is false for
// any other key or a malformed payload.
func (ai *AdditionalInfo) Section() (SectionInfo, bool) {
	if ai.Key != KeySection {
		return SectionInfo{}, false
	}
	r := newReader(ai.Data)
	typ, err := r.ReadInt32()
	if err != nil {
		return SectionInfo{}, false
	}
	info := SectionInfo{Type: SectionType(typ)}
	if len(ai.Data) >= 12 {
		if sig, err := r.ReadString(4); err != nil || sig != infoSignature {
			return SectionInfo{}, false
		}
		key, err := r.ReadString(4)
		if err != nil {
			return SectionInfo{}, false
		}
		info.BlendKey = key
	}
	if len(ai.Data) >= 16 {
		sub, err := r.ReadInt32()
		if err != nil {
			return SectionInfo{}, false
		}
		info.Subtype = sub
		info.HasSubtype = true
	}
	return info, true
}

// newUnicodeNameInfo encodes a 'luni' record. Records embedded at the
// global layer-and-mask level pad the string to a 4-byte boundary;
// per-layer records do not.
func newUnicodeNameInfo(name string, global bool) *AdditionalInfo {
	w := newWriter()
	w.WriteUnicodeString(name)
	if global {
		w.PadFrom(0, 4)
	}
	return &AdditionalInfo{Signature: infoSignature, Key: KeyUnicodeName, Data: w.Bytes()}
}

// newSectionInfo encodes an 'lsct' record. A blend key is only written
// for group markers that carry one.
func newSectionInfo(info SectionInfo) *AdditionalInfo {
	w := newWriter()
	w.WriteInt32(int32(info.Type))
	if info.BlendKey != "" {
		w.WriteString(infoSignature)
		w.WriteString(info.BlendKey)
		if info.HasSubtype {
			w.WriteInt32(info.Subtype)
		}
	}
	return &AdditionalInfo{Signature: infoSignature, Key: KeySection, Data: w.Bytes()}
}

// parseAdditionalInfos reads records until end. A record that cannot be
// parsed only loses itself: the cursor seeks to the computed end and
// whatever was decoded so far is kept. Global-level parsing also
// swallows the up-to-3 alignment bytes some producers append past a
// record's declared length; per-layer parsing must not assume them.
func parseAdditionalInfos(r *reader, end int, global, psb bool) []*AdditionalInfo {
	var infos []*AdditionalInfo
	for r.Pos()+12 <= end {
		sig, err := r.ReadString(4)
		if err != nil || (sig != infoSignature && sig != infoSignaturePSB) {
			r.SeekTo(end)
			break
		}
		key, err := r.ReadString(4)
		if err != nil {
			r.SeekTo(end)
			break
		}
		n, err := r.ReadLength(psb && psbWideLengthKeys[key])
		if err != nil || n < 0 || r.Pos()+int(n) > end {
			r.SeekTo(end)
			break
		}
		recordEnd := r.Pos() + int(n)
		data, err := r.ReadBytes(int(n))
		if err != nil {
			r.SeekTo(recordEnd)
			continue
		}
		infos = append(infos, &AdditionalInfo{Signature: sig, Key: key, Data: data})
		if global {
			slack := (4 - int(n)%4) % 4
			if r.Pos()+slack > end {
				slack = end - r.Pos()
			}
			r.Skip(slack)
		}
	}
	return infos
}

// writeAdditionalInfos emits records in order. Global-level records are
// padded to a 4-byte boundary after the payload; the declared length
// stays the payload's true size, matching reference producers.
func writeAdditionalInfos(w *writer, infos []*AdditionalInfo, global, psb bool) {
	for _, ai := range infos {
		sig := ai.Signature
		if sig == "" {
			sig = infoSignature
		}
		w.WriteString(sig)
		w.WriteString(ai.Key)
		w.WriteLength(int64(len(ai.Data)), psb && psbWideLengthKeys[ai.Key])
		start := w.Len()
		w.WriteBytes(ai.Data)
		if global {
			w.PadFrom(start, 4)
		}
	}
}
