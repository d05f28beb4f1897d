package psd

// Image resource ids this package decodes. Every other id round-trips
// as opaque bytes.
const (
	ResourceIDResolutionInfo    uint16 = 1005
	ResourceIDAlphaChannelNames uint16 = 1006
	ResourceIDThumbnailBGR      uint16 = 1033
	ResourceIDThumbnail         uint16 = 1036
	ResourceIDVersionInfo       uint16 = 1057
)

const resourceSignature = "8BIM"

// Resource is one image resource block. The payload is kept exactly as
// stored; the typed accessors decode the kinds this package
// understands and the New*Resource constructors build them.
type Resource struct {
	ID   uint16
	Name string
	Data []byte
}

// ResolutionInfo is the decoded form of resource 1005.
type ResolutionInfo struct {
	HRes       float64 // pixels per inch, stored as fixed 16.16
	HResUnit   uint16
	WidthUnit  uint16
	VRes       float64
	VResUnit   uint16
	HeightUnit uint16
}

// Thumbnail is the decoded header of resources 1033 and 1036. The
// image bytes stay verbatim: 1036 holds a JFIF stream, 1033 raw BGR
// planes; neither is decoded here.
type Thumbnail struct {
	Format         uint32
	Width          uint32
	Height         uint32
	WidthBytes     uint32
	TotalSize      uint32
	CompressedSize uint32
	BitsPerPixel   uint16
	Planes         uint16
	Image          []byte
}

// VersionInfo is the decoded form of resource 1057.
type VersionInfo struct {
	Version           uint32
	HasRealMergedData bool
	WriterName        string
	ReaderName        string
	FileVersion       uint32
}

// ResolutionInfo decodes a 1005 payload.
func (rs *Resource) ResolutionInfo() (*ResolutionInfo, bool) {
	if rs.ID != ResourceIDResolutionInfo || len(rs.Data) < 16 {
		return nil, false
	}
	r := newReader(rs.Data)
	var info ResolutionInfo
	h, _ := r.ReadUint32()
	info.HRes = float64(h) / 65536
	info.HResUnit, _ = r.ReadUint16()
	info.WidthUnit, _ = r.ReadUint16()
	v, _ := r.ReadUint32()
	info.VRes = float64(v) / 65536
	info.VResUnit, _ = r.ReadUint16()
	info.HeightUnit, _ = r.ReadUint16()
	return &info, true
}

// Thumbnail decodes a 1033/1036 payload.
func (rs *Resource) Thumbnail() (*Thumbnail, bool) {
	if (rs.ID != ResourceIDThumbnail && rs.ID != ResourceIDThumbnailBGR) || len(rs.Data) < 28 {
		return nil, false
	}
	r := newReader(rs.Data)
	var t Thumbnail
	t.Format, _ = r.ReadUint32()
	t.Width, _ = r.ReadUint32()
	t.Height, _ = r.ReadUint32()
	t.WidthBytes, _ = r.ReadUint32()
	t.TotalSize, _ = r.ReadUint32()
	t.CompressedSize, _ = r.ReadUint32()
	t.BitsPerPixel, _ = r.ReadUint16()
	t.Planes, _ = r.ReadUint16()
	t.Image, _ = r.ReadBytes(r.Remaining())
	return &t, true
}

// AlphaChannelNames decodes a 1006 payload: a packed run of unpadded
// Pascal strings naming the channels beyond the color mode's intrinsic
// set.
func (rs *Resource) AlphaChannelNames() ([]string, bool) {
	if rs.ID != ResourceIDAlphaChannelNames {
		return nil, false
	}
	r := newReader(rs.Data)
	var names []string
	for r.Remaining() > 0 {
		n, err := r.ReadByte()
		if err != nil {
			return nil, false
		}
		s, err := r.ReadString(int(n))
		if err != nil {
			return nil, false
		}
		names = append(names, s)
	}
	return names, true
}

// VersionInfo decodes a 1057 payload.
func (rs *Resource) VersionInfo() (*VersionInfo, bool) {
	if rs.ID != ResourceIDVersionInfo {
		return nil, false
	}
	r := newReader(rs.Data)
	var info VersionInfo
	v, err := r.ReadUint32()
	if err != nil {
		return nil, false
	}
	info.Version = v
	b, err := r.ReadByte()
	if err != nil {
		return nil, false
	}
	info.HasRealMergedData = b != 0
	if info.WriterName, err = r.ReadUnicodeString(); err != nil {
		return nil, false
	}
	if info.ReaderName, err = r.ReadUnicodeString(); err != nil {
		return nil, false
	}
	if info.FileVersion, err = r.ReadUint32(); err != nil {
		return nil, false
	}
	return &info, true
}

// NewResolutionInfoResource encodes a 1005 block.
func NewResolutionInfoResource(info ResolutionInfo) *Resource {
	w := newWriter()
	w.WriteUint32(uint32(info.HRes * 65536))
	w.WriteUint16(info.HResUnit)
	w.WriteUint16(info.WidthUnit)
	w.WriteUint32(uint32(info.VRes * 65536))
	w.WriteUint16(info.VResUnit)
	w.WriteUint16(info.HeightUnit)
	return &Resource{ID: ResourceIDResolutionInfo, Data: w.Bytes()}
}

// NewThumbnailResource encodes a 1036 block.
func NewThumbnailResource(t Thumbnail) *Resource {
	w := newWriter()
	w.WriteUint32(t.Format)
	w.WriteUint32(t.Width)
	w.WriteUint32(t.Height)
	w.WriteUint32(t.WidthBytes)
	w.WriteUint32(t.TotalSize)
	w.WriteUint32(t.CompressedSize)
	w.WriteUint16(t.BitsPerPixel)
	w.WriteUint16(t.Planes)
	w.WriteBytes(t.Image)
	return &Resource{ID: ResourceIDThumbnail, Data: w.Bytes()}
}

// NewAlphaChannelNamesResource encodes a 1006 block.
func NewAlphaChannelNamesResource(names []string) *Resource {
	w := newWriter()
	for _, s := range names {
		if len(s) > 255 {
			s = s[:255]
		}
		w.WriteByte(byte(len(s)))
		w.WriteString(s)
	}
	return &Resource{ID: ResourceIDAlphaChannelNames, Data: w.Bytes()}
}

// NewVersionInfoResource encodes a 1057 block.
func NewVersionInfoResource(info VersionInfo) *Resource {
	w := newWriter()
	w.WriteUint32(info.Version)
	if info.HasRealMergedData {
		w.WriteByte(1)
	} else {
		w.WriteByte(0)
	}
	w.WriteUnicodeString(info.WriterName)
	w.WriteUnicodeString(info.ReaderName)
	w.WriteUint32(info.FileVersion)
	return &Resource{ID: ResourceIDVersionInfo, Data: w.Bytes()}
}

// parseResources reads the image resource section: a 4-byte total
// length, then blocks of signature, id, Pascal name and an
// even-padded payload.
func parseResources(r *reader) ([]*Resource, error) {
	total, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	end := r.Pos() + int(total)
	if end > len(r.data) {
		return nil, r.truncErr()
	}
	var resources []*Resource
	for r.Pos()+8 <= end {
		sig, err := r.ReadString(4)
		if err != nil {
			return nil, err
		}
		if sig != resourceSignature {
			return nil, &FormatError{Offset: int64(r.Pos() - 4), Err: ErrBadResourceBlock}
		}
		res := &Resource{}
		if res.ID, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if res.Name, err = r.ReadPascalString(2); err != nil {
			return nil, err
		}
		n, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		if res.Data, err = r.ReadBytes(int(n)); err != nil {
			return nil, err
		}
		if n%2 != 0 {
			if err := r.Skip(1); err != nil {
				return nil, err
			}
		}
		resources = append(resources, res)
	}
	r.SeekTo(end)
	return resources, nil
}

func writeResources(w *writer, resources []*Resource) {
	total := w.BeginLength(false)
	for _, res := range resources {
		w.WriteString(resourceSignature)
		w.WriteUint16(res.ID)
		w.WritePascalString(res.Name, 2)
		w.WriteUint32(uint32(len(res.Data)))
		w.WriteBytes(res.Data)
		if len(res.Data)%2 != 0 {
			w.WriteByte(0)
		}
	}
	w.EndLength(total)
}
