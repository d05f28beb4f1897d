package psd

import (
	"errors"
	"fmt"
	"io"
)

// Document is a parsed PSD/PSB file, or one under construction for
// Save. Layers are kept in the stored bottom-to-top order; use
// ImportSections for the bracketed group view.
type Document struct {
	Version      int // VersionPSD or VersionPSB
	Width        int
	Height       int
	ChannelCount int
	Depth        int // 1, 8, 16 or 32
	ColorMode    ColorMode

	// ColorModeData is the palette region: 768 bytes of indexed
	// palette for Indexed mode, opaque bytes for Duotone, empty
	// otherwise.
	ColorModeData []byte

	Resources []*Resource
	Layers    []*Layer

	// MergedAlpha is set when the stored layer count was negative:
	// the composite's first alpha channel holds the merged result
	// transparency.
	MergedAlpha bool

	// GlobalMask is the global layer mask block payload, kept opaque.
	GlobalMask []byte

	// GlobalInfo holds the additional-info records trailing the
	// layer-and-mask section.
	GlobalInfo []*AdditionalInfo

	CompositeCompression CompressionMethod
	CompositeChannels    []*Channel

	// compositeStream holds a zip-compressed composite: the planes
	// share one deflate stream with no per-channel lengths, so they
	// are decoded sequentially rather than in the parallel batch.
	compositeStream []byte
}

// LoadOptions tunes Load behavior. A nil options value means defaults.
type LoadOptions struct {
	// MaxMemory caps the worst-case decoded size in bytes: every
	// layer rectangle promoted to full canvas, times its channels,
	// plus the composite. Exceeding it fails with a
	// *ResourceBudgetError before any channel buffer is allocated.
	// 0 means unlimited.
	MaxMemory int64

	// Parallelism bounds the channel decompression workers.
	// 0 means GOMAXPROCS.
	Parallelism int

	// SkipUnsupportedChannels scopes an *UnsupportedFeatureError to
	// the channel that raised it: the channel stays in its compressed
	// state (Pixels returns nil) and the load succeeds.
	SkipUnsupportedChannels bool

	// Progress, if set, is called once per decompressed channel.
	Progress func(done, total int)
}

// CanvasRect is the full-canvas rectangle.
func (d *Document) CanvasRect() Rect {
	return Rect{Bottom: int32(d.Height), Right: int32(d.Width)}
}

func (d *Document) wide() bool { return d.Version == VersionPSB }

// Load parses a PSD or PSB document and decompresses every channel.
func Load(r io.Reader) (*Document, error) {
	return LoadWithOptions(r, nil)
}

// LoadWithOptions is Load with explicit options.
func LoadWithOptions(r io.Reader, opts *LoadOptions) (*Document, error) {
	if opts == nil {
		opts = &LoadOptions{}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("psd: read: %w", err)
	}

	rd := newReader(data)
	doc := &Document{}
	if err := parseHeader(rd, doc); err != nil {
		return nil, err
	}

	n, err := rd.ReadUint32()
	if err != nil {
		return nil, err
	}
	if doc.ColorModeData, err = rd.ReadBytes(int(n)); err != nil {
		return nil, err
	}

	if doc.Resources, err = parseResources(rd); err != nil {
		return nil, err
	}
	if err := parseLayerMaskSection(rd, doc); err != nil {
		return nil, err
	}
	if err := parseComposite(rd, doc); err != nil {
		return nil, err
	}

	if err := checkDepthSupport(doc); err != nil {
		if !opts.SkipUnsupportedChannels {
			return nil, err
		}
		return doc, nil // every channel stays compressed
	}

	if opts.MaxMemory > 0 {
		if required := worstCaseDecodedSize(doc); required > opts.MaxMemory {
			return nil, &ResourceBudgetError{Required: required, Budget: opts.MaxMemory}
		}
	}

	return doc, decodeChannels(doc, opts)
}

// parseLayerMaskSection reads the layer-info block, every layer's
// channel payloads in file order, the global mask block and the global
// additional-info records.
func parseLayerMaskSection(r *reader, doc *Document) error {
	wide := doc.wide()
	total, err := r.ReadLength(wide)
	if err != nil {
		return err
	}
	if total == 0 {
		return nil
	}
	end := r.Pos() + int(total)
	if total < 0 || end > len(r.data) {
		return r.truncErr()
	}

	infoLen, err := r.ReadLength(wide)
	if err != nil {
		return err
	}
	infoEnd := r.Pos() + int(infoLen)
	if infoLen < 0 || infoEnd > end {
		return r.truncErr()
	}
	if infoLen > 0 {
		count, err := r.ReadInt16()
		if err != nil {
			return err
		}
		if count < 0 {
			doc.MergedAlpha = true
			count = -count
		}

		lengths := make([][]int64, count)
		for i := 0; i < int(count); i++ {
			layer, chanLengths, err := parseLayerRecord(r, wide)
			if err != nil {
				return err
			}
			doc.Layers = append(doc.Layers, layer)
			lengths[i] = chanLengths
		}

		for i, layer := range doc.Layers {
			for j, c := range layer.Channels {
				n := lengths[i][j]
				if n < 2 {
					if err := r.Skip(int(n)); err != nil {
						return err
					}
					c.Compression = CompressionRaw
					c.compressed = []byte{}
					continue
				}
				tag, err := r.ReadUint16()
				if err != nil {
					return err
				}
				c.Compression = CompressionMethod(tag)
				c.wideCounts = wide
				if c.compressed, err = r.ReadBytes(int(n) - 2); err != nil {
					return err
				}
			}
		}
		// Layer info is even-padded; seeking to its declared end
		// consumes the pad byte if present.
		r.SeekTo(infoEnd)
	}

	if end-r.Pos() >= 4 {
		maskLen, err := r.ReadUint32()
		if err != nil {
			return err
		}
		n := min(int(maskLen), end-r.Pos())
		if doc.GlobalMask, err = r.ReadBytes(n); err != nil {
			return err
		}
	}

	doc.GlobalInfo = parseAdditionalInfos(r, end, true, wide)
	r.SeekTo(end)
	return nil
}

// parseComposite reads the flattened image: a 2-byte method tag, then
// the canvas-sized channel planes in that method's layout.
func parseComposite(r *reader, doc *Document) error {
	tag, err := r.ReadUint16()
	if err != nil {
		return err
	}
	doc.CompositeCompression = CompressionMethod(tag)

	canvas := doc.CanvasRect()
	planeSize := rawSize(canvas, doc.Depth)
	for i := 0; i < doc.ChannelCount; i++ {
		doc.CompositeChannels = append(doc.CompositeChannels, &Channel{
			ID:          int16(i),
			Compression: doc.CompositeCompression,
			Rect:        canvas,
			wideCounts:  doc.wide(),
		})
	}

	switch doc.CompositeCompression {
	case CompressionRaw:
		for _, c := range doc.CompositeChannels {
			if c.compressed, err = r.ReadBytes(planeSize); err != nil {
				return err
			}
		}
	case CompressionRLE:
		// One count table covering channels x height rows precedes
		// all streams. Re-frame each channel as table+stream so the
		// RLE codec sees its usual layout and channels decode
		// independently.
		rows := canvas.Height()
		counts := make([]int, doc.ChannelCount*rows)
		rc := rleCodec{wideCounts: doc.wide()}
		for i := range counts {
			if counts[i], err = rc.readCount(r); err != nil {
				return err
			}
		}
		for i, c := range doc.CompositeChannels {
			w := newWriter()
			streamLen := 0
			for _, n := range counts[i*rows : (i+1)*rows] {
				if doc.wide() {
					w.WriteUint32(uint32(n))
				} else {
					w.WriteUint16(uint16(n))
				}
				streamLen += n
			}
			stream, err := r.ReadBytes(streamLen)
			if err != nil {
				return err
			}
			w.WriteBytes(stream)
			c.compressed = w.Bytes()
		}
	case CompressionZip, CompressionZipPrediction:
		if doc.compositeStream, err = r.ReadBytes(r.Remaining()); err != nil {
			return err
		}
	default:
		return &UnsupportedFeatureError{
			Feature: fmt.Sprintf("composite compression method %d", tag),
		}
	}
	return nil
}

// worstCaseDecodedSize is the footprint ceiling the memory budget is
// checked against: every layer channel promoted to full canvas size,
// plus the composite planes.
func worstCaseDecodedSize(doc *Document) int64 {
	full := int64(rawSize(doc.CanvasRect(), doc.Depth))
	required := full * int64(doc.ChannelCount)
	for _, l := range doc.Layers {
		required += full * int64(len(l.Channels))
	}
	return required
}

// decodeChannels fans channel decompression out over the worker pool
// and joins before the document is considered loaded.
func decodeChannels(doc *Document, opts *LoadOptions) error {
	var chans []*Channel
	for _, l := range doc.Layers {
		chans = append(chans, l.Channels...)
	}
	for _, c := range doc.CompositeChannels {
		if c.compressed != nil {
			chans = append(chans, c)
		}
	}

	total := len(chans)
	if doc.compositeStream != nil {
		total += len(doc.CompositeChannels)
	}
	prog := newProgress(total, opts.Progress)

	err := runTasks(len(chans), opts.Parallelism, func(i int) error {
		if err := chans[i].decode(doc.Depth); err != nil {
			var unsupported *UnsupportedFeatureError
			if opts.SkipUnsupportedChannels && errors.As(err, &unsupported) {
				prog.tick()
				return nil
			}
			return err
		}
		prog.tick()
		return nil
	})
	if err != nil {
		return err
	}

	if doc.compositeStream != nil {
		if err := decodeCompositeZip(doc, prog); err != nil {
			return err
		}
	}
	return nil
}

// decodeCompositeZip inflates the shared composite stream and splits
// it into per-channel planes.
func decodeCompositeZip(doc *Document, prog *progress) error {
	canvas := doc.CanvasRect()
	planeSize := rawSize(canvas, doc.Depth)
	if doc.CompositeCompression == CompressionZipPrediction && doc.Depth != 16 && doc.Depth != 32 {
		return &UnsupportedFeatureError{
			Feature: fmt.Sprintf("zip prediction at bit depth %d", doc.Depth),
		}
	}

	all, err := inflateBytes(doc.compositeStream, planeSize*len(doc.CompositeChannels))
	if err != nil {
		return err
	}
	for i, c := range doc.CompositeChannels {
		plane := all[i*planeSize : (i+1)*planeSize : (i+1)*planeSize]
		switch {
		case doc.CompositeCompression == CompressionZip:
			reverseByteOrder(plane, doc.Depth)
		case doc.Depth == 16:
			plane = unpredict16(plane, canvas.Width(), canvas.Height())
		default:
			plane = unpredict32(plane, canvas.Width(), canvas.Height())
		}
		c.decoded = plane
		c.compressed = nil
		prog.tick()
	}
	doc.compositeStream = nil
	return nil
}
