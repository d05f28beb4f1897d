package psd

import (
	"bytes"
	"fmt"
	"io"
)

// SaveOptions tunes Save behavior. A nil options value means defaults.
type SaveOptions struct {
	// Compression is the channel compression method applied to every
	// channel, layer and composite alike. The zero value stores
	// channels uncompressed; CompressionRLE matches what Photoshop
	// writes for 8-bit documents.
	Compression CompressionMethod

	// Parallelism bounds the channel compression workers.
	// 0 means GOMAXPROCS.
	Parallelism int

	// Progress, if set, is called once per compressed channel.
	Progress func(done, total int)
}

// Save serializes the document. The whole file is composed in memory
// and copied to w once at the end, so a failed save never leaves w
// holding a truncated prefix of an otherwise valid file.
func Save(w io.Writer, doc *Document, opts *SaveOptions) error {
	if opts == nil {
		opts = &SaveOptions{}
	}

	d := *doc
	if d.Version == 0 {
		d.Version = VersionPSD
	}
	if err := validateHeader(&d); err != nil {
		return err
	}
	if err := checkDepthSupport(&d); err != nil {
		return err
	}
	if len(d.CompositeChannels) != d.ChannelCount {
		return &FormatError{Err: ErrCompositeMismatch}
	}
	method := opts.Compression
	wide := d.wide()
	// Reject unsupported method/depth pairs before compressing or
	// writing anything.
	if _, err := newCodec(method, d.Depth, wide); err != nil {
		return err
	}

	encoded, err := encodeChannels(&d, method, opts)
	if err != nil {
		return err
	}

	out := newWriter()
	writeHeader(out, &d)

	out.WriteUint32(uint32(len(d.ColorModeData)))
	out.WriteBytes(d.ColorModeData)

	writeResources(out, d.Resources)

	if err := writeLayerMaskSection(out, &d, method, encoded); err != nil {
		return err
	}
	if err := writeComposite(out, &d, method, encoded); err != nil {
		return err
	}

	if _, err := w.Write(out.Bytes()); err != nil {
		return fmt.Errorf("psd: write: %w", err)
	}
	return nil
}

// channelData holds the parallel encode phase's output: the stored
// bytes for every layer channel and composite channel, tag excluded.
type channelData struct {
	layers    [][][]byte // [layer][channel]
	composite [][]byte   // nil when the composite shares one zip stream
	zipStream []byte
}

// encodeChannels compresses every channel concurrently, joining before
// serialization starts. A zip-family composite is the one sequential
// exception: its planes share a single deflate stream.
func encodeChannels(doc *Document, method CompressionMethod, opts *SaveOptions) (*channelData, error) {
	type task struct {
		c   *Channel
		dst *[]byte
	}
	var tasks []task

	data := &channelData{layers: make([][][]byte, len(doc.Layers))}
	for i, l := range doc.Layers {
		data.layers[i] = make([][]byte, len(l.Channels))
		for j, c := range l.Channels {
			c.Rect = l.channelRect(c.ID)
			tasks = append(tasks, task{c: c, dst: &data.layers[i][j]})
		}
	}

	zipComposite := method == CompressionZip || method == CompressionZipPrediction
	if !zipComposite {
		data.composite = make([][]byte, len(doc.CompositeChannels))
		for i, c := range doc.CompositeChannels {
			tasks = append(tasks, task{c: c, dst: &data.composite[i]})
		}
	}

	total := len(tasks)
	if zipComposite {
		total += len(doc.CompositeChannels)
	}
	prog := newProgress(total, opts.Progress)

	wide := doc.wide()
	err := runTasks(len(tasks), opts.Parallelism, func(i int) error {
		enc, err := tasks[i].c.encode(method, doc.Depth, wide)
		if err != nil {
			return err
		}
		*tasks[i].dst = enc
		prog.tick()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if zipComposite {
		if data.zipStream, err = encodeCompositeZip(doc, method, prog); err != nil {
			return nil, err
		}
	}
	return data, nil
}

func writeLayerMaskSection(w *writer, doc *Document, method CompressionMethod, data *channelData) error {
	wide := doc.wide()
	section := w.BeginLength(wide)

	info := w.BeginLength(wide)
	if len(doc.Layers) > 0 || doc.MergedAlpha {
		count := int16(len(doc.Layers))
		if doc.MergedAlpha {
			count = -count
		}
		w.WriteInt16(count)

		for i, l := range doc.Layers {
			lengths := make([]int64, len(l.Channels))
			for j := range l.Channels {
				lengths[j] = int64(len(data.layers[i][j])) + 2
			}
			if err := writeLayerRecord(w, l, lengths, wide); err != nil {
				return err
			}
		}
		for i := range doc.Layers {
			for _, enc := range data.layers[i] {
				w.WriteUint16(uint16(method))
				w.WriteBytes(enc)
			}
		}
		w.PadFrom(info.bodyStart, 2)
	}
	w.EndLength(info)

	w.WriteUint32(uint32(len(doc.GlobalMask)))
	w.WriteBytes(doc.GlobalMask)

	writeAdditionalInfos(w, doc.GlobalInfo, true, wide)
	w.EndLength(section)
	return nil
}

func writeComposite(w *writer, doc *Document, method CompressionMethod, data *channelData) error {
	w.WriteUint16(uint16(method))
	switch method {
	case CompressionRLE:
		// All channels' row count tables come first, then all
		// streams: split each channel's framed blob back apart.
		tableLen := doc.CanvasRect().Height() * rleCodec{wideCounts: doc.wide()}.countSize()
		for _, enc := range data.composite {
			if len(enc) < tableLen {
				return fmt.Errorf("psd: composite rle blob too short: %w", ErrCorruptData)
			}
			w.WriteBytes(enc[:tableLen])
		}
		for _, enc := range data.composite {
			w.WriteBytes(enc[tableLen:])
		}
	case CompressionZip, CompressionZipPrediction:
		w.WriteBytes(data.zipStream)
	default:
		for _, enc := range data.composite {
			w.WriteBytes(enc)
		}
	}
	return nil
}

// encodeCompositeZip packs all composite planes into one deflate
// stream, applying the per-method transform each plane needs first.
func encodeCompositeZip(doc *Document, method CompressionMethod, prog *progress) ([]byte, error) {
	canvas := doc.CanvasRect()
	var all []byte
	for _, c := range doc.CompositeChannels {
		if c.decoded == nil {
			if err := c.decode(doc.Depth); err != nil {
				return nil, err
			}
		}
		var plane []byte
		switch {
		case method == CompressionZip:
			plane = bytes.Clone(c.decoded)
			reverseByteOrder(plane, doc.Depth)
		case doc.Depth == 16:
			plane = predict16(c.decoded, canvas.Width(), canvas.Height())
		default:
			plane = predict32(c.decoded, canvas.Width(), canvas.Height())
		}
		all = append(all, plane...)
		prog.tick()
	}
	return deflateBytes(all)
}
