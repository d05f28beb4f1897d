package psd

// Channel ids for the auxiliary planes. Nonnegative ids are color
// channels in color-mode order.
const (
	ChannelTransparency  int16 = -1
	ChannelUserMask      int16 = -2
	ChannelSecondaryMask int16 = -3
)

// Channel is one rectangle-bounded byte plane of a layer or of the
// composite image. It caches either the stored compressed bytes or the
// decoded plane, never both; decoding drops the compressed form and
// assigning pixels drops it too.
type Channel struct {
	ID          int16
	Compression CompressionMethod
	Rect        Rect

	compressed []byte
	wideCounts bool // compressed RLE blob uses 32-bit row counts
	decoded    []byte
}

// NewChannel builds a channel from decoded pixels. The pixel slice must
// be rawSize(rect, depth) bytes for the owning document's depth.
func NewChannel(id int16, rect Rect, pixels []byte) *Channel {
	return &Channel{ID: id, Rect: rect, decoded: pixels}
}

// Pixels returns the decoded plane, or nil if the channel is still in
// its compressed state (see LoadOptions.SkipUnsupportedChannels).
func (c *Channel) Pixels() []byte { return c.decoded }

// SetPixels replaces the plane and invalidates any cached compressed
// bytes.
func (c *Channel) SetPixels(pixels []byte) {
	c.decoded = pixels
	c.compressed = nil
}

// Decoded reports whether the plane has been decompressed.
func (c *Channel) Decoded() bool { return c.decoded != nil }

// decode materializes the plane from the stored bytes. It is the unit
// of work the parallel load phase dispatches per channel.
func (c *Channel) decode(depth int) error {
	if c.decoded != nil {
		return nil
	}
	cdc, err := newCodec(c.Compression, depth, c.wideCounts)
	if err != nil {
		return err
	}
	out, err := cdc.Decode(c.compressed, c.Rect, depth)
	if err != nil {
		return err
	}
	c.decoded = out
	c.compressed = nil
	return nil
}

// encode produces the channel's stored bytes under method, excluding
// the 2-byte method tag. A channel still holding compressed bytes in
// the same scheme passes them through untouched, which keeps channels
// skipped at load time lossless on resave.
func (c *Channel) encode(method CompressionMethod, depth int, wideCounts bool) ([]byte, error) {
	if c.compressed != nil && method == c.Compression &&
		(method != CompressionRLE || c.wideCounts == wideCounts) {
		return c.compressed, nil
	}
	if c.decoded == nil {
		if err := c.decode(depth); err != nil {
			return nil, err
		}
	}
	cdc, err := newCodec(method, depth, wideCounts)
	if err != nil {
		return nil, err
	}
	return cdc.Encode(c.decoded, c.Rect, depth)
}
