package psd

import "fmt"

const (
	fileSignature = "8BPS"

	// VersionPSD and VersionPSB are the two file format revisions.
	VersionPSD = 1
	VersionPSB = 2

	maxChannelCount   = 56
	maxDimension      = 30000
	maxDimensionLarge = 300000
)

// ColorMode is the document color mode, using the on-disk enum values.
type ColorMode uint16

const (
	ColorModeBitmap       ColorMode = 0
	ColorModeGrayscale    ColorMode = 1
	ColorModeIndexed      ColorMode = 2
	ColorModeRGB          ColorMode = 3
	ColorModeCMYK         ColorMode = 4
	ColorModeMultichannel ColorMode = 7
	ColorModeDuotone      ColorMode = 8
	ColorModeLab          ColorMode = 9
)

func (m ColorMode) String() string {
	switch m {
	case ColorModeBitmap:
		return "Bitmap"
	case ColorModeGrayscale:
		return "Grayscale"
	case ColorModeIndexed:
		return "Indexed"
	case ColorModeRGB:
		return "RGB"
	case ColorModeCMYK:
		return "CMYK"
	case ColorModeMultichannel:
		return "Multichannel"
	case ColorModeDuotone:
		return "Duotone"
	case ColorModeLab:
		return "Lab"
	}
	return fmt.Sprintf("ColorMode(%d)", uint16(m))
}

// Channels returns the mode's intrinsic channel count. Channels beyond
// it are alpha or spot channels; Multichannel has no fixed count and
// returns 1.
func (m ColorMode) Channels() int {
	switch m {
	case ColorModeRGB, ColorModeLab:
		return 3
	case ColorModeCMYK:
		return 4
	default:
		return 1
	}
}

func (m ColorMode) valid() bool {
	switch m {
	case ColorModeBitmap, ColorModeGrayscale, ColorModeIndexed, ColorModeRGB,
		ColorModeCMYK, ColorModeMultichannel, ColorModeDuotone, ColorModeLab:
		return true
	}
	return false
}

func validDepth(depth int) bool {
	switch depth {
	case 1, 8, 16, 32:
		return true
	}
	return false
}

// maxDimensionFor is the per-version width/height cap.
func maxDimensionFor(version int) int {
	if version == VersionPSB {
		return maxDimensionLarge
	}
	return maxDimension
}

// parseHeader fills the document's fixed header fields.
func parseHeader(r *reader, doc *Document) error {
	sig, err := r.ReadString(4)
	if err != nil {
		return err
	}
	if sig != fileSignature {
		return &FormatError{Offset: 0, Err: ErrBadSignature}
	}
	version, err := r.ReadUint16()
	if err != nil {
		return err
	}
	if version != VersionPSD && version != VersionPSB {
		return &FormatError{Offset: 4, Err: ErrBadVersion}
	}
	doc.Version = int(version)
	if err := r.Skip(6); err != nil { // reserved
		return err
	}
	channels, err := r.ReadUint16()
	if err != nil {
		return err
	}
	height, err := r.ReadUint32()
	if err != nil {
		return err
	}
	width, err := r.ReadUint32()
	if err != nil {
		return err
	}
	depth, err := r.ReadUint16()
	if err != nil {
		return err
	}
	mode, err := r.ReadUint16()
	if err != nil {
		return err
	}

	doc.ChannelCount = int(channels)
	doc.Height = int(height)
	doc.Width = int(width)
	doc.Depth = int(depth)
	doc.ColorMode = ColorMode(mode)
	return validateHeader(doc)
}

func validateHeader(doc *Document) error {
	if doc.ChannelCount < 1 || doc.ChannelCount > maxChannelCount {
		return &FormatError{Err: ErrBadChannelCount}
	}
	limit := maxDimensionFor(doc.Version)
	if doc.Width < 1 || doc.Height < 1 || doc.Width > limit || doc.Height > limit {
		return &FormatError{Err: ErrImageTooLarge}
	}
	if !validDepth(doc.Depth) {
		return &FormatError{Err: ErrBadDepth}
	}
	if !doc.ColorMode.valid() {
		return &FormatError{Err: ErrBadColorMode}
	}
	return nil
}

func writeHeader(w *writer, doc *Document) {
	w.WriteString(fileSignature)
	w.WriteUint16(uint16(doc.Version))
	w.WriteBytes(make([]byte, 6))
	w.WriteUint16(uint16(doc.ChannelCount))
	w.WriteUint32(uint32(doc.Height))
	w.WriteUint32(uint32(doc.Width))
	w.WriteUint16(uint16(doc.Depth))
	w.WriteUint16(uint16(doc.ColorMode))
}

// checkDepthSupport rejects the depth/color-mode combinations the
// codec does not process, before touching any channel bytes.
func checkDepthSupport(doc *Document) error {
	if doc.Depth == 32 && doc.ColorMode != ColorModeRGB && doc.ColorMode != ColorModeGrayscale {
		return &UnsupportedFeatureError{
			Feature: fmt.Sprintf("32-bit depth in %v color mode", doc.ColorMode),
		}
	}
	return nil
}
