package psd

import (
	"errors"
	"fmt"
)

var (
	ErrBadSignature      = errors.New("psd: bad file signature")
	ErrBadVersion        = errors.New("psd: unsupported version")
	ErrTruncatedData     = errors.New("psd: truncated data")
	ErrCorruptData       = errors.New("psd: corrupt compressed data")
	ErrBadChannelCount   = errors.New("psd: channel count out of range")
	ErrBadDepth          = errors.New("psd: unsupported bit depth")
	ErrBadColorMode      = errors.New("psd: unknown color mode")
	ErrImageTooLarge     = errors.New("psd: image dimensions exceed limit")
	ErrBadBlendKey       = errors.New("psd: blend mode key must be exactly 4 bytes")
	ErrCompositeMismatch = errors.New("psd: composite channel count does not match header")
	ErrBadResourceBlock  = errors.New("psd: malformed image resource block")
)

// FormatError reports a structural problem in the file. It is fatal:
// parsing stops at the offset it carries.
type FormatError struct {
	Offset int64
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%v (at offset %d)", e.Err, e.Offset)
}

func (e *FormatError) Unwrap() error { return e.Err }

// UnsupportedFeatureError reports a depth/compression/color-mode
// combination the codec does not handle. It is raised before any
// payload bytes are processed, so a caller may scope it to a single
// channel (see LoadOptions.SkipUnsupportedChannels).
type UnsupportedFeatureError struct {
	Feature string
}

func (e *UnsupportedFeatureError) Error() string {
	return "psd: unsupported feature: " + e.Feature
}

// ResourceBudgetError reports that the worst-case decoded size of a
// document exceeds the caller-supplied memory budget. It is raised
// before any channel buffer is allocated.
type ResourceBudgetError struct {
	Required int64
	Budget   int64
}

func (e *ResourceBudgetError) Error() string {
	return fmt.Sprintf("psd: decoded size %d exceeds memory budget %d", e.Required, e.Budget)
}
