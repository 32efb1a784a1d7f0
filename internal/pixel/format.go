package pixel

import "fmt"

// Format identifies the packed pixel layout of a raw frame. Values are the
// FourCC codes used on the wire by the NDI SDK.
type Format uint32

const (
	// FormatUYVY is packed 4:2:2 YUV: two luma samples share one chroma
	// pair per 4-byte group (U Y0 V Y1).
	FormatUYVY Format = 0x59565955
	// FormatBGRA is 8-bit blue/green/red/alpha.
	FormatBGRA Format = 0x41524742
	// FormatBGRX is 8-bit blue/green/red with an unused padding byte.
	FormatBGRX Format = 0x58524742
	// FormatRGBA is 8-bit red/green/blue/alpha.
	FormatRGBA Format = 0x41424752
	// FormatRGBX is 8-bit red/green/blue with an unused padding byte.
	FormatRGBX Format = 0x58424752
)

// BytesPerPixel returns the packed size of one pixel, or 0 for unknown formats.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatUYVY:
		return 2
	case FormatBGRA, FormatBGRX, FormatRGBA, FormatRGBX:
		return 4
	default:
		return 0
	}
}

func (f Format) String() string {
	switch f {
	case FormatUYVY:
		return "UYVY"
	case FormatBGRA:
		return "BGRA"
	case FormatBGRX:
		return "BGRX"
	case FormatRGBA:
		return "RGBA"
	case FormatRGBX:
		return "RGBX"
	default:
		return fmt.Sprintf("0x%08X", uint32(f))
	}
}
