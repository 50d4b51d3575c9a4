package thumbnail

import (
	"fmt"
	"image"
	"strings"

	"golang.org/x/image/draw"
)

// Kernel selects the interpolation used when scaling.
type Kernel int

const (
	// KernelCatmullRom is bicubic interpolation, the highest quality option.
	KernelCatmullRom Kernel = iota
	KernelBiLinear
	KernelApproxBiLinear
	KernelNearestNeighbor
)

func (k Kernel) String() string {
	switch k {
	case KernelBiLinear:
		return "bilinear"
	case KernelApproxBiLinear:
		return "approx-bilinear"
	case KernelNearestNeighbor:
		return "nearest"
	default:
		return "catmull-rom"
	}
}

// ParseKernel parses a kernel name. The empty string selects Catmull-Rom.
func ParseKernel(s string) (Kernel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "catmull-rom", "catmullrom", "bicubic":
		return KernelCatmullRom, nil
	case "bilinear":
		return KernelBiLinear, nil
	case "approx-bilinear":
		return KernelApproxBiLinear, nil
	case "nearest":
		return KernelNearestNeighbor, nil
	}
	return KernelCatmullRom, fmt.Errorf("%w: unknown kernel %q", ErrInvalidArgument, s)
}

func (k Kernel) interpolator() draw.Interpolator {
	switch k {
	case KernelBiLinear:
		return draw.BiLinear
	case KernelApproxBiLinear:
		return draw.ApproxBiLinear
	case KernelNearestNeighbor:
		return draw.NearestNeighbor
	default:
		return draw.CatmullRom
	}
}

// Resize scales src into a new RGBA image of exactly size.
func Resize(src image.Image, size Dimensions, k Kernel) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	k.interpolator().Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
