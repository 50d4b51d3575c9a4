package thumbnail

import (
	"fmt"
	"strings"
)

// Dimensions is the pixel extent of a decoded image.
type Dimensions struct {
	Width  int
	Height int
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Orientation classifies an image by the relation of its width and height.
type Orientation int

const (
	OrientationSquare Orientation = iota
	OrientationLandscape
	OrientationPortrait
)

func (o Orientation) String() string {
	switch o {
	case OrientationLandscape:
		return "landscape"
	case OrientationPortrait:
		return "portrait"
	default:
		return "square"
	}
}

// OrientationOf derives the orientation from the actual pixel extent.
func OrientationOf(d Dimensions) Orientation {
	switch {
	case d.Height > d.Width:
		return OrientationPortrait
	case d.Width > d.Height:
		return OrientationLandscape
	default:
		return OrientationSquare
	}
}

// Ratio forces the constrained axis regardless of the image's shape.
// RatioAuto derives it from the pixel extent.
type Ratio int

const (
	RatioAuto Ratio = iota
	RatioLandscape
	RatioPortrait
)

func (r Ratio) String() string {
	switch r {
	case RatioLandscape:
		return "landscape"
	case RatioPortrait:
		return "portrait"
	default:
		return "auto"
	}
}

// ParseRatio parses "auto", "landscape" or "portrait". The empty string is auto.
func ParseRatio(s string) (Ratio, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return RatioAuto, nil
	case "landscape":
		return RatioLandscape, nil
	case "portrait":
		return RatioPortrait, nil
	}
	return RatioAuto, fmt.Errorf("%w: unknown ratio %q (want auto, landscape or portrait)", ErrInvalidArgument, s)
}

// NoShrinkPolicy decides what happens when the target size is not smaller
// than the source along the constrained axis.
type NoShrinkPolicy int

const (
	// PassThrough keeps the source dimensions unchanged.
	PassThrough NoShrinkPolicy = iota
	// Reject fails with ErrNoShrinkNeeded.
	Reject
)

func (p NoShrinkPolicy) String() string {
	if p == Reject {
		return "reject"
	}
	return "pass-through"
}

// ParseNoShrinkPolicy parses "pass-through" or "reject".
func ParseNoShrinkPolicy(s string) (NoShrinkPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pass-through", "passthrough":
		return PassThrough, nil
	case "reject":
		return Reject, nil
	}
	return PassThrough, fmt.Errorf("%w: unknown no-shrink policy %q (want pass-through or reject)", ErrInvalidArgument, s)
}

// Outcome is the result of resolving thumbnail dimensions.
type Outcome struct {
	Dimensions  Dimensions
	Orientation Orientation
	// PassThrough is set when the source dimensions were returned unchanged.
	PassThrough bool
}

// Resolver computes thumbnail dimensions that preserve the source's aspect ratio.
// The zero value derives orientation from the image and passes through images
// that are already small enough.
type Resolver struct {
	Ratio      Ratio
	OnNoShrink NoShrinkPolicy
}

// Orientation returns the branch Resolve takes for src.
func (r Resolver) Orientation(src Dimensions) Orientation {
	switch r.Ratio {
	case RatioLandscape:
		return OrientationLandscape
	case RatioPortrait:
		return OrientationPortrait
	}
	return OrientationOf(src)
}

// Resolve pins the constrained axis of src to targetSize and scales the other
// axis proportionally, truncating toward zero.
func (r Resolver) Resolve(src Dimensions, targetSize int) (Outcome, error) {
	if src.Width <= 0 || src.Height <= 0 {
		return Outcome{}, fmt.Errorf("%w: source dimensions must be positive, got %s", ErrInvalidArgument, src)
	}
	if targetSize <= 0 {
		return Outcome{}, fmt.Errorf("%w: target size must be positive, got %d", ErrInvalidArgument, targetSize)
	}

	orientation := r.Orientation(src)

	var out Dimensions
	switch orientation {
	case OrientationPortrait:
		if src.Height <= targetSize {
			return r.noShrink(src, orientation, targetSize)
		}
		out = Dimensions{Width: scaleFloor(src.Width, targetSize, src.Height), Height: targetSize}
	case OrientationLandscape:
		if src.Width <= targetSize {
			return r.noShrink(src, orientation, targetSize)
		}
		out = Dimensions{Width: targetSize, Height: scaleFloor(src.Height, targetSize, src.Width)}
	default:
		if src.Width <= targetSize {
			return r.noShrink(src, orientation, targetSize)
		}
		out = Dimensions{Width: targetSize, Height: targetSize}
	}

	// Extreme aspect ratios can truncate the free axis to zero.
	if out.Width < 1 {
		out.Width = 1
	}
	if out.Height < 1 {
		out.Height = 1
	}

	return Outcome{Dimensions: out, Orientation: orientation}, nil
}

// scaleFloor returns floor(free * target / constrained) in integer math so
// exact quotients are never truncated one pixel short.
func scaleFloor(free, target, constrained int) int {
	return int(int64(free) * int64(target) / int64(constrained))
}

func (r Resolver) noShrink(src Dimensions, orientation Orientation, targetSize int) (Outcome, error) {
	if r.OnNoShrink == Reject {
		return Outcome{}, fmt.Errorf("%w: %s image %s, target %d", ErrNoShrinkNeeded, orientation, src, targetSize)
	}
	return Outcome{Dimensions: src, Orientation: orientation, PassThrough: true}, nil
}
