package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fpang/thumbnailer/internal/thumbnail"
)

// FormatBytes renders a byte count as B, KB or MB.
func FormatBytes(n int) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// PrintFormats writes a table of output formats and whether each can be encoded.
func PrintFormats(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FORMAT\tEXTENSION\tMIME\tENCODABLE")
	for _, f := range thumbnail.AllFormats() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%v\n", f, f.Extension(), f.MIMEType(), f.Encodable())
	}
	tw.Flush()
}

// PrintInfo writes a human-readable summary of an inspected image.
func PrintInfo(w io.Writer, source string, info *thumbnail.Info) {
	fmt.Fprintf(w, "Source:      %s\n", source)
	fmt.Fprintf(w, "Type:        %s\n", info.MIMEType)
	fmt.Fprintf(w, "Size:        %s\n", FormatBytes(info.Size))
	fmt.Fprintf(w, "Dimensions:  %s\n", info.Dimensions)
	if info.RawDimensions != (thumbnail.Dimensions{}) && info.RawDimensions != info.Dimensions {
		fmt.Fprintf(w, "Stored:      %s (before EXIF rotation)\n", info.RawDimensions)
	}
	fmt.Fprintf(w, "Orientation: %s\n", info.Orientation)

	meta := info.Metadata
	if meta == nil {
		fmt.Fprintln(w, "EXIF:        not available")
		return
	}
	if meta.CameraMake != "" || meta.CameraModel != "" {
		fmt.Fprintf(w, "Camera:      %s %s\n", meta.CameraMake, meta.CameraModel)
	}
	if meta.HasDate {
		fmt.Fprintf(w, "Taken:       %s\n", meta.DateTaken.Format("Monday, January 2, 2006 3:04 PM"))
	}
	if meta.HasGPS {
		fmt.Fprintf(w, "GPS:         %.6f, %.6f\n", meta.Latitude, meta.Longitude)
	}
}
