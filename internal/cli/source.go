package cli

import (
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/fpang/thumbnailer/internal/fetch"
	"github.com/fpang/thumbnailer/internal/thumbnail"
)

// remoteSchemes are the URL schemes handed to the fetcher.
var remoteSchemes = map[string]bool{"http": true, "https": true, "s3": true}

// IsRemote reports whether arg is a URL the fetcher understands.
func IsRemote(arg string) bool {
	scheme, ok := fetch.Scheme(arg)
	return ok && remoteSchemes[scheme]
}

// ResolveSource turns a command-line argument into a thumbnail source:
// "-" reads stdin, http(s) and s3 URLs go through f, anything else is a path.
func ResolveSource(arg string, stdin io.Reader, f fetch.Fetcher) thumbnail.Source {
	switch {
	case arg == "-":
		return thumbnail.ReaderSource{R: stdin}
	case IsRemote(arg):
		return thumbnail.URLSource{URL: arg, Fetcher: f}
	}

	if abs, err := filepath.Abs(arg); err == nil && arg != "" {
		arg = abs
	}
	return thumbnail.FileSource(arg)
}

// DefaultOutputPath derives "<name>_thumb<ext>" next to a file source, or in
// the current directory for stdin and URL sources.
func DefaultOutputPath(arg string, format thumbnail.Format) string {
	base := "thumbnail"
	dir := ""
	switch {
	case arg == "-" || arg == "":
	case IsRemote(arg):
		if name := remoteName(arg); name != "" {
			base = strings.TrimSuffix(name, filepath.Ext(name)) + "_thumb"
		}
	default:
		dir = filepath.Dir(arg)
		name := filepath.Base(arg)
		base = strings.TrimSuffix(name, filepath.Ext(name)) + "_thumb"
	}
	return filepath.Join(dir, base+format.Extension())
}

// remoteName is the last path element of a remote source: the object key's
// base name for s3, the URL path's base name otherwise.
func remoteName(arg string) string {
	var p string
	if _, key, err := fetch.ParseS3URL(arg); err == nil {
		p = key
	} else if u, err := url.Parse(arg); err == nil {
		p = u.Path
	}
	name := path.Base(p)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
