package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

// ErrNoSource is returned when the user supplies no image interactively.
var ErrNoSource = errors.New("no source image selected")

// imagePatterns are the extensions offered by the file picker.
var imagePatterns = []string{"*.jpg", "*.jpeg", "*.png", "*.gif", "*.bmp", "*.tif", "*.tiff", "*.webp"}

// PromptForSource asks for an image path or URL on in and reads one line.
func PromptForSource(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Image path or URL: ")

	reader := bufio.NewReader(in)
	input, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrNoSource
	}
	return input, nil
}

// PickImageFile opens a native file dialog filtered to image files.
// A cancelled dialog returns ErrNoSource.
func PickImageFile() (string, error) {
	selected, err := zenity.SelectFile(
		zenity.Title("Select an image"),
		zenity.FileFilters{
			{Name: "Images", Patterns: imagePatterns},
		},
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return "", ErrNoSource
		}
		return "", fmt.Errorf("file picker failed: %w", err)
	}

	log.Debug().Str("path", selected).Msg("Image picked via native dialog")
	return selected, nil
}
