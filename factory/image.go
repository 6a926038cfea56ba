package factory

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// MaxImageBytes is the decoded size limit for receipts and product images.
const MaxImageBytes = 50 * 1024

var (
	ErrImageTooLarge    = errors.New("image exceeds 50KB")
	ErrUnsupportedImage = errors.New("only JPG, JPEG, PNG or WebP images are accepted")
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Image is a decoded base64 upload.
type Image struct {
	ContentType string
	Data        []byte
}

// DecodeImage accepts either a data URL ("data:image/png;base64,...") or bare
// base64 and checks the content type and decoded size. The declared type of
// a data URL must agree with the sniffed bytes.
func DecodeImage(encoded string) (Image, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return Image{}, fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}

	declared := ""
	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		meta, body, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return Image{}, fmt.Errorf("%w: malformed data URL", ErrUnsupportedImage)
		}
		declared = strings.TrimSuffix(meta, ";base64")
		if declared == "image/jpg" {
			declared = "image/jpeg"
		}
		encoded = body
	}

	// Reject before decoding anything absurdly large.
	if base64.StdEncoding.DecodedLen(len(encoded)) > MaxImageBytes+2 {
		return Image{}, ErrImageTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if len(data) > MaxImageBytes {
		return Image{}, ErrImageTooLarge
	}

	sniffed := http.DetectContentType(data)
	if !allowedImageTypes[sniffed] {
		return Image{}, fmt.Errorf("%w: got %s", ErrUnsupportedImage, sniffed)
	}
	if declared != "" && declared != sniffed {
		return Image{}, fmt.Errorf("%w: declared %s but content is %s", ErrUnsupportedImage, declared, sniffed)
	}
	return Image{ContentType: sniffed, Data: data}, nil
}
