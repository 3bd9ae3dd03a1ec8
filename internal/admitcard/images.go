package admitcard

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"net/http"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedImage is returned when an upload is not a decodable raster image.
var ErrUnsupportedImage = errors.New("unsupported image format")

const (
	photoMaxW = 560
	photoMaxH = 660
	sigMaxW   = 800
	sigMaxH   = 240
	previewPx = 240
)

func decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrUnsupportedImage
	}
	ct := http.DetectContentType(data)
	switch ct {
	case "image/jpeg", "image/png", "image/gif", "image/webp", "image/bmp":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, ct)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return img, nil
}

// normalizePhotograph re-encodes an upload as a bounded JPEG for the photo box.
func normalizePhotograph(data []byte) ([]byte, error) {
	img, err := decode(data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = imaging.Encode(&buf, imaging.Fit(img, photoMaxW, photoMaxH, imaging.Lanczos), imaging.JPEG, imaging.JPEGQuality(90))
	return buf.Bytes(), err
}

// normalizeSignature keeps transparency, so signatures are re-encoded as PNG.
func normalizeSignature(data []byte) ([]byte, error) {
	img, err := decode(data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = imaging.Encode(&buf, imaging.Fit(img, sigMaxW, sigMaxH, imaging.Lanczos), imaging.PNG)
	return buf.Bytes(), err
}

// Preview returns a small JPEG data URL of an uploaded image, for showing back to the
// student before submission.
func Preview(data []byte) (string, error) {
	img, err := decode(data)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Fit(img, previewPx, previewPx, imaging.Box), imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
