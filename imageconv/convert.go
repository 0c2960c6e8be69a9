package imageconv

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

var ErrUnknownFormat = errors.New("unknown output format")

type Converted struct {
	Data     []byte
	Format   string
	MimeType string
	Ext      string
}

// Convert re-encodes image data into format ("webp", "png" or "jpeg").
// Quality (1-100) applies to the lossy formats.
func Convert(data []byte, format string, quality int) (*Converted, error) {
	switch format {
	case "webp":
		out, err := ToWEBP(data, quality)
		if err != nil {
			return nil, err
		}
		return &Converted{Data: out, Format: format, MimeType: "image/webp", Ext: "webp"}, nil
	case "jpeg":
		out, err := ToJPG(data, quality)
		if err != nil {
			return nil, err
		}
		return &Converted{Data: out, Format: format, MimeType: "image/jpeg", Ext: "jpg"}, nil
	case "png":
		out, err := ToPNG(data)
		if err != nil {
			return nil, err
		}
		return &Converted{Data: out, Format: format, MimeType: "image/png", Ext: "png"}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func ToJPG(data []byte, quality int) ([]byte, error) {
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: clamp(quality)}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func ToWEBP(data []byte, quality int) ([]byte, error) {
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}

	opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(clamp(quality)))
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := webp.Encode(&out, img, opts); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// ToPNG returns PNG input untouched and re-encodes anything else
func ToPNG(data []byte) ([]byte, error) {
	if isPNG(data) {
		return data, nil
	}
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func decodeImage(data []byte) (image.Image, error) {
	if isWEBP(data) {
		return webp.Decode(bytes.NewReader(data), &decoder.Options{})
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

func isWEBP(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	return string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}

func isPNG(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	return bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
}

func clamp(quality int) int {
	return max(1, min(100, quality))
}
