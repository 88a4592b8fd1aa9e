package plugin

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/dshills/overlay/internal/logging"
)

// Placeholder returns the image used when a plugin has no usable icon.
func Placeholder() image.Image {
	return image.NewNRGBA(image.Rect(0, 0, 1, 1))
}

// Icon returns the descriptor's icon. It never fails: lookup problems are
// logged as warnings and the placeholder is returned instead.
func Icon(d Descriptor, log *logging.Logger) image.Image {
	if log == nil {
		log = logging.NewNop()
	}

	switch d := d.(type) {
	case *Normal:
		img, err := decodeIcon(d.unit.archive)
		if err != nil {
			log.Warn("plugin icon unavailable",
				zap.String("plugin", d.DisplayName()),
				zap.Error(err))
			return Placeholder()
		}
		return img
	case *Bad:
		return Placeholder()
	default:
		return Placeholder()
	}
}

// decodeIcon reads and decodes icon.png from the archive.
func decodeIcon(a *Archive) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("decoding icon: %v", r)
		}
	}()

	data, err := a.ReadFile(EntryIcon)
	if err != nil {
		return nil, err
	}

	if mt := mimetype.Detect(data); !mt.Is("image/png") {
		return nil, fmt.Errorf("icon is %s, want image/png", mt.String())
	}

	return png.Decode(bytes.NewReader(data))
}
