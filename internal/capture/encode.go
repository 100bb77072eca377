package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
)

// ErrEncode marks a frame that could not be packaged for delivery.
// One bad frame is skipped and logged, never fatal to the batch.
var ErrEncode = errors.New("failed to encode frame")

// Payload is a frame packaged for the outbound channels: PNG bytes
// plus the metadata the captions and batch guards need.
type Payload struct {
	Data     []byte
	Sequence int
	Width    int
	Height   int
}

// Encode packages a raw frame as a PNG payload. The transformation is
// deterministic: the same pixels always produce the same bytes, so a
// frame can be encoded once and reused for storage, archival and
// analysis.
func Encode(raw image.Image, sequence int) (Payload, error) {
	if raw == nil {
		return Payload{}, fmt.Errorf("frame %d has no pixel data: %w", sequence, ErrEncode)
	}
	bounds := raw.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return Payload{}, fmt.Errorf("frame %d has empty bounds %v: %w", sequence, bounds, ErrEncode)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, raw); err != nil {
		return Payload{}, fmt.Errorf("frame %d: %v: %w", sequence, err, ErrEncode)
	}

	return Payload{
		Data:     buf.Bytes(),
		Sequence: sequence,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}, nil
}
