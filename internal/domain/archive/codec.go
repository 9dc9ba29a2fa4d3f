package archive

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// compressThreshold is the related-data size above which zstd kicks in.
const compressThreshold = 10 * 1024

// Codec serialises tombstone payloads. Snapshots are canonical JSON so
// identical state always produces identical bytes; related data is
// zstd-compressed past the threshold.
type Codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCodec creates a payload codec.
func NewCodec() (*Codec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Codec{encoder: encoder, decoder: decoder}, nil
}

// Marshal renders v as canonical JSON: object keys sorted, no
// insignificant whitespace.
func (c *Codec) Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	// Round-trip through an untyped value; map keys marshal sorted.
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("canonicalize snapshot: %w", err)
	}
	out, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("canonicalize snapshot: %w", err)
	}
	return out, nil
}

// Unmarshal decodes a snapshot into v.
func (c *Codec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Pack serialises related data, compressing when it exceeds the
// threshold.
func (c *Codec) Pack(v any) ([]byte, CompressionAlgo, error) {
	if v == nil {
		return nil, CompressionNone, nil
	}
	raw, err := c.Marshal(v)
	if err != nil {
		return nil, CompressionNone, err
	}
	if len(raw) <= compressThreshold {
		return raw, CompressionNone, nil
	}
	return c.encoder.EncodeAll(raw, nil), CompressionZstd, nil
}

// Unpack decodes related data packed by Pack.
func (c *Codec) Unpack(data []byte, algo CompressionAlgo, v any) error {
	if len(data) == 0 {
		return nil
	}
	raw := data
	if algo == CompressionZstd {
		decoded, err := c.decoder.DecodeAll(data, nil)
		if err != nil {
			return fmt.Errorf("decompress related data: %w", err)
		}
		raw = decoded
	}
	return json.Unmarshal(raw, v)
}
