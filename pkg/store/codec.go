package store

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"fmsgo/pkg/geo"
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))

	bufferPool = sync.Pool{
		New: func() interface{} {
			return new(bytes.Buffer)
		},
	}
)

// encodeTrajectory packs points as msgpack compressed with zstd.
func encodeTrajectory(points []geo.Point) ([]byte, error) {
	if len(points) == 0 {
		return nil, nil
	}

	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	if err := msgpack.NewEncoder(buf).Encode(points); err != nil {
		return nil, fmt.Errorf("failed to encode trajectory: %w", err)
	}
	return zstdEncoder.EncodeAll(buf.Bytes(), nil), nil
}

func decodeTrajectory(data []byte) ([]geo.Point, error) {
	if len(data) == 0 {
		return nil, nil
	}

	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress trajectory: %w", err)
	}

	var points []geo.Point
	if err := msgpack.NewDecoder(bytes.NewReader(raw)).Decode(&points); err != nil {
		return nil, fmt.Errorf("failed to decode trajectory: %w", err)
	}
	return points, nil
}
