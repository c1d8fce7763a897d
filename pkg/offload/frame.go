package offload

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-frlayout/pkg/pools"
)

// framePrefix is the pub/sub topic every snapshot frame carries.
const framePrefix = "POS:"

// maxFrameBytes bounds the decompressed size of a received frame.
const maxFrameBytes = 64 << 20

// EncodeFrame serializes s for the wire:
//
//	"POS:" | crc32 (big endian, of the compressed payload) | snappy(json(s))
func EncodeFrame(s Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	scratch := pools.GetBytesSized(snappy.MaxEncodedLen(len(data)))
	defer pools.PutBytes(scratch)
	payload := snappy.Encode(scratch, data)

	msg := make([]byte, 0, len(framePrefix)+4+len(payload))
	msg = append(msg, framePrefix...)
	msg = binary.BigEndian.AppendUint32(msg, crc32.ChecksumIEEE(payload))
	msg = append(msg, payload...)
	return msg, nil
}

// DecodeFrame is the inverse of EncodeFrame.
func DecodeFrame(msg []byte) (Snapshot, error) {
	if !bytes.HasPrefix(msg, []byte(framePrefix)) || len(msg) < len(framePrefix)+4 {
		return Snapshot{}, ErrBadFrame
	}
	msg = msg[len(framePrefix):]
	sum := binary.BigEndian.Uint32(msg)
	payload := msg[4:]
	if crc32.ChecksumIEEE(payload) != sum {
		return Snapshot{}, ErrChecksum
	}

	n, err := snappy.DecodedLen(payload)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	if n > maxFrameBytes {
		return Snapshot{}, fmt.Errorf("%w: %d bytes decompressed", ErrBadFrame, n)
	}
	scratch := pools.GetBytesSized(n)
	defer pools.PutBytes(scratch)
	data, err := snappy.Decode(scratch, payload)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	return s, nil
}
