package history

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"hash/crc32"
)

// Record encoding: varint headerLen | header | payload | crc32c(header|payload)
//
// The header starts with the run's start time (ms, big-endian int64) so age
// based trims never decode JSON; the JSON-encoded header fields follow.

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

var errCorrupt = errors.New("history: corrupt record")

func encodeRecord(header, payload []byte) []byte {
	out := make([]byte, 0, binary.MaxVarintLen64+len(header)+len(payload)+4)
	out = binary.AppendUvarint(out, uint64(len(header)))
	out = append(out, header...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	return binary.BigEndian.AppendUint32(out, crc)
}

func decodeRecord(b []byte) (header, payload []byte, err error) {
	if len(b) < 1+4 {
		return nil, nil, errCorrupt
	}
	hlen, n := binary.Uvarint(b)
	if n <= 0 || n+int(hlen)+4 > len(b) {
		return nil, nil, errCorrupt
	}
	header = b[n : n+int(hlen)]
	payload = b[n+int(hlen) : len(b)-4]
	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != binary.BigEndian.Uint32(b[len(b)-4:]) {
		return nil, nil, errCorrupt
	}
	return append([]byte(nil), header...), append([]byte(nil), payload...), nil
}

// header is the JSON part of an entry header.
type header struct {
	ID         string `json:"id"`
	Check      string `json:"check"`
	Target     string `json:"target,omitempty"`
	OK         bool   `json:"ok"`
	Summary    string `json:"summary,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

func encodeHeader(e Entry) ([]byte, error) {
	body, err := json.Marshal(header{
		ID:         e.ID.String(),
		Check:      e.Check,
		Target:     e.Target,
		OK:         e.OK,
		Summary:    e.Summary,
		DurationMs: e.Duration.Milliseconds(),
	})
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 8+len(body))
	out = binary.BigEndian.AppendUint64(out, uint64(e.StartedAt.UnixMilli()))
	return append(out, body...), nil
}

// startedMs reads the leading timestamp of an encoded header.
func startedMs(h []byte) (int64, bool) {
	if len(h) < 8 {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(h[:8])), true
}
