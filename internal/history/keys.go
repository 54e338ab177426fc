package history

import "encoding/binary"

// Keyspace (byte-wise sortable):
//   - hist/m                      last assigned sequence
//   - hist/e/{seq_be8}            entries
//   - hist/last/{check}           seq of the newest entry for a check

var (
	metaKey    = []byte("hist/m")
	entryPfx   = []byte("hist/e/")
	lastPfx    = []byte("hist/last/")
	entryKeyLn = len("hist/e/") + 8
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func keyEntry(seq uint64) []byte {
	k := make([]byte, 0, entryKeyLn)
	k = append(k, entryPfx...)
	return appendBE8(k, seq)
}

func seqFromKey(k []byte) (uint64, bool) {
	if len(k) != entryKeyLn {
		return 0, false
	}
	return binary.BigEndian.Uint64(k[len(entryPfx):]), true
}

func keyLast(check string) []byte {
	k := make([]byte, 0, len(lastPfx)+len(check))
	k = append(k, lastPfx...)
	return append(k, check...)
}
