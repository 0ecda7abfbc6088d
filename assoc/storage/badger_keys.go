package storage

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/teranos/uniassoc/assoc"
)

// Key prefixes. Every variable-length component is terminated by 0x00, so a
// prefix built from fewer components is a prefix of every longer key.
const (
	prefixRecord  byte = 0x01 // id -> record
	prefixForward byte = 0x02 // src, dst, ns, typ, id
	prefixReverse byte = 0x03 // dst, ns, typ, order(16), id
	prefixUnique  byte = 0x04 // unique key -> id
	keySequence        = "\xffseq"
)

// storedAssociation is the value kept under prefixRecord.
type storedAssociation struct {
	Assoc  *assoc.Association `msgpack:"a"`
	Seq    uint64             `msgpack:"seq"`
	Unique bool               `msgpack:"u"`
}

func encodeStored(s *storedAssociation) ([]byte, error) {
	return msgpack.Marshal(s)
}

func decodeStored(data []byte) (*storedAssociation, error) {
	var s storedAssociation
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.Assoc != nil {
		s.Assoc.CreatedAt = s.Assoc.CreatedAt.UTC()
	}
	return &s, nil
}

func joinKey(prefix byte, parts ...string) []byte {
	n := 1
	for _, p := range parts {
		n += len(p) + 1
	}
	key := make([]byte, 0, n)
	key = append(key, prefix)
	for _, p := range parts {
		key = append(key, p...)
		key = append(key, 0x00)
	}
	return key
}

func recordKey(id string) []byte {
	return append([]byte{prefixRecord}, id...)
}

func forwardKey(a *assoc.Association) []byte {
	return append(joinKey(prefixForward, a.SourceID, a.DestinationID, a.Namespace, a.Type), a.ID...)
}

func forwardPrefix(parts ...string) []byte {
	return joinKey(prefixForward, parts...)
}

// orderSuffix sorts by creation time, then by insertion sequence.
func orderSuffix(createdAt time.Time, seq uint64) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], uint64(createdAt.UnixNano()))
	binary.BigEndian.PutUint64(buf[8:], seq)
	return buf
}

func reverseKey(a *assoc.Association, seq uint64) []byte {
	key := joinKey(prefixReverse, a.DestinationID, a.Namespace, a.Type)
	key = append(key, orderSuffix(a.CreatedAt, seq)...)
	return append(key, a.ID...)
}

func reversePrefix(parts ...string) []byte {
	return joinKey(prefixReverse, parts...)
}

func uniqueKey(a *assoc.Association) []byte {
	return append([]byte{prefixUnique}, a.UniqueKey()...)
}

// idFromForwardKey returns everything after the last separator.
func idFromForwardKey(key []byte) string {
	i := bytes.LastIndexByte(key, 0x00)
	if i < 0 {
		return ""
	}
	return string(key[i+1:])
}

// idFromReverseKey skips the fixed-width order suffix following the prefix.
func idFromReverseKey(key []byte, prefixLen int) string {
	offset := prefixLen + 16
	if offset > len(key) {
		return ""
	}
	return string(key[offset:])
}

// typeFromReverseKey reads the type component of a key under reversePrefix(dst, ns).
func typeFromReverseKey(key []byte, prefixLen int) string {
	if prefixLen >= len(key) {
		return ""
	}
	rest := key[prefixLen:]
	i := bytes.IndexByte(rest, 0x00)
	if i < 0 {
		return ""
	}
	return string(rest[:i])
}

func containsSeparator(values ...string) bool {
	for _, v := range values {
		if bytes.IndexByte([]byte(v), 0x00) >= 0 {
			return true
		}
	}
	return false
}
