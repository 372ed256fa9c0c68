package schema

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/zeebo/xxh3"
)

// Digest is an order-independent fingerprint of a set of rows.
//
// Each row is canonicalised for its table, hashed with xxh3 and the hashes
// are summed, so two digests match when both sides hold the same multiset of
// stored values regardless of the order the server returns them in.
type Digest struct {
	spec  TableSpec
	count int64
	sum   uint64
	buf   []byte
}

// NewDigest creates an empty digest for rows of spec.
func NewDigest(spec TableSpec) *Digest {
	return &Digest{spec: spec, buf: make([]byte, 0, 256)}
}

// Add folds one row into the digest.
func (d *Digest) Add(row Row) error {
	if len(row) != len(d.spec.Columns) {
		return fmt.Errorf("digest: row has %d values but table %s has %d columns",
			len(row), d.spec.Table, len(d.spec.Columns))
	}

	d.buf = d.buf[:0]
	for i, v := range row {
		d.buf = appendCanonical(d.buf, Canonical(d.spec.Columns[i], v))
	}

	d.sum += xxh3.Hash(d.buf)
	d.count++
	return nil
}

// Count returns the number of rows added.
func (d *Digest) Count() int64 { return d.count }

// Sum returns the hex encoded row count and hash sum.
func (d *Digest) Sum() string {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], uint64(d.count))
	binary.BigEndian.PutUint64(b[8:], d.sum)
	return hex.EncodeToString(b[:])
}

// Equal reports whether two digests cover the same rows.
func (d *Digest) Equal(other *Digest) bool {
	return d.count == other.count && d.sum == other.sum
}

func appendCanonical(buf []byte, v Value) []byte {
	buf = append(buf, byte(v.kind))

	switch v.kind {
	case KindNull:
	case KindBool:
		if v.AsBool() {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case KindUint8, KindInt16, KindInt32, KindInt64:
		buf = binary.BigEndian.AppendUint64(buf, uint64(v.AsInt64()))
	case KindFloat32, KindFloat64:
		buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(v.AsFloat64()))
	case KindDecimal:
		buf = appendBytes(buf, []byte(v.AsDecimal().String()))
	case KindString, KindAnsiString:
		buf = appendBytes(buf, []byte(v.AsString()))
	case KindBytes:
		buf = appendBytes(buf, v.AsBytes())
	case KindUUID:
		u := v.AsUUID()
		buf = append(buf, u[:]...)
	case KindDate:
		buf = appendBytes(buf, []byte(v.AsDate().String()))
	case KindTime:
		buf = appendBytes(buf, []byte(v.AsTime().String()))
	case KindDateTime:
		buf = appendBytes(buf, []byte(v.AsDateTime().String()))
	case KindDateTimeOffset:
		t := v.AsTimeOffset()
		_, offset := t.Zone()
		buf = binary.BigEndian.AppendUint64(buf, uint64(t.UnixNano()))
		buf = binary.BigEndian.AppendUint32(buf, uint32(int32(offset)))
	}

	return buf
}

func appendBytes(buf, b []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}
