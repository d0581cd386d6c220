package cart

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"math"
	"sort"
)

// Anonymous carts travel as an opaque client-held token. The payload is a
// versioned length-prefixed map rather than an arbitrary serialized object, so
// decoding client-supplied bytes can never instantiate anything but ints and
// bools:
//
//	byte     version (0x01)
//	uvarint  entry count
//	per entry: uvarint sku_id, uvarint quantity, byte selected (0|1)
//
// wrapped in unpadded base64url for cookie transport.

const tokenVersion = 0x01

// Decoded values are bounded: a sku id must fit int64 and a quantity stays far
// below it, so a crafted cookie can never smuggle a negative line into the
// store.
const maxTokenQty = math.MaxInt32

var ErrBadToken = errors.New("malformed cart token")

func EncodeToken(m Mapping) string {
	ids := make([]int64, 0, len(m))
	for id, l := range m {
		if l.Qty <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	buf := []byte{tokenVersion}
	buf = binary.AppendUvarint(buf, uint64(len(ids)))
	for _, id := range ids {
		l := m[id]
		buf = binary.AppendUvarint(buf, uint64(id))
		buf = binary.AppendUvarint(buf, uint64(l.Qty))
		if l.Selected {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

func DecodeToken(s string) (Mapping, error) {
	if s == "" {
		return Mapping{}, nil
	}
	buf, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrBadToken
	}
	if len(buf) < 2 || buf[0] != tokenVersion {
		return nil, ErrBadToken
	}
	rest := buf[1:]

	count, n := binary.Uvarint(rest)
	if n <= 0 {
		return nil, ErrBadToken
	}
	rest = rest[n:]

	out := make(Mapping, count)
	for i := uint64(0); i < count; i++ {
		id, n := binary.Uvarint(rest)
		if n <= 0 || id > math.MaxInt64 {
			return nil, ErrBadToken
		}
		rest = rest[n:]

		qty, n := binary.Uvarint(rest)
		if n <= 0 || qty == 0 || qty > maxTokenQty {
			return nil, ErrBadToken
		}
		rest = rest[n:]

		if len(rest) < 1 || rest[0] > 1 {
			return nil, ErrBadToken
		}
		out[int64(id)] = Line{Qty: int(qty), Selected: rest[0] == 1}
		rest = rest[1:]
	}
	if len(rest) != 0 {
		return nil, ErrBadToken
	}
	return out, nil
}
