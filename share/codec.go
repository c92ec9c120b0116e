package share

import (
	"encoding/binary"
	"sort"

	"github.com/pkg/errors"
)

var (
	// ErrTruncated is returned when a payload or a message ends in the
	// middle of a field.
	ErrTruncated = errors.New("truncated data")
	// ErrNullLiteral is returned when a serialized clause contains 0.
	ErrNullLiteral = errors.New("null literal in clause")
	// ErrInvalidLiteral is returned when a serialized clause contains a
	// value with no variable, such as math.MinInt32.
	ErrInvalidLiteral = errors.New("invalid literal in clause")
)

var order = binary.LittleEndian

// AppendClause appends the serialized form of c to buf: its number of
// literals followed by each literal as a signed DIMACS integer.
func AppendClause(buf []byte, c *Clause) []byte {
	buf = order.AppendUint32(buf, uint32(c.Len()))
	for _, l := range c.lits {
		buf = order.AppendUint32(buf, uint32(l.Int()))
	}
	return buf
}

// EncodeClauses returns a payload holding the given clauses back to back.
func EncodeClauses(clauses []*Clause) []byte {
	var buf []byte
	for _, c := range clauses {
		buf = AppendClause(buf, c)
	}
	return buf
}

// DecodeClause reads the clause starting at offset o of payload. It returns
// the clause and the offset of the next one. A clause containing 0 or
// another invalid literal is read up to its end and reported with
// ErrNullLiteral or ErrInvalidLiteral, so that the next clause can still be
// read.
func DecodeClause(payload []byte, o int) (*Clause, int, error) {
	if len(payload)-o < 4 {
		return nil, len(payload), ErrTruncated
	}
	n := int(order.Uint32(payload[o:]))
	o += 4
	if n > (len(payload)-o)/4 {
		return nil, len(payload), errors.Wrapf(ErrTruncated, "clause of %d literals", n)
	}
	lits := make([]Lit, 0, n)
	var err error
	for i := 0; i < n; i++ {
		v := int32(order.Uint32(payload[o:]))
		o += 4
		switch {
		case v == 0:
			err = ErrNullLiteral
			continue
		case !ValidLit(v):
			err = errors.Wrapf(ErrInvalidLiteral, "%d", v)
			continue
		}
		lits = append(lits, IntToLit(v))
	}
	if err != nil {
		return nil, o, err
	}
	return NewClause(lits), o, nil
}

// DecodeClauses decodes every clause of a payload. Decoding stops at the
// first truncated clause; the clauses read so far are returned along with
// the error.
func DecodeClauses(payload []byte) ([]*Clause, error) {
	var res []*Clause
	for o := 0; o < len(payload); {
		c, next, err := DecodeClause(payload, o)
		o = next
		switch {
		case errors.Is(err, ErrTruncated):
			return res, err
		case err != nil:
			continue
		}
		res = append(res, c)
	}
	return res, nil
}

// A Message is what solver instances publish: headers describing the
// sender, and a payload of clauses.
type Message struct {
	Header  map[string]string
	Payload []byte
}

func appendString(buf []byte, s string) []byte {
	buf = order.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func readString(data []byte, o int) (string, int, error) {
	if len(data)-o < 4 {
		return "", o, ErrTruncated
	}
	n := int(order.Uint32(data[o:]))
	o += 4
	if n > len(data)-o {
		return "", o, ErrTruncated
	}
	return string(data[o : o+n]), o + n, nil
}

// Dump returns the serialized form of m: the number of headers, each key
// and value prefixed by its length, then the payload.
func (m *Message) Dump() []byte {
	buf := order.AppendUint32(nil, uint32(len(m.Header)))
	for _, k := range sortedKeys(m.Header) {
		buf = appendString(buf, k)
		buf = appendString(buf, m.Header[k])
	}
	return append(buf, m.Payload...)
}

// Load reads a message serialized by Dump.
func (m *Message) Load(data []byte) error {
	if len(data) < 4 {
		return errors.Wrap(ErrTruncated, "message header count")
	}
	n := int(order.Uint32(data))
	o := 4
	m.Header = make(map[string]string, n)
	for i := 0; i < n; i++ {
		var (
			k, v string
			err  error
		)
		if k, o, err = readString(data, o); err != nil {
			return errors.Wrapf(err, "key of header %d", i)
		}
		if v, o, err = readString(data, o); err != nil {
			return errors.Wrapf(err, "value of header %q", k)
		}
		m.Header[k] = v
	}
	m.Payload = append([]byte(nil), data[o:]...)
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
