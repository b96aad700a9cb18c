// Package sortkey implements the totally ordered, arbitrary precision keys
// that identify posts within a channel.
package sortkey

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// PaddedWidth is the width of the zero padded form of a key. It fits any
// unsigned 128 bit value.
const PaddedWidth = 40

var ErrInvalidKey = errors.New("invalid sort key")

// Key is an immutable non-negative integer of arbitrary precision. The zero
// value is an unset key.
type Key struct {
	v *big.Int
}

func New(n int64) Key {
	if n < 0 {
		panic("sortkey: negative key")
	}
	return Key{v: big.NewInt(n)}
}

func FromBig(b *big.Int) (Key, error) {
	if b == nil || b.Sign() < 0 {
		return Key{}, fmt.Errorf("%w: negative or nil", ErrInvalidKey)
	}
	if len(b.String()) > PaddedWidth {
		return Key{}, fmt.Errorf("%w: more than %d digits", ErrInvalidKey, PaddedWidth)
	}
	return Key{v: new(big.Int).Set(b)}, nil
}

// FromTime returns a key ordered by wall clock time at nanosecond resolution.
// Times before the unix epoch all map to key 0.
func FromTime(t time.Time) Key {
	if t.Before(time.Unix(0, 0)) {
		return Key{v: new(big.Int)}
	}
	return Key{v: big.NewInt(t.UnixNano())}
}

// Parse reads a decimal key. Digits may be grouped in threes with dots, the
// way @ud atoms are printed ("1.000.000").
func Parse(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Key{}, fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if strings.Contains(s, ".") {
		groups := strings.Split(s, ".")
		for i, g := range groups {
			if g == "" || (i > 0 && len(g) != 3) || len(g) > 3 {
				return Key{}, fmt.Errorf("%w: bad digit grouping %q", ErrInvalidKey, s)
			}
		}
		s = strings.Join(groups, "")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return Key{}, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidKey, s)
		}
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	if len(v.String()) > PaddedWidth {
		return Key{}, fmt.Errorf("%w: more than %d digits", ErrInvalidKey, PaddedWidth)
	}
	return Key{v: v}, nil
}

func MustParse(s string) Key {
	k, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return k
}

// ParsePadded is the inverse of Key.Padded.
func ParsePadded(s string) (Key, error) {
	t := strings.TrimLeft(s, "0")
	if t == "" {
		if s == "" {
			return Key{}, fmt.Errorf("%w: empty", ErrInvalidKey)
		}
		t = "0"
	}
	return Parse(t)
}

func (k Key) IsZero() bool {
	return k.v == nil
}

// Compare returns -1, 0 or +1. Unset keys sort before every set key.
func (k Key) Compare(o Key) int {
	switch {
	case k.v == nil && o.v == nil:
		return 0
	case k.v == nil:
		return -1
	case o.v == nil:
		return 1
	}
	return k.v.Cmp(o.v)
}

func (k Key) Less(o Key) bool  { return k.Compare(o) < 0 }
func (k Key) Equal(o Key) bool { return k.Compare(o) == 0 }

// Big returns a copy of the underlying integer.
func (k Key) Big() *big.Int {
	if k.v == nil {
		return nil
	}
	return new(big.Int).Set(k.v)
}

// Add returns k+n, used to build keys adjacent to an existing one.
func (k Key) Add(n int64) Key {
	base := k.v
	if base == nil {
		base = new(big.Int)
	}
	v := new(big.Int).Add(base, big.NewInt(n))
	if v.Sign() < 0 {
		v.SetInt64(0)
	}
	return Key{v: v}
}

func (k Key) String() string {
	if k.v == nil {
		return ""
	}
	return k.v.String()
}

// UD formats the key with dot separated digit groups.
func (k Key) UD() string {
	s := k.String()
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// Padded returns a fixed width form whose lexical order matches numeric order.
func (k Key) Padded() string {
	s := k.String()
	if s == "" {
		s = "0"
	}
	if len(s) >= PaddedWidth {
		return s
	}
	return strings.Repeat("0", PaddedWidth-len(s)) + s
}

func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Key) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*k = Key{}
		return nil
	}
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
