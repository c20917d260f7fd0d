// Package addrcodec converts addresses among three forms: human string,
// 128-bit unsigned integer, and packed 16-byte big-endian form. IPv4 is
// mapped into the IPv6 space via the ::ffff:0:0/96 prefix so that a
// single fixed-width key layout works for both families uniformly.
package addrcodec

import (
	"bytes"
	"encoding/binary"
	"net/netip"

	"github.com/wbolster/whipdb/pkg/model"
)

// Address is a 128-bit address value. The zero Address is invalid; use
// Parse, FromPacked, or FromUint128 to construct one.
type Address struct {
	addr netip.Addr
}

// Parse converts a human-readable string into an Address. IPv4 and IPv6
// strings are both accepted; anything else fails with
// model.ErrMalformedAddress.
func Parse(s string) (Address, error) {
	a, err := netip.ParseAddr(s)
	if err != nil {
		return Address{}, model.ErrMalformedAddress
	}
	return Address{addr: a}, nil
}

// FromPacked interprets b as a 16-byte big-endian address. A packed value
// whose first 12 bytes are the ::ffff:0:0/96 prefix renders back as IPv4.
func FromPacked(b [16]byte) Address {
	a := netip.AddrFrom16(b)
	if a.Is4In6() {
		a = a.Unmap()
	}
	return Address{addr: a}
}

// FromUint128 builds an Address from its big-endian 128-bit integer
// representation, split into high and low 64-bit halves (Go has no
// native 128-bit integer type).
func FromUint128(hi, lo uint64) Address {
	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], hi)
	binary.BigEndian.PutUint64(b[8:16], lo)
	return FromPacked(b)
}

// IsValid reports whether a was constructed from a real address.
func (a Address) IsValid() bool { return a.addr.IsValid() }

// Pack renders the address as its 16-byte big-endian packed form. IPv4
// addresses are mapped via the ::ffff:0:0/96 prefix so that IPv4 and
// IPv6 keys sort correctly in a single key space.
func (a Address) Pack() [16]byte {
	return a.addr.As16()
}

// Uint128 returns the address as a 128-bit unsigned integer, split into
// high and low 64-bit halves.
func (a Address) Uint128() (hi, lo uint64) {
	b := a.Pack()
	return binary.BigEndian.Uint64(b[0:8]), binary.BigEndian.Uint64(b[8:16])
}

// String renders the address in its canonical human form: dotted
// notation for addresses within the ::ffff:0:0/96 prefix, colon notation
// otherwise.
func (a Address) String() string {
	return a.addr.String()
}

// Compare orders two addresses: -1 if a < b, 0 if equal, 1 if a > b.
// Ordering is by packed 16-byte value, not netip.Addr.Compare (which
// sorts by address length first, putting every 4-byte address before
// every 16-byte one regardless of value — wrong for the unified
// keyspace this package exists to provide).
func (a Address) Compare(b Address) int {
	ap, bp := a.Pack(), b.Pack()
	return bytes.Compare(ap[:], bp[:])
}

// Less reports whether a sorts strictly before b.
func (a Address) Less(b Address) bool {
	return a.Compare(b) < 0
}

// Next returns the address one greater than a. It is undefined for the
// maximum address (all 16 bytes 0xff); callers in this codebase only call
// it on range ends, which in practice never reach that value.
func (a Address) Next() Address {
	b := a.Pack()
	for i := len(b) - 1; i >= 0; i-- {
		b[i]++
		if b[i] != 0 {
			break
		}
	}
	return FromPacked(b)
}

// Prev returns the address one less than a. It is undefined for the
// minimum address (all 16 bytes zero).
func (a Address) Prev() Address {
	b := a.Pack()
	for i := len(b) - 1; i >= 0; i-- {
		b[i]--
		if b[i] != 0xff {
			break
		}
	}
	return FromPacked(b)
}
