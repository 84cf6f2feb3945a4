package utils

import (
	"math"
	"net"
)

// CIDRSize returns the number of addresses in a CIDR network, saturating at
// math.MaxUint64 for very large IPv6 prefixes.
func CIDRSize(cidr *net.IPNet) uint64 {
	ones, bits := cidr.Mask.Size()
	if bits-ones >= 64 {
		return math.MaxUint64
	}
	return 1 << (bits - ones)
}

// HostCapacity returns how many devices a subnet can address. IPv4 networks
// wider than /31 lose the network and broadcast addresses.
func HostCapacity(cidr *net.IPNet) uint64 {
	size := CIDRSize(cidr)
	ones, bits := cidr.Mask.Size()
	if bits == 32 && ones < 31 {
		return size - 2
	}
	return size
}
