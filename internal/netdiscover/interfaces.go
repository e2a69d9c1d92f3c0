// Package netdiscover enumerates local IPv4 addresses for the
// (interface, prefix) assignment scheme the coordinator and Deluge both
// use to fan out across a host's data-plane NICs.
package netdiscover

import (
	"net"
	"sort"
)

// IPv4sWithPrefix returns every IPv4 address bound to a local interface
// whose first octet equals prefix, sorted ascending for deterministic
// port/core assignment across runs.
func IPv4sWithPrefix(prefix byte) ([]net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var out []net.IP
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ip := addrOf(a)
			if ip == nil {
				continue
			}
			v4 := ip.To4()
			if v4 == nil || v4[0] != prefix {
				continue
			}
			out = append(out, v4)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return ipLess(out[i], out[j])
	})
	return out, nil
}

func addrOf(a net.Addr) net.IP {
	switch v := a.(type) {
	case *net.IPNet:
		return v.IP
	case *net.IPAddr:
		return v.IP
	default:
		return nil
	}
}

func ipLess(a, b net.IP) bool {
	av, bv := a.To4(), b.To4()
	for i := 0; i < 4; i++ {
		if av[i] != bv[i] {
			return av[i] < bv[i]
		}
	}
	return false
}
