// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Address defaults and host alias resolution.

package control

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
)

// Defaults shared by both binaries.
const (
	DefaultHost = "localnet"
	DefaultPort = 5000
)

// Host aliases understood by ResolveHost.
const (
	HostLocalhost = "localhost"
	HostLocalnet  = "localnet"
)

// ErrNoIPv4 is returned when the machine's hostname has no IPv4 address.
var ErrNoIPv4 = errors.New("no IPv4 address for hostname")

// lookupIP and hostname are swapped in tests.
var (
	lookupIP = net.LookupIP
	hostname = os.Hostname
)

// ResolveHost expands the host aliases: "localhost" becomes 127.0.0.1 and
// "localnet" becomes the first IPv4 address of this machine's hostname.
// Any other value is returned unchanged.
func ResolveHost(host string) (string, error) {
	switch host {
	case HostLocalhost:
		return "127.0.0.1", nil
	case HostLocalnet:
		name, err := hostname()
		if err != nil {
			return "", fmt.Errorf("resolve localnet: %w", err)
		}
		ips, err := lookupIP(name)
		if err != nil {
			return "", fmt.Errorf("resolve localnet %q: %w", name, err)
		}
		for _, ip := range ips {
			if ip4 := ip.To4(); ip4 != nil {
				return ip4.String(), nil
			}
		}
		return "", fmt.Errorf("resolve localnet %q: %w", name, ErrNoIPv4)
	default:
		return host, nil
	}
}

// Address resolves host and joins it with port.
func Address(host string, port int) (string, error) {
	if port < 0 || port > 65535 {
		return "", fmt.Errorf("port %d out of range", port)
	}
	h, err := ResolveHost(host)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(h, strconv.Itoa(port)), nil
}
