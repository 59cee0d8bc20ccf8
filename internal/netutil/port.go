package netutil

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

const maxPortRange = 1024

// SelectBindAddr picks an available bind address based on preferred and fallback list.
func SelectBindAddr(preferred string, candidates []string, autoFallback bool) (string, error) {
	if preferred != "" {
		ok, err := IsAddrAvailable(preferred)
		if err != nil {
			return "", err
		}
		if ok {
			return preferred, nil
		}
		if !autoFallback {
			return "", fmt.Errorf("preferred bind address in use: %s", preferred)
		}
	}

	for _, addr := range candidates {
		ok, err := IsAddrAvailable(addr)
		if err != nil {
			return "", err
		}
		if ok {
			return addr, nil
		}
	}

	return "", errors.New("no available bind addresses")
}

// IsAddrAvailable returns true when an address can be listened on.
func IsAddrAvailable(addr string) (bool, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return false, nil
	}
	if closeErr := ln.Close(); closeErr != nil {
		return false, closeErr
	}
	return true, nil
}

// ExpandPortRange lists host:port for every port in [from, to].
func ExpandPortRange(host string, from, to int) ([]string, error) {
	if from < 1 || to > 65535 || from > to {
		return nil, fmt.Errorf("invalid port range %d-%d", from, to)
	}
	if to-from >= maxPortRange {
		return nil, fmt.Errorf("port range %d-%d wider than %d ports", from, to, maxPortRange)
	}
	out := make([]string, 0, to-from+1)
	for p := from; p <= to; p++ {
		out = append(out, net.JoinHostPort(host, strconv.Itoa(p)))
	}
	return out, nil
}
