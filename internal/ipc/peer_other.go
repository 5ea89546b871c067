//go:build !linux

package ipc

import "net"

// verifyPeer trusts the 0600 socket permissions on platforms without a
// peer credential syscall wrapper.
func verifyPeer(conn net.Conn) (bool, error) {
	return true, nil
}
