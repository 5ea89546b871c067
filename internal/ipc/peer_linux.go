//go:build linux

package ipc

import (
	"fmt"
	"net"
	"os"
	"syscall"
)

// verifyPeer checks via SO_PEERCRED that the connecting process runs
// as the same user as the daemon.
func verifyPeer(conn net.Conn) (bool, error) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return false, fmt.Errorf("not a unix connection")
	}

	rawConn, err := unixConn.SyscallConn()
	if err != nil {
		return false, fmt.Errorf("get raw conn: %w", err)
	}

	var cred *syscall.Ucred
	var credErr error
	err = rawConn.Control(func(fd uintptr) {
		cred, credErr = syscall.GetsockoptUcred(int(fd), syscall.SOL_SOCKET, syscall.SO_PEERCRED)
	})
	if err != nil {
		return false, fmt.Errorf("control: %w", err)
	}
	if credErr != nil {
		return false, fmt.Errorf("getsockopt: %w", credErr)
	}

	return int(cred.Uid) == os.Getuid(), nil
}
