package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"syscall"

	"github.com/muurk/daelim/internal/protocol"
)

// ErrorKind represents the category of a session failure
type ErrorKind int

const (
	// KindNetwork indicates a generic network-level failure
	KindNetwork ErrorKind = iota
	// KindTimeout indicates a connect or read deadline expired
	KindTimeout
	// KindConnectionRefused indicates the server refused the connection
	KindConnectionRefused
	// KindDNS indicates the host name could not be resolved
	KindDNS
	// KindClosed indicates the server closed the connection
	KindClosed
	// KindProtocol indicates a malformed or truncated frame
	KindProtocol
	// KindAuth indicates every login tier was refused
	KindAuth
	// KindNotConnected indicates an operation on a session without a connection
	KindNotConnected
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "Network Error"
	case KindTimeout:
		return "Timeout"
	case KindConnectionRefused:
		return "Connection Refused"
	case KindDNS:
		return "DNS Error"
	case KindClosed:
		return "Connection Closed"
	case KindProtocol:
		return "Protocol Error"
	case KindAuth:
		return "Authentication Failed"
	case KindNotConnected:
		return "Not Connected"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// SessionError describes a transport failure. Operations still report it
// as the -1 result code; the typed error is kept for diagnostics.
type SessionError struct {
	Kind      ErrorKind
	Message   string
	Host      string
	Err       error
	Retryable bool
}

// Error implements the error interface
func (e *SessionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *SessionError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError maps a dial, read or write error to a SessionError.
func ClassifyNetworkError(err error, host string) *SessionError {
	if err == nil {
		return nil
	}

	var sessErr *SessionError
	if errors.As(err, &sessErr) {
		return sessErr
	}

	if errors.Is(err, context.Canceled) {
		return &SessionError{Kind: KindClosed, Message: "request cancelled", Host: host, Err: err}
	}

	if os.IsTimeout(err) || errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &SessionError{Kind: KindTimeout, Message: "server did not respond in time", Host: host, Err: err, Retryable: true}
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return &SessionError{Kind: KindClosed, Message: "connection closed", Host: host, Err: err, Retryable: true}
	}

	if errors.Is(err, protocol.ErrInvalidLength) || errors.Is(err, protocol.ErrFrameTooLarge) {
		return &SessionError{Kind: KindProtocol, Message: "malformed frame", Host: host, Err: err, Retryable: true}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &SessionError{Kind: KindDNS, Message: fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name), Host: host, Err: err}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return &SessionError{Kind: KindConnectionRefused, Message: "server refused connection", Host: host, Err: err, Retryable: true}
		case errors.Is(opErr.Err, syscall.ECONNRESET), errors.Is(opErr.Err, syscall.EPIPE):
			return &SessionError{Kind: KindClosed, Message: "connection reset by server", Host: host, Err: err, Retryable: true}
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return &SessionError{Kind: KindNetwork, Message: "host unreachable", Host: host, Err: err, Retryable: true}
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return &SessionError{Kind: KindNetwork, Message: "network unreachable", Host: host, Err: err, Retryable: true}
		}
	}

	return &SessionError{Kind: KindNetwork, Message: "network error occurred", Host: host, Err: err, Retryable: true}
}

// ServerError is a non-zero result code returned by the server.
type ServerError struct {
	Code    int
	Message string
}

// Error implements the error interface
func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var sessErr *SessionError
	if errors.As(err, &sessErr) {
		return sessErr.Retryable
	}
	var srvErr *ServerError
	if errors.As(err, &srvErr) {
		return srvErr.Code == protocol.CodeServerComm ||
			srvErr.Code == protocol.CodeDeviceComm ||
			srvErr.Code == protocol.CodeNetwork
	}
	return false
}

// Hint returns troubleshooting advice for an error
func Hint(err error) []string {
	var srvErr *ServerError
	if errors.As(err, &srvErr) {
		switch srvErr.Code {
		case protocol.CodeInvalidCredentials:
			return []string{"Check the user id and password used in the mobile app"}
		case protocol.CodeNotRegistered, protocol.CodeUnverifiedUser:
			return []string{"Register this device UUID from the mobile app first"}
		case protocol.CodeSessionExpired, protocol.CodeInvalidLoginPin:
			return []string{"Run 'daelim login' again to refresh the saved pins"}
		case protocol.CodeServerComm, protocol.CodeDeviceComm, protocol.CodeNetwork:
			return []string{"The wallpad is slow to answer; try again in a few seconds"}
		case protocol.CodeGuardBlocked:
			return []string{"Close the front door before arming away mode"}
		}
		return nil
	}

	var sessErr *SessionError
	if !errors.As(err, &sessErr) {
		return nil
	}

	switch sessErr.Kind {
	case KindTimeout:
		return []string{
			"The apartment server did not respond in time",
			"Check that you are on the apartment network",
			"Verify the host with 'daelim scan' or --host",
		}
	case KindConnectionRefused:
		return []string{
			"The server refused the connection",
			fmt.Sprintf("Verify the port (default %d)", protocol.DefaultPort),
		}
	case KindDNS:
		return []string{"Use the server's IP address instead of its host name"}
	case KindAuth:
		return []string{
			"The server refused every saved pin and the credentials",
			"Check the user id and password, then run 'daelim login'",
		}
	case KindNotConnected:
		return []string{"Run 'daelim login' to open a session"}
	case KindClosed:
		return []string{"The server closed the connection; run the command again to reconnect"}
	default:
		hint := []string{"Check your network connection"}
		if sessErr.Host != "" {
			hint = append(hint, "Try pinging the server: ping "+strings.Split(sessErr.Host, ":")[0])
		}
		return hint
	}
}
