package crawler

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"strings"
)

// ErrorCategory classifies a per-URL fetch failure for the job log. A
// skipped URL is never fatal to the job; the category only shapes the log
// line.
type ErrorCategory string

const (
	CategoryTimeout      ErrorCategory = "timeout"
	CategoryDNSFailure   ErrorCategory = "dns_failure"
	CategoryConnRefused  ErrorCategory = "connection_refused"
	CategoryTLS          ErrorCategory = "tls_verification"
	CategoryHTTPStatus   ErrorCategory = "http_status"
	CategoryRedirectLoop ErrorCategory = "redirect_loop"
	CategoryDecode       ErrorCategory = "decode_failure"
	CategoryUnknown      ErrorCategory = "unknown"
)

// ClassifyError determines the error category for a failed fetch.
func ClassifyError(err error, statusCode int) ErrorCategory {
	if statusCode >= 400 {
		return CategoryHTTPStatus
	}
	if err == nil {
		return CategoryUnknown
	}

	if strings.Contains(err.Error(), "redirect loop") || strings.Contains(err.Error(), "stopped after") {
		return CategoryRedirectLoop
	}
	if isTLSVerificationError(err) {
		return CategoryTLS
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return CategoryDNSFailure
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return CategoryTimeout
		}
		if strings.Contains(opErr.Error(), "connection refused") {
			return CategoryConnRefused
		}
	}

	return CategoryUnknown
}

func isTLSVerificationError(err error) bool {
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}
	var unknownAuth x509.UnknownAuthorityError
	if errors.As(err, &unknownAuth) {
		return true
	}
	var hostnameErr x509.HostnameError
	return errors.As(err, &hostnameErr)
}
