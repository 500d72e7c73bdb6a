package domain

import (
	"errors"
	"strings"
	"time"
)

// Host is a homeserver domain, optionally with a port.
type Host string

// HostGroup maps a host to the room members living on it.
type HostGroup map[Host][]string

// Probe failure classes. Every one of them is per-host and non-fatal.
var (
	ErrNetworkTimeout        = errors.New("network timeout")
	ErrConnectivity          = errors.New("connectivity failure")
	ErrMalformedResponse     = errors.New("malformed response")
	ErrTLSFailure            = errors.New("tls failure")
	ErrNoCertificateEndpoint = errors.New("no certificate endpoint")
)

type VersionKind int

const (
	VersionOK VersionKind = iota
	VersionTimeout
	VersionOffline
	VersionError
)

func (k VersionKind) String() string {
	switch k {
	case VersionOK:
		return "ok"
	case VersionTimeout:
		return "timeout"
	case VersionOffline:
		return "offline"
	default:
		return "error"
	}
}

// VersionResult is the tagged outcome of a federation tester query.
// Err carries the cause for Timeout and Error kinds; it is for logs only.
type VersionResult struct {
	Kind    VersionKind
	Version string
	Err     error
}

func Version(v string) VersionResult { return VersionResult{Kind: VersionOK, Version: v} }

func Timeout(err error) VersionResult { return VersionResult{Kind: VersionTimeout, Err: err} }

func Offline() VersionResult { return VersionResult{Kind: VersionOffline} }

func Failed(err error) VersionResult { return VersionResult{Kind: VersionError, Err: err} }

// Text is the report form: the version itself or a bracketed placeholder.
func (v VersionResult) Text() string {
	switch v.Kind {
	case VersionOK:
		return v.Version
	case VersionTimeout:
		return "[TIMEOUT]"
	case VersionOffline:
		return "[OFFLINE]"
	default:
		return "[ERROR]"
	}
}

// CertificateResult holds either the leaf certificate expiry or the reason
// it could not be read.
type CertificateResult struct {
	Expiry time.Time
	Err    error
}

func Expires(t time.Time) CertificateResult { return CertificateResult{Expiry: t} }

func Unavailable(reason error) CertificateResult {
	if reason == nil {
		reason = ErrNoCertificateEndpoint
	}
	return CertificateResult{Err: reason}
}

func (c CertificateResult) Available() bool { return c.Err == nil && !c.Expiry.IsZero() }

// HostStatus is the per-host record of one probe run.
type HostStatus struct {
	Host        Host              `json:"host"`
	Version     VersionResult     `json:"-"`
	Certificate CertificateResult `json:"-"`
	Warning     string            `json:"warning,omitempty"`
}

// TesterURL fills the {server} placeholder of a federation tester template.
func TesterURL(template string, host Host) string {
	return strings.ReplaceAll(template, "{server}", string(host))
}
