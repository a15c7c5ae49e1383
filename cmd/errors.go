package cmd

import (
	"errors"
	"fmt"

	sherrors "github.com/khanhnv2901/sitesniffer/internal/shared/errors"
)

// kindHints explains an inspection error kind in operator terms.
var kindHints = map[error]string{
	sherrors.ErrInvalidURL:          "check the URL; a host name is required",
	sherrors.ErrResolution:          "the host name does not resolve",
	sherrors.ErrRegistryUnreachable: "no WHOIS server answered; try --whois-server",
	sherrors.ErrConnection:          "the server could not be reached",
	sherrors.ErrTimeout:             "the site did not answer in time; try a larger --timeout",
	sherrors.ErrTooManyRedirects:    "the site redirects too often; see --max-redirects",
	sherrors.ErrCanceled:            "the inspection was interrupted before it finished",
	sherrors.ErrNotSecure:           "the URL is not https, so there is no certificate to inspect",
	sherrors.ErrCertificate:         "the TLS certificate could not be verified",
}

// kindHint returns the operator hint for err, or "" when err carries no
// inspection kind.
func kindHint(err error) string {
	kind := sherrors.KindOf(err)
	if kind == nil {
		return ""
	}
	return kindHints[kind]
}

// formatCLIError renders a command failure for the terminal.
func formatCLIError(err error) string {
	if err == nil {
		return ""
	}
	msg := fmt.Sprintf("%s %v", colorError("Error:"), err)
	if errors.Is(err, sherrors.ErrValidation) {
		return msg + "\n" + colorWarn("hint:") + " check flags, SITESNIFFER_* variables and the config file"
	}
	if hint := kindHint(err); hint != "" {
		return msg + "\n" + colorWarn("hint:") + " " + hint
	}
	return msg
}

// BatchError reports how many URLs of a batch could not be inspected at all.
type BatchError struct {
	Failed int
	Total  int
}

func (e *BatchError) Error() string {
	if e.Total == 1 {
		return "inspection failed"
	}
	return fmt.Sprintf("%d of %d inspections failed", e.Failed, e.Total)
}
