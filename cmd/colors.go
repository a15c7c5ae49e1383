package cmd

import (
	"strconv"
	"strings"

	"github.com/fatih/color"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
	colorHeading = color.New(color.Bold).SprintFunc()
)

func formatStatusWithColor(status string) string {
	switch strings.ToLower(status) {
	case "ok", "success", "pass", "yes":
		return colorSuccess(status)
	case "error", "fail", "failed", "no":
		return colorError(status)
	default:
		return status
	}
}

// formatHTTPStatus colors a status code by class.
func formatHTTPStatus(code int) string {
	s := strconv.Itoa(code)
	switch {
	case code >= 200 && code < 300:
		return colorSuccess(s)
	case code >= 300 && code < 400:
		return colorInfo(s)
	case code >= 400 && code < 500:
		return colorWarn(s)
	default:
		return colorError(s)
	}
}

func formatBool(v bool) string {
	if v {
		return formatStatusWithColor("yes")
	}
	return formatStatusWithColor("no")
}
