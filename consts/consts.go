// Package consts defines cross-module constants used throughout the application.
package consts

import (
	"sync"
	"time"
)

// ServiceName is the application service name
const ServiceName = "ctreport"

// Project information constants
const (
	// ProjectName is the display name of the project
	ProjectName = "ctreport"

	// ProjectURL is the repository URL
	ProjectURL = "https://github.com/verustcode/ctreport"
)

// Well-known node names in a report notebook.
const (
	NodeHosts         = "Hosts"
	NodePersonal      = "Personal"
	NodeOverview      = "Overview"
	NodeHostIP        = "Host IP"
	NodeHostname      = "Hostname"
	NodeHLSummary     = "High level summary"
	NodeServiceEnum   = "Service enumeration"
	NodeExploitation  = "Exploitation"
	NodePrivEsc       = "Privilege escalation"
	NodeCVEID         = "CVE-ID"
	NodeLocalTxt      = "local.txt"
	NodeProofTxt      = "proof.txt"
	NodeContents      = "contents"
	NodeAppendix      = "Appendix"
	NodeProof         = "Proof"
	EmptyPlaceholder  = "-"
	ReportFilePattern = "OSCP-%s-Exam-Report"
)

// Build information - set via ldflags during build
var (
	// Version is the application version
	Version = "dev"

	// BuildTime is the build timestamp
	BuildTime = "unknown"

	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

var (
	startedAt   time.Time
	startedOnce sync.Once
)

// SetStartedAt records the run start time (can only be called once)
func SetStartedAt(t time.Time) {
	startedOnce.Do(func() {
		startedAt = t
	})
}

// GetStartedAt returns the run start time
func GetStartedAt() time.Time {
	return startedAt
}

// Elapsed returns the duration since the run started
func Elapsed() time.Duration {
	if startedAt.IsZero() {
		return 0
	}
	return time.Since(startedAt)
}
