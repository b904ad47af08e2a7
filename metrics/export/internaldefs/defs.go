package internaldefs

import (
	tokenAuth "github.com/MrEthical07/tokenAuth"
)

// CounterDef names one engine counter.
type CounterDef struct {
	ID   tokenAuth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram.
type HistogramDef struct {
	ID   tokenAuth.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: tokenAuth.MetricLoginSuccess, Name: "tokenauth_login_success_total", Help: "Successful logins."},
	{ID: tokenAuth.MetricLoginFailure, Name: "tokenauth_login_failure_total", Help: "Failed logins."},
	{ID: tokenAuth.MetricLoginRateLimited, Name: "tokenauth_login_rate_limited_total", Help: "Logins refused by the attempt throttle."},
	{ID: tokenAuth.MetricReissueSuccess, Name: "tokenauth_reissue_success_total", Help: "Successful token reissues."},
	{ID: tokenAuth.MetricReissueFailure, Name: "tokenauth_reissue_failure_total", Help: "Failed token reissues."},
	{ID: tokenAuth.MetricRefreshReuseDetected, Name: "tokenauth_refresh_reuse_detected_total", Help: "Refresh tokens presented that were not the one on file."},
	{ID: tokenAuth.MetricSessionExpired, Name: "tokenauth_session_expired_total", Help: "Reissues with no refresh record."},
	{ID: tokenAuth.MetricLogout, Name: "tokenauth_logout_total", Help: "Logouts."},
	{ID: tokenAuth.MetricRevokedTokenPresented, Name: "tokenauth_revoked_token_presented_total", Help: "Blacklisted access tokens presented."},
	{ID: tokenAuth.MetricAuthenticateSuccess, Name: "tokenauth_authenticate_success_total", Help: "Accepted access tokens."},
	{ID: tokenAuth.MetricAuthenticateFailure, Name: "tokenauth_authenticate_failure_total", Help: "Rejected access tokens."},
	{ID: tokenAuth.MetricRegistrationSuccess, Name: "tokenauth_registration_success_total", Help: "Created accounts."},
	{ID: tokenAuth.MetricRegistrationDuplicate, Name: "tokenauth_registration_duplicate_total", Help: "Registrations rejected as duplicate email."},
	{ID: tokenAuth.MetricStoreFailure, Name: "tokenauth_store_failure_total", Help: "Operations aborted by a session store failure."},
}

var HistogramDefs = []HistogramDef{
	{ID: tokenAuth.MetricAuthenticateLatency, Name: "tokenauth_authenticate_latency_seconds", Help: "Authenticate latency."},
}

// HistogramBounds are the upper bounds of the engine's eight latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds spelled for instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
