package authcore

import "github.com/authcore-io/authcore/internal/metrics"

// Public metrics surface. The counters live in internal/metrics; these
// aliases let integrators inspect snapshots and write custom exporters
// without importing it.

type MetricID = metrics.ID

type MetricsSnapshot = metrics.Snapshot

// Counter IDs, re-exported for snapshot lookups.
const (
	MetricRegisterSuccess      = metrics.RegisterSuccess
	MetricRegisterDuplicate    = metrics.RegisterDuplicate
	MetricLoginSuccess         = metrics.LoginSuccess
	MetricLoginFailure         = metrics.LoginFailure
	MetricLoginDeactivated     = metrics.LoginDeactivated
	MetricRefreshSuccess       = metrics.RefreshSuccess
	MetricRefreshFailure       = metrics.RefreshFailure
	MetricRefreshReuseDetected = metrics.RefreshReuseDetected
	MetricRefreshAgentMismatch = metrics.RefreshAgentMismatch
	MetricLogout               = metrics.Logout
	MetricSessionCreated       = metrics.SessionCreated
	MetricSessionRevoked       = metrics.SessionRevoked
	MetricSessionsSwept        = metrics.SessionsSwept
	MetricOtpIssued            = metrics.OtpIssued
	MetricOtpRateLimited       = metrics.OtpRateLimited
	MetricOtpDailyLimited      = metrics.OtpDailyLimited
	MetricOtpVerifySuccess     = metrics.OtpVerifySuccess
	MetricOtpVerifyFailure     = metrics.OtpVerifyFailure
	MetricPasswordChanged      = metrics.PasswordChanged
	MetricPasswordReset        = metrics.PasswordReset
	MetricEmailVerified        = metrics.EmailVerified
	MetricEmailChanged         = metrics.EmailChanged
	MetricAccountDeactivated   = metrics.AccountDeactivated
	MetricNotifyFailure        = metrics.NotifyFailure
)
