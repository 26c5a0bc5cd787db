package metrics

// Def carries the export name and help text for one counter. Both
// exporters iterate this table so their metric sets never drift apart.
type Def struct {
	ID   ID
	Name string
	Help string
}

var Defs = []Def{
	{ID: RegisterSuccess, Name: "authcore_register_success_total", Help: "Successful registrations."},
	{ID: RegisterDuplicate, Name: "authcore_register_duplicate_total", Help: "Registrations rejected for a taken email."},
	{ID: LoginSuccess, Name: "authcore_login_success_total", Help: "Successful logins."},
	{ID: LoginFailure, Name: "authcore_login_failure_total", Help: "Failed login attempts."},
	{ID: LoginDeactivated, Name: "authcore_login_deactivated_total", Help: "Logins rejected on deactivated accounts."},
	{ID: RefreshSuccess, Name: "authcore_refresh_success_total", Help: "Successful refresh-token rotations."},
	{ID: RefreshFailure, Name: "authcore_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: RefreshReuseDetected, Name: "authcore_refresh_reuse_detected_total", Help: "Refresh attempts presenting a rotated-out token."},
	{ID: RefreshAgentMismatch, Name: "authcore_refresh_agent_mismatch_total", Help: "Refresh attempts from a different user agent."},
	{ID: Logout, Name: "authcore_logout_total", Help: "Logout operations."},
	{ID: SessionCreated, Name: "authcore_session_created_total", Help: "Created sessions."},
	{ID: SessionRevoked, Name: "authcore_session_revoked_total", Help: "Explicitly revoked sessions."},
	{ID: SessionsSwept, Name: "authcore_sessions_swept_total", Help: "Expired sessions flipped by the sweeper."},
	{ID: OtpIssued, Name: "authcore_otp_issued_total", Help: "Issued one-time codes."},
	{ID: OtpRateLimited, Name: "authcore_otp_rate_limited_total", Help: "OTP requests denied by the reissue cooldown."},
	{ID: OtpDailyLimited, Name: "authcore_otp_daily_limited_total", Help: "OTP requests denied by the daily cap."},
	{ID: OtpVerifySuccess, Name: "authcore_otp_verify_success_total", Help: "Successful OTP verifications."},
	{ID: OtpVerifyFailure, Name: "authcore_otp_verify_failure_total", Help: "Failed OTP verifications."},
	{ID: PasswordChanged, Name: "authcore_password_changed_total", Help: "Successful password changes."},
	{ID: PasswordReset, Name: "authcore_password_reset_total", Help: "Completed password resets."},
	{ID: EmailVerified, Name: "authcore_email_verified_total", Help: "Completed email verifications."},
	{ID: EmailChanged, Name: "authcore_email_changed_total", Help: "Completed email changes."},
	{ID: AccountDeactivated, Name: "authcore_account_deactivated_total", Help: "Account deactivations."},
	{ID: NotifyFailure, Name: "authcore_notify_failure_total", Help: "Notifier deliveries that failed."},
}
