package models

// TOTPSetupResponse returned when initiating 2FA setup
type TOTPSetupResponse struct {
	Secret      string `json:"secret"`  // Base32 secret for manual entry
	QRCode      string `json:"qr_code"` // Base64 PNG data URL
	Issuer      string `json:"issuer"`
	AccountName string `json:"account_name"`
}

// TOTPCodeRequest carries a 6-digit code
type TOTPCodeRequest struct {
	Code string `json:"code"`
}

// TOTPVerifyRequest for login 2FA verification
type TOTPVerifyRequest struct {
	TempToken string `json:"temp_token"` // Temporary token from step 1
	Code      string `json:"code"`
}

// TOTPDisableRequest needs both the password and a current code
type TOTPDisableRequest struct {
	Password string `json:"password"`
	Code     string `json:"code"`
}

// User2FAStatus reports whether 2FA is on for the current user
type User2FAStatus struct {
	Enabled bool `json:"enabled"`
}
