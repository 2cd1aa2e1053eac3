package models

// AccountInfo holds the account attributes the download worker needs.
// Immutable after construction.
type AccountInfo struct {
	emailAddress string
	healthCode   string
	userID       string
}

// NewAccountInfo builds an AccountInfo. Email address and user ID are
// required. It's possible, albeit unlikely, for an account to not have a
// health code.
func NewAccountInfo(emailAddress, userID, healthCode string) (AccountInfo, error) {
	if emailAddress == "" {
		return AccountInfo{}, &ValidationError{Field: "emailAddress", Reason: "must be specified"}
	}
	if userID == "" {
		return AccountInfo{}, &ValidationError{Field: "userId", Reason: "must be specified"}
	}
	return AccountInfo{emailAddress: emailAddress, healthCode: healthCode, userID: userID}, nil
}

// EmailAddress returns the account's registered email address.
func (a AccountInfo) EmailAddress() string { return a.emailAddress }

// HealthCode returns the account's health code, or "" if it has none.
func (a AccountInfo) HealthCode() string { return a.healthCode }

// UserID returns the account's ID.
func (a AccountInfo) UserID() string { return a.userID }
