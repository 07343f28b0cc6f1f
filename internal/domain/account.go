package domain

// CodePurpose says why a one-time code is requested.
type CodePurpose string

const (
	// CodePurposeSignup requires the email to be unregistered.
	CodePurposeSignup CodePurpose = "SIGNUP"

	// CodePurposeReset requires the email to belong to an existing account.
	CodePurposeReset CodePurpose = "RESET"
)

// IsValid returns true if the purpose is a recognized value.
func (p CodePurpose) IsValid() bool {
	return p == CodePurposeSignup || p == CodePurposeReset
}

// RegisterParams contains parameters for self-service signup.
type RegisterParams struct {
	Name       string
	Email      string
	Password   string
	Phone      string
	Role       string // Raw value, CITIZEN or OFFICER
	Department string // Officers
	WardNumber string // Citizens
}
