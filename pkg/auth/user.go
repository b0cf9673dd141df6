package auth

// UserRecord is one Firebase Auth account.
type UserRecord struct {
	UID           string
	Email         string
	EmailVerified bool
	PhoneNumber   string
	DisplayName   string
	PhotoURL      string
	Disabled      bool

	// unix millis, zero when the backend omits them
	CreationTimestamp  int64
	LastLogInTimestamp int64
}

// ExportedUserRecord is a UserRecord plus the password hash material the
// list endpoint exposes to service accounts.
type ExportedUserRecord struct {
	*UserRecord
	PasswordHash string
	PasswordSalt string
}

// wireUser is the identitytoolkit account shape:
// https://cloud.google.com/identity-platform/docs/reference/rest/v1/projects.accounts/batchGet
type wireUser struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	PhoneNumber   string `json:"phoneNumber"`
	DisplayName   string `json:"displayName"`
	PhotoURL      string `json:"photoUrl"`
	Disabled      bool   `json:"disabled"`
	CreatedAt     int64  `json:"createdAt,string,omitempty"`
	LastLoginAt   int64  `json:"lastLoginAt,string,omitempty"`
	PasswordHash  string `json:"passwordHash"`
	Salt          string `json:"salt"`
}

func (u *wireUser) exported() *ExportedUserRecord {
	return &ExportedUserRecord{
		UserRecord: &UserRecord{
			UID:                u.LocalID,
			Email:              u.Email,
			EmailVerified:      u.EmailVerified,
			PhoneNumber:        u.PhoneNumber,
			DisplayName:        u.DisplayName,
			PhotoURL:           u.PhotoURL,
			Disabled:           u.Disabled,
			CreationTimestamp:  u.CreatedAt,
			LastLogInTimestamp: u.LastLoginAt,
		},
		PasswordHash: u.PasswordHash,
		PasswordSalt: u.Salt,
	}
}
