package models

import "time"

// DocumentCategory classifies base documents by the kind of requirement they
// represent.
type DocumentCategory string

const (
	CategoryPermits      DocumentCategory = "permits"
	CategoryClearances   DocumentCategory = "clearances"
	CategoryCertificates DocumentCategory = "certificates"
	CategoryRequirements DocumentCategory = "requirements"
	CategoryIDs          DocumentCategory = "ids"
	CategoryLicenses     DocumentCategory = "licenses"
	CategoryGeneral      DocumentCategory = "general"
)

// BaseDocument is an admin-curated reference template that user submissions
// are verified against.
type BaseDocument struct {
	ID          string           `firestore:"-" json:"id"`
	Title       string           `firestore:"title" json:"title"`
	Filename    string           `firestore:"filename" json:"filename"`
	FileType    string           `firestore:"fileType" json:"file_type"`
	FileURL     string           `firestore:"fileUrl" json:"file_url"`
	Category    DocumentCategory `firestore:"category" json:"category"`
	Description string           `firestore:"description,omitempty" json:"description,omitempty"`
	UploadedAt  time.Time        `firestore:"uploadedAt" json:"uploaded_at"`
	IsActive    bool             `firestore:"isActive" json:"is_active"`
}

// User is the slice of the account record this service needs: identity,
// contact and role.
type User struct {
	ID        string `firestore:"-" json:"id"`
	Email     string `firestore:"email" json:"email"`
	FirstName string `firestore:"firstname,omitempty" json:"firstname,omitempty"`
	LastName  string `firestore:"lastname,omitempty" json:"lastname,omitempty"`
	Role      string `firestore:"role" json:"role"`
}

// IsAdmin reports whether the user may perform review actions.
func (u *User) IsAdmin() bool {
	return u.Role == "admin" || u.Role == "superadmin"
}

// DeviceTokens holds a user's registered FCM device tokens.
type DeviceTokens struct {
	Tokens []string `firestore:"tokens" json:"tokens"`
}
