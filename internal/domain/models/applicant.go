// internal/domain/models/applicant.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Applicant is a membership registration record.
//
// The same shape is stored in two collections:
//   - pending_applicants: submitted, undecided records (status pending|rejected).
//     ExpiresAt drives the TTL index that purges stale and rejected records.
//   - applicants: the permanent registry (status approved). An approved record
//     is a new document; the pending one is deleted after promotion.
//
// NationalIDDigits is the digit-only form of NationalID and is the uniqueness key,
// so "123.456.789-00" and "12345678900" collide. Email is stored lowercased.
type Applicant struct {
	ID primitive.ObjectID `bson:"_id" json:"id"`

	// Identity
	Name             string    `bson:"name" json:"name"`
	NationalID       string    `bson:"national_id" json:"national_id"`
	NationalIDDigits string    `bson:"national_id_digits" json:"-"`
	Email            string    `bson:"email" json:"email"`
	Phone            string    `bson:"phone" json:"phone"`
	BirthDate        time.Time `bson:"birth_date" json:"birth_date"`
	Sex              string    `bson:"sex" json:"sex"`

	// Address
	State      string `bson:"state" json:"state"`
	City       string `bson:"city" json:"city"`
	Address    string `bson:"address" json:"address"`
	PostalCode string `bson:"postal_code" json:"postal_code"`

	// Affiliation
	Affiliation              string `bson:"affiliation" json:"affiliation"`
	AffiliationDetail        string `bson:"affiliation_detail,omitempty" json:"affiliation_detail,omitempty"`
	ProfessionalStatus       string `bson:"professional_status" json:"professional_status"`
	ProfessionalStatusDetail string `bson:"professional_status_detail,omitempty" json:"professional_status_detail,omitempty"`
	Education                string `bson:"education" json:"education"`

	// Organizational
	Unit               string `bson:"unit" json:"unit"`
	RegistrationNumber string `bson:"registration_number,omitempty" json:"registration_number,omitempty"`
	ReferrerName       string `bson:"referrer_name,omitempty" json:"referrer_name,omitempty"`
	ReferrerNationalID string `bson:"referrer_national_id,omitempty" json:"referrer_national_id,omitempty"`

	// Contribution
	WantsToContribute  bool     `bson:"wants_to_contribute" json:"wants_to_contribute"`
	ContributionAmount *float64 `bson:"contribution_amount,omitempty" json:"contribution_amount,omitempty"`
	PayrollDeduction   *bool    `bson:"payroll_deduction,omitempty" json:"payroll_deduction,omitempty"`

	Incarnate bool `bson:"incarnate" json:"incarnate"`

	// Attachments (GridFS file ids; bytes are never embedded)
	PhotoID      *primitive.ObjectID `bson:"photo_id,omitempty" json:"photo_id,omitempty"`
	CredentialID *primitive.ObjectID `bson:"credential_id,omitempty" json:"credential_id,omitempty"`

	// Lifecycle
	Status    string     `bson:"status" json:"status"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty" json:"-"`
}

// AttachmentIDs returns the non-nil attachment references on the record.
func (a Applicant) AttachmentIDs() []primitive.ObjectID {
	var ids []primitive.ObjectID
	if a.PhotoID != nil {
		ids = append(ids, *a.PhotoID)
	}
	if a.CredentialID != nil {
		ids = append(ids, *a.CredentialID)
	}
	return ids
}
