package applicantstore

import "testing"

func TestDupField(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{`E11000 duplicate key error collection: db.applicants index: uniq_applicants_email dup key: { email: "a@b.c" }`, "email"},
		{`E11000 duplicate key error collection: db.pending_applicants index: uniq_pending_applicants_national_id_digits dup key: { national_id_digits: "1" }`, "national_id"},
		{`E11000 duplicate key error collection: db.applicants index: uniq_applicants_registration_number dup key: { registration_number: "email-1" }`, "registration_number"},
		{`E11000 duplicate key error`, "record"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := dupField(tt.msg); got != tt.want {
				t.Errorf("dupField = %q, want %q", got, tt.want)
			}
		})
	}
}
