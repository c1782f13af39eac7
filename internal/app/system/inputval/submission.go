package inputval

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/registryhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/registryhub/internal/app/system/nationalid"
	"github.com/dalemusser/registryhub/internal/app/system/normalize"
	"github.com/dalemusser/registryhub/internal/domain/models"
)

// Submission is a parsed applicant form. Field order matches the form, so the
// first reported error is the first offending field a person would see.
type Submission struct {
	Name       string     `form:"name" validate:"required"`
	NationalID string     `form:"national_id" validate:"required,national_id"`
	Phone      string     `form:"phone" validate:"required"`
	Email      string     `form:"email" validate:"required,basic_email"`
	State      string     `form:"state" validate:"required"`
	City       string     `form:"city" validate:"required"`
	Address    string     `form:"address" validate:"required"`
	PostalCode string     `form:"postal_code" validate:"required"`
	Sex        string     `form:"sex" validate:"required,sex"`
	BirthDate  *time.Time `form:"birth_date" validate:"required"`

	Affiliation              string `form:"affiliation" validate:"required,affiliation"`
	AffiliationDetail        string `form:"affiliation_detail" validate:"required_if=Affiliation Outros"`
	ProfessionalStatus       string `form:"professional_status" validate:"required,professional_status"`
	ProfessionalStatusDetail string `form:"professional_status_detail" validate:"required_if=ProfessionalStatus Outros"`
	Education                string `form:"education" validate:"required,education"`

	Unit               string `form:"unit" validate:"required"`
	RegistrationNumber string `form:"registration_number"`
	ReferrerName       string `form:"referrer_name" validate:"required"`
	ReferrerNationalID string `form:"referrer_national_id" validate:"required"`

	WantsToContribute  *bool    `form:"wants_to_contribute" validate:"required"`
	ContributionAmount *float64 `form:"contribution_amount" validate:"omitempty,gte=0"`
	PayrollDeduction   *bool    `form:"payroll_deduction"`

	Incarnate *bool `form:"incarnate" validate:"required"`
}

// Check parses and validates form values in one step.
func Check(form url.Values) (*Submission, error) {
	s, err := ParseForm(form)
	if err != nil {
		return nil, err
	}
	if err := Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

// ParseForm coerces raw form values into a Submission. It fails only on
// values that cannot be coerced (bad booleans or dates); required-field and
// closed-set checks are left to Validate.
func ParseForm(form url.Values) (*Submission, error) {
	v := formValues(form)
	s := &Submission{
		Name:                     v.str("name"),
		NationalID:               v.str("national_id"),
		Phone:                    v.str("phone"),
		Email:                    v.str("email"),
		State:                    v.str("state"),
		City:                     v.str("city"),
		Address:                  v.str("address"),
		PostalCode:               v.str("postal_code"),
		Sex:                      v.str("sex"),
		Affiliation:              v.str("affiliation"),
		AffiliationDetail:        v.str("affiliation_detail"),
		ProfessionalStatus:       v.str("professional_status"),
		ProfessionalStatusDetail: v.str("professional_status_detail"),
		Education:                v.str("education"),
		Unit:                     v.str("unit"),
		RegistrationNumber:       v.str("registration_number"),
		ReferrerName:             v.str("referrer_name"),
		ReferrerNationalID:       v.str("referrer_national_id"),
		ContributionAmount:       v.number("contribution_amount"),
	}

	var err error
	if s.BirthDate, err = v.date("birth_date"); err != nil {
		return nil, err
	}
	if s.WantsToContribute, err = v.boolean("wants_to_contribute"); err != nil {
		return nil, err
	}
	if s.PayrollDeduction, err = v.boolean("payroll_deduction"); err != nil {
		return nil, err
	}
	if s.Incarnate, err = v.boolean("incarnate"); err != nil {
		return nil, err
	}
	return s, nil
}

type formValues url.Values

func (v formValues) str(key string) string {
	return strings.TrimSpace(url.Values(v).Get(key))
}

func (v formValues) boolean(key string) (*bool, error) {
	raw := strings.ToLower(v.str(key))
	switch raw {
	case "":
		return nil, nil
	case "true":
		b := true
		return &b, nil
	case "false":
		b := false
		return &b, nil
	}
	return nil, &FieldError{Field: key, Message: fmt.Sprintf("%s must be true or false", key)}
}

func (v formValues) number(key string) *float64 {
	raw := strings.ReplaceAll(v.str(key), ",", ".")
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	return &f
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, time.RFC3339Nano}

func (v formValues) date(key string) (*time.Time, error) {
	raw := v.str(key)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, &FieldError{Field: key, Message: fmt.Sprintf("%s must be a valid date (YYYY-MM-DD)", key)}
}

// ValuesFromJSON flattens a JSON object into form values so administrative
// full-record updates go through the same coercion and validation as forms.
// Nulls are skipped; nested objects and arrays are rejected.
func ValuesFromJSON(r io.Reader) (url.Values, error) {
	var body map[string]any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	out := url.Values{}
	for k, raw := range body {
		switch val := raw.(type) {
		case nil:
			continue
		case string:
			out.Set(k, val)
		case bool:
			out.Set(k, strconv.FormatBool(val))
		case json.Number:
			out.Set(k, val.String())
		default:
			return nil, &FieldError{Field: k, Message: fmt.Sprintf("%s must be a scalar value", k)}
		}
	}
	return out, nil
}

// Applicant builds a pending applicant from a validated submission. Free text
// is stripped of markup; contribution details are dropped when the applicant
// does not want to contribute.
func (s *Submission) Applicant() models.Applicant {
	a := models.Applicant{
		Name:                     normalize.Name(htmlsanitize.PlainText(s.Name)),
		NationalID:               s.NationalID,
		NationalIDDigits:         nationalid.Digits(s.NationalID),
		Email:                    normalize.Email(s.Email),
		Phone:                    s.Phone,
		Sex:                      s.Sex,
		State:                    htmlsanitize.PlainText(s.State),
		City:                     htmlsanitize.PlainText(s.City),
		Address:                  htmlsanitize.PlainText(s.Address),
		PostalCode:               s.PostalCode,
		Affiliation:              s.Affiliation,
		AffiliationDetail:        htmlsanitize.PlainText(s.AffiliationDetail),
		ProfessionalStatus:       s.ProfessionalStatus,
		ProfessionalStatusDetail: htmlsanitize.PlainText(s.ProfessionalStatusDetail),
		Education:                s.Education,
		Unit:                     htmlsanitize.PlainText(s.Unit),
		RegistrationNumber:       s.RegistrationNumber,
		ReferrerName:             htmlsanitize.PlainText(s.ReferrerName),
		ReferrerNationalID:       s.ReferrerNationalID,
		Status:                   models.StatusPending,
	}
	if s.BirthDate != nil {
		a.BirthDate = *s.BirthDate
	}
	if s.WantsToContribute != nil && *s.WantsToContribute {
		a.WantsToContribute = true
		a.ContributionAmount = s.ContributionAmount
		a.PayrollDeduction = s.PayrollDeduction
	}
	if s.Incarnate != nil {
		a.Incarnate = *s.Incarnate
	}
	return a
}
