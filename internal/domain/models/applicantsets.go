// internal/domain/models/applicantsets.go
package models

// Applicant lifecycle states.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// ApplicantStatuses is the full set of lifecycle states.
var ApplicantStatuses = []string{StatusPending, StatusApproved, StatusRejected}

// OtherOption is the closed-set value that requires a free-text qualifier.
const OtherOption = "Outros"

// Closed sets for applicant fields. These values are stored as-is and are
// the single source of truth for intake validation and collection schemas.
var (
	Sexes = []string{"masculino", "feminino"}

	Affiliations = []string{
		"Marinha",
		"Exército",
		"Força Aérea",
		"Polícia Militar",
		"Corpo de Bombeiros Militar",
		"Civil",
		OtherOption,
	}

	ProfessionalStatuses = []string{
		"Ativa",
		"Reserva",
		"Reformado",
		"Aposentado",
		"Pensionista",
		OtherOption,
	}

	EducationLevels = []string{"fundamental", "medio", "superior", "mestre", "doutor"}
)

// Staff roles.
const (
	RoleAdmin     = "admin"
	RoleSecretary = "secretario"
)

// Roles is the set of roles a staff user may hold.
var Roles = []string{RoleAdmin, RoleSecretary}
