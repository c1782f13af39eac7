// Package export renders the permanent registry as an .xlsx workbook.
package export

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dalemusser/registryhub/internal/app/system/nationalid"
	"github.com/dalemusser/registryhub/internal/domain/models"
	"github.com/xuri/excelize/v2"
)

// SheetName is the name of the single worksheet in the workbook.
const SheetName = "Registro"

// DateLayout is the display format for dates in the sheet.
const DateLayout = "02/01/2006"

// ErrNothingToExport is returned when there are no records to write.
var ErrNothingToExport = errors.New("nothing to export")

// Columns is the fixed header row, in output order.
var Columns = []string{
	"Número",
	"Nome",
	"CPF",
	"E-mail",
	"Telefone",
	"Data de Nascimento",
	"Idade",
	"Sexo",
	"Estado",
	"Cidade",
	"Endereço",
	"CEP",
	"Vínculo",
	"Situação Profissional",
	"Escolaridade",
	"Unidade",
	"Padrinho",
	"CPF do Padrinho",
	"Contribui",
	"Valor",
	"Desconto em Folha",
	"Encarnado",
	"Aprovado em",
}

// Age returns the number of whole years between birth and now.
// A zero birth date yields 0.
func Age(birth, now time.Time) int {
	if birth.IsZero() {
		return 0
	}
	birth = birth.UTC()
	now = now.UTC()
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// Row returns the cell values for one record, aligned with Columns.
func Row(a models.Applicant, now time.Time) []any {
	birth := ""
	if !a.BirthDate.IsZero() {
		birth = a.BirthDate.UTC().Format(DateLayout)
	}
	var amount any = ""
	if a.ContributionAmount != nil {
		amount = *a.ContributionAmount
	}
	payroll := ""
	if a.PayrollDeduction != nil {
		payroll = yesNo(*a.PayrollDeduction)
	}
	affiliation := a.Affiliation
	if a.AffiliationDetail != "" {
		affiliation += " (" + a.AffiliationDetail + ")"
	}
	professional := a.ProfessionalStatus
	if a.ProfessionalStatusDetail != "" {
		professional += " (" + a.ProfessionalStatusDetail + ")"
	}

	return []any{
		a.RegistrationNumber,
		a.Name,
		nationalid.Format(a.NationalID),
		a.Email,
		a.Phone,
		birth,
		Age(a.BirthDate, now),
		a.Sex,
		a.State,
		a.City,
		a.Address,
		a.PostalCode,
		affiliation,
		professional,
		a.Education,
		a.Unit,
		a.ReferrerName,
		nationalid.Format(a.ReferrerNationalID),
		yesNo(a.WantsToContribute),
		amount,
		payroll,
		yesNo(a.Incarnate),
		a.UpdatedAt.UTC().Format(DateLayout),
	}
}

// Write renders records to w as an .xlsx workbook with one header row and
// one row per record. It returns ErrNothingToExport when records is empty.
func Write(w io.Writer, records []models.Applicant, now time.Time) error {
	if len(records) == 0 {
		return ErrNothingToExport
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = excelize.Cell{StyleID: bold, Value: c}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("header row: %w", err)
	}

	for i, a := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, Row(a, now)); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	return f.Write(w)
}

// Filename returns the attachment name for an export produced at now.
func Filename(now time.Time) string {
	return "registro_" + now.UTC().Format("20060102_150405") + ".xlsx"
}

func yesNo(b bool) string {
	if b {
		return "Sim"
	}
	return "Não"
}
