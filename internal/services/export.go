package services

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/devcon-dev/devcon/db"
	"github.com/devcon-dev/devcon/internal/models"
)

// AttendeeRow is one flattened participant record for the check-in desk
// export.
type AttendeeRow struct {
	Name                string
	Email               string
	University          string
	Phone               string
	StudentID           string
	CNIC                string
	Track               string
	Team                string
	IsTeamLead          bool
	TShirtSize          string
	EmergencyContact    string
	DietaryRequirements string
	PaymentStatus       string
	PaymentMethod       string
	AmountPaid          float64
	PaymentVerifiedAt   string
	RegisteredAt        string
}

var attendeeHeader = []string{
	"Name", "Email", "University", "Phone", "Student ID", "CNIC", "Track",
	"Team", "Is Team Lead", "T-Shirt Size", "Emergency Contact",
	"Dietary Requirements", "Payment Status", "Payment Method", "Amount Paid",
	"Payment Verified At", "Registered At",
}

const exportTimeLayout = "2006-01-02 15:04:05"

// AttendeeRows loads every participant with user, team, and payment data
// flattened for export.
func AttendeeRows() ([]AttendeeRow, error) {
	var participants []models.Participant

	if err := db.DB.Preload("User").Preload("Team").Preload("Payment").
		Order("id").Find(&participants).Error; err != nil {
		return nil, err
	}

	rows := make([]AttendeeRow, 0, len(participants))

	for _, p := range participants {
		row := AttendeeRow{
			Name:                p.User.FullName,
			Email:               p.User.Email,
			University:          p.User.University,
			Phone:               p.User.PhoneNumber,
			StudentID:           p.StudentID,
			CNIC:                p.CNIC,
			Track:               string(p.Track),
			Team:                "Individual",
			IsTeamLead:          p.IsTeamLead,
			TShirtSize:          string(p.TShirtSize),
			EmergencyContact:    p.EmergencyContact,
			DietaryRequirements: p.DietaryRequirements,
			PaymentStatus:       "unpaid",
			RegisteredAt:        p.User.CreatedAt.Format(exportTimeLayout),
		}

		if p.Team != nil {
			row.Team = p.Team.Name
		}

		if p.Payment != nil {
			row.PaymentStatus = string(p.Payment.Status)
			row.PaymentMethod = string(p.Payment.Method)
			row.AmountPaid = p.Payment.Amount
			row.PaymentVerifiedAt = formatExportTime(p.Payment.VerifiedAt)
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// WriteCSV streams the attendee list as CSV.
func WriteCSV(w io.Writer, rows []AttendeeRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(attendeeHeader); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{
			row.Name, row.Email, row.University, row.Phone, row.StudentID,
			row.CNIC, row.Track, row.Team, strconv.FormatBool(row.IsTeamLead),
			row.TShirtSize, row.EmergencyContact, row.DietaryRequirements,
			row.PaymentStatus, row.PaymentMethod,
			strconv.FormatFloat(row.AmountPaid, 'f', 2, 64),
			row.PaymentVerifiedAt, row.RegisteredAt,
		}

		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

// BuildWorkbook renders the attendee list as an XLSX workbook with a single
// Participants sheet.
func BuildWorkbook(rows []AttendeeRow) (*excelize.File, error) {
	f := excelize.NewFile()

	const sheet = "Participants"

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	header := make([]interface{}, len(attendeeHeader))

	for i, h := range attendeeHeader {
		header[i] = h
	}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)

		if err != nil {
			return nil, err
		}

		values := []interface{}{
			row.Name, row.Email, row.University, row.Phone, row.StudentID,
			row.CNIC, row.Track, row.Team, row.IsTeamLead, row.TShirtSize,
			row.EmergencyContact, row.DietaryRequirements, row.PaymentStatus,
			row.PaymentMethod, row.AmountPaid, row.PaymentVerifiedAt,
			row.RegisteredAt,
		}

		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, err
		}
	}

	return f, nil
}

func formatExportTime(t *time.Time) string {
	if t == nil {
		return ""
	}

	return t.Format(exportTimeLayout)
}
