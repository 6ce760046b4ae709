package workshops

import (
	"fmt"
	"strings"
	"time"

	"github.com/bhfe/cfp-workshops/internal/models"
)

// Input is the body for POST /workshops and PUT /workshops/:id. Dates use YYYY-MM-DD.
type Input struct {
	SeminarDate          string   `json:"seminar_date" binding:"required"`
	Customer             string   `json:"customer" binding:"required"`
	TimeLocation         string   `json:"time_location"`
	ContactName          string   `json:"contact_name"`
	Phone                string   `json:"phone"`
	Email                string   `json:"email"`
	OtherEmail           string   `json:"other_email"`
	Instructor           string   `json:"instructor"`
	InstructorCFPID      string   `json:"instructor_cfp_id"`
	WebinarCompleted     string   `json:"webinar_completed"`
	WebinarSigninLink    string   `json:"webinar_signin_link"`
	CFPBoardAttestForm   string   `json:"cfp_board_attest_form"`
	Location             string   `json:"location"`
	InitialMaterialsSent string   `json:"initial_materials_sent"`
	AllMaterialsSent     string   `json:"all_materials_sent"`
	AttendeesCount       *int     `json:"attendees_count"`
	RosterReceived       string   `json:"roster_received"`
	BatchNumber          *int     `json:"batch_number"`
	BatchDate            string   `json:"batch_date"`
	CFPAcknowledgment    string   `json:"cfp_acknowledgment"`
	InvoiceSent          string   `json:"invoice_sent"`
	InvoiceAmount        *float64 `json:"invoice_amount"`
	InvoiceReceived      string   `json:"invoice_received"`
	SettlementReport     string   `json:"settlement_report"`
	EvalsToCFPB          string   `json:"evals_to_cfpb"`
	Notes                string   `json:"notes"`
	WorkshopCost         *float64 `json:"workshop_cost"`
	WorkshopDescription  string   `json:"workshop_description"`
	MaterialsFiles       string   `json:"materials_files"`
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(models.DateLayout, strings.TrimSpace(s))
}

func optionalDate(field, s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", field)
	}
	return &t, nil
}

// Workshop converts the input into a record. Every optional date is validated.
func (in Input) Workshop() (*models.Workshop, error) {
	date, err := ParseDate(in.SeminarDate)
	if err != nil {
		return nil, fmt.Errorf("invalid seminar_date")
	}
	w := &models.Workshop{
		SeminarDate:         date,
		Customer:            strings.TrimSpace(in.Customer),
		TimeLocation:        in.TimeLocation,
		ContactName:         in.ContactName,
		Phone:               in.Phone,
		Email:               in.Email,
		OtherEmail:          in.OtherEmail,
		Instructor:          in.Instructor,
		InstructorCFPID:     in.InstructorCFPID,
		WebinarCompleted:    in.WebinarCompleted,
		WebinarSigninLink:   in.WebinarSigninLink,
		CFPBoardAttestForm:  in.CFPBoardAttestForm,
		Location:            in.Location,
		AttendeesCount:      in.AttendeesCount,
		RosterReceived:      in.RosterReceived,
		BatchNumber:         in.BatchNumber,
		CFPAcknowledgment:   in.CFPAcknowledgment,
		InvoiceAmount:       in.InvoiceAmount,
		SettlementReport:    in.SettlementReport,
		EvalsToCFPB:         in.EvalsToCFPB,
		Notes:               in.Notes,
		WorkshopCost:        in.WorkshopCost,
		WorkshopDescription: in.WorkshopDescription,
		MaterialsFiles:      strings.TrimSpace(in.MaterialsFiles),
	}
	dates := []struct {
		field string
		value string
		dst   **time.Time
	}{
		{"initial_materials_sent", in.InitialMaterialsSent, &w.InitialMaterialsSent},
		{"all_materials_sent", in.AllMaterialsSent, &w.AllMaterialsSent},
		{"batch_date", in.BatchDate, &w.BatchDate},
		{"invoice_sent", in.InvoiceSent, &w.InvoiceSent},
		{"invoice_received", in.InvoiceReceived, &w.InvoiceReceived},
	}
	for _, d := range dates {
		t, err := optionalDate(d.field, d.value)
		if err != nil {
			return nil, err
		}
		*d.dst = t
	}
	return w, nil
}
