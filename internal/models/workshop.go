package models

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// Workshop is one scheduled ethics workshop with its billing and paperwork trail.
type Workshop struct {
	ID                   uuid.UUID  `json:"id"`
	SeminarDate          time.Time  `json:"seminar_date"`
	Customer             string     `json:"customer"`
	TimeLocation         string     `json:"time_location"`
	ContactName          string     `json:"contact_name"`
	Phone                string     `json:"phone"`
	Email                string     `json:"email"`
	OtherEmail           string     `json:"other_email"`
	Instructor           string     `json:"instructor"`
	InstructorCFPID      string     `json:"instructor_cfp_id"`
	WebinarCompleted     string     `json:"webinar_completed"`
	WebinarSigninLink    string     `json:"webinar_signin_link"`
	CFPBoardAttestForm   string     `json:"cfp_board_attest_form"`
	Location             string     `json:"location"`
	InitialMaterialsSent *time.Time `json:"initial_materials_sent,omitempty"`
	AllMaterialsSent     *time.Time `json:"all_materials_sent,omitempty"`
	AttendeesCount       *int       `json:"attendees_count,omitempty"`
	RosterReceived       string     `json:"roster_received"`
	BatchNumber          *int       `json:"batch_number,omitempty"`
	BatchDate            *time.Time `json:"batch_date,omitempty"`
	CFPAcknowledgment    string     `json:"cfp_acknowledgment"`
	InvoiceSent          *time.Time `json:"invoice_sent,omitempty"`
	InvoiceAmount        *float64   `json:"invoice_amount,omitempty"`
	InvoiceReceived      *time.Time `json:"invoice_received,omitempty"`
	SettlementReport     string     `json:"settlement_report"`
	EvalsToCFPB          string     `json:"evals_to_cfpb"`
	Notes                string     `json:"notes"`
	WorkshopCost         *float64   `json:"workshop_cost,omitempty"`
	WorkshopDescription  string     `json:"workshop_description"`
	MaterialsFiles       string     `json:"materials_files"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// DateString returns the seminar date as YYYY-MM-DD.
func (w *Workshop) DateString() string {
	return w.SeminarDate.Format(DateLayout)
}

// WorkshopFilter narrows workshop listings.
type WorkshopFilter struct {
	Upcoming       *bool  // nil = all, true = on/after today, false = before today
	Chapter        string // exact customer match
	UninvoicedOnly bool
	Limit          int
	Offset         int
}

// AutoCreatedInstructor marks workshops created from a sign-in with no matching record.
const AutoCreatedInstructor = "TBD - Auto-created"

// AutoCreatedNote is stored in Notes for auto-created workshops.
const AutoCreatedNote = "Auto-created from sign-in form submission"
