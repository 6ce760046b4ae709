package materials

import (
	"sort"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/bhfe/cfp-workshops/internal/models"
)

// Token names understood by every template.
const (
	TokenWorkshopDate        = "workshop_date"
	TokenWorkshopTime        = "workshop_time"
	TokenLocation            = "location"
	TokenInstructorName      = "instructor_name"
	TokenChapterName         = "chapter_name"
	TokenContactEmail        = "contact_email"
	TokenContactPhone        = "contact_phone"
	TokenContactName         = "contact_name"
	TokenWorkshopCost        = "workshop_cost"
	TokenWebinarLink         = "webinar_link"
	TokenWorkshopDescription = "workshop_description"
	TokenInstructorCFPID     = "instructor_cfp_id"
	TokenAttendeesCount      = "attendees_count"
)

// Vocabulary is the canonical token order. Substitution and reports walk it in this order.
var Vocabulary = []string{
	TokenWorkshopDate,
	TokenWorkshopTime,
	TokenLocation,
	TokenInstructorName,
	TokenChapterName,
	TokenContactEmail,
	TokenContactPhone,
	TokenContactName,
	TokenWorkshopCost,
	TokenWebinarLink,
	TokenWorkshopDescription,
	TokenInstructorCFPID,
	TokenAttendeesCount,
}

// DisplayDateLayout renders dates as "Month D, Year".
const DisplayDateLayout = "January 2, 2006"

var currency = message.NewPrinter(language.English)

// Values maps token names to display strings for one workshop.
type Values map[string]string

// Keys returns the vocabulary tokens followed by any extra keys in sorted order.
func (v Values) Keys() []string {
	keys := make([]string, 0, len(v))
	known := make(map[string]struct{}, len(Vocabulary))
	for _, k := range Vocabulary {
		known[k] = struct{}{}
		if _, ok := v[k]; ok {
			keys = append(keys, k)
		}
	}
	var extra []string
	for k := range v {
		if _, ok := known[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

// BuildReplacementValues derives the display value of every vocabulary token from w.
// Absent optional fields map to "".
func BuildReplacementValues(w *models.Workshop) Values {
	v := make(Values, len(Vocabulary))
	for _, k := range Vocabulary {
		v[k] = ""
	}
	if w == nil {
		return v
	}
	if !w.SeminarDate.IsZero() {
		v[TokenWorkshopDate] = w.SeminarDate.Format(DisplayDateLayout)
	}
	v[TokenWorkshopTime] = w.TimeLocation
	v[TokenLocation] = w.Location
	if v[TokenLocation] == "" {
		v[TokenLocation] = w.TimeLocation
	}
	v[TokenInstructorName] = w.Instructor
	v[TokenChapterName] = w.Customer
	v[TokenContactEmail] = w.Email
	v[TokenContactPhone] = w.Phone
	v[TokenContactName] = w.ContactName
	v[TokenWorkshopCost] = formatCost(w.WorkshopCost)
	v[TokenWebinarLink] = w.WebinarSigninLink
	v[TokenWorkshopDescription] = w.WorkshopDescription
	v[TokenInstructorCFPID] = w.InstructorCFPID
	if w.AttendeesCount != nil && *w.AttendeesCount != 0 {
		v[TokenAttendeesCount] = strconv.Itoa(*w.AttendeesCount)
	}
	return v
}

func formatCost(cost *float64) string {
	if cost == nil || *cost == 0 {
		return ""
	}
	return currency.Sprintf("$%.2f", *cost)
}
