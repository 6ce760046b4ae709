package signins

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/bhfe/cfp-workshops/internal/models"
)

// ExportHeader is the column row of every sign-in export.
var ExportHeader = []string{
	"Workshop Date",
	"FPA Chapter",
	"Instructor",
	"Location",
	"Time/Location Details",
	"First Name",
	"Last Name",
	"Email",
	"CFP ID",
	"Affiliation",
	"Sign-in Date/Time",
	"Learning Objectives Rating",
	"Content Organized Rating",
	"Content Relevant Rating",
	"Activities Helpful Rating",
	"Instructor Knowledgeable Rating",
	"Overall Rating",
	"Newsletter Signup",
}

const completionLayout = "2006-01-02 15:04:05"

// Slug lowercases s, strips accents and joins the remaining words with hyphens.
func Slug(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// ExportFilename names the download. w is nil for an all-workshops export.
func ExportFilename(w *models.Workshop, today time.Time) string {
	if w == nil {
		return "cfp-ethics-signins-all-workshops-" + today.Format(models.DateLayout) + ".csv"
	}
	return "cfp-ethics-signins-" + w.DateString() + "-" + Slug(w.Customer) + ".csv"
}

func ratingCell(v *int) string {
	if v == nil || *v == 0 {
		return "N/A"
	}
	return strconv.Itoa(*v)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// ExportRow renders one sign-in as CSV cells in ExportHeader order.
func ExportRow(s models.SignInWithWorkshop) []string {
	date := ""
	if s.SeminarDate != nil {
		date = s.SeminarDate.Format(models.DateLayout)
	}
	return []string{
		date,
		s.Customer,
		s.Instructor,
		s.Location,
		s.TimeLocation,
		s.FirstName,
		s.LastName,
		s.Email,
		s.CFPID,
		s.Affiliation,
		s.CompletionDate.Format(completionLayout),
		ratingCell(s.LearningObjectivesRating),
		ratingCell(s.ContentOrganizedRating),
		ratingCell(s.ContentRelevantRating),
		ratingCell(s.ActivitiesHelpfulRating),
		ratingCell(s.InstructorKnowledgeableRating),
		ratingCell(s.OverallRating),
		yesNo(s.EmailNewsletter),
	}
}

// WriteExport writes the sign-in CSV. A single-workshop export (w != nil) opens
// with a short report preamble followed by a blank row.
func WriteExport(out io.Writer, w *models.Workshop, list []models.SignInWithWorkshop) error {
	cw := csv.NewWriter(out)
	if w != nil {
		preamble := [][]string{
			{"CFP Ethics Workshop Sign-in Report"},
			{"Workshop Date:", w.DateString()},
			{"FPA Chapter:", w.Customer},
			{"Instructor:", w.Instructor},
			{"Total Attendees:", strconv.Itoa(len(list))},
			{""},
		}
		if err := cw.WriteAll(preamble); err != nil {
			return err
		}
	}
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	for _, s := range list {
		if err := cw.Write(ExportRow(s)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
