package models

import (
	"time"

	"github.com/google/uuid"
)

// SignIn is one attendee's attendance record and course evaluation.
type SignIn struct {
	ID                            uuid.UUID `json:"id"`
	WorkshopID                    uuid.UUID `json:"workshop_id"`
	FirstName                     string    `json:"first_name"`
	LastName                      string    `json:"last_name"`
	Email                         string    `json:"email"`
	CFPID                         string    `json:"cfp_id"`
	Affiliation                   string    `json:"affiliation"`
	WorkshopDate                  time.Time `json:"workshop_date"`
	LearningObjectivesRating      *int      `json:"learning_objectives_rating,omitempty"`
	ContentOrganizedRating        *int      `json:"content_organized_rating,omitempty"`
	ContentRelevantRating         *int      `json:"content_relevant_rating,omitempty"`
	ActivitiesHelpfulRating       *int      `json:"activities_helpful_rating,omitempty"`
	InstructorKnowledgeableRating *int      `json:"instructor_knowledgeable_rating,omitempty"`
	OverallRating                 *int      `json:"overall_rating,omitempty"`
	EmailNewsletter               bool      `json:"email_newsletter"`
	CompletionDate                time.Time `json:"completion_date"`
	IPAddress                     string    `json:"ip_address,omitempty"`
}

// SignInWithWorkshop is a sign-in joined with the workshop columns used by listings and exports.
type SignInWithWorkshop struct {
	SignIn
	SeminarDate  *time.Time `json:"seminar_date,omitempty"`
	Customer     string     `json:"customer"`
	Instructor   string     `json:"instructor"`
	Location     string     `json:"location"`
	TimeLocation string     `json:"time_location"`
}

// EvaluationSummary aggregates the ratings submitted for one workshop.
type EvaluationSummary struct {
	WorkshopID                 uuid.UUID `json:"workshop_id"`
	SignIns                    int       `json:"signins"`
	NewsletterOptIns           int       `json:"newsletter_opt_ins"`
	AvgLearningObjectives      *float64  `json:"avg_learning_objectives,omitempty"`
	AvgContentOrganized        *float64  `json:"avg_content_organized,omitempty"`
	AvgContentRelevant         *float64  `json:"avg_content_relevant,omitempty"`
	AvgActivitiesHelpful       *float64  `json:"avg_activities_helpful,omitempty"`
	AvgInstructorKnowledgeable *float64  `json:"avg_instructor_knowledgeable,omitempty"`
	AvgOverall                 *float64  `json:"avg_overall,omitempty"`
}
