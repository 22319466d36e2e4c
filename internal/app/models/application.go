package models

import "time"

// EnrollmentStatus is the free-form progress marker of an application.
// Any value may be stored; the constants are the conventional ones.
type EnrollmentStatus string

const (
	EnrollmentPlanning EnrollmentStatus = "planning"
	EnrollmentApplied  EnrollmentStatus = "applied"
	EnrollmentAccepted EnrollmentStatus = "accepted"
	EnrollmentEnrolled EnrollmentStatus = "enrolled"
	EnrollmentRejected EnrollmentStatus = "rejected"
)

// DefaultEnrollmentStatus is applied when a record carries no status key.
const DefaultEnrollmentStatus = EnrollmentPlanning

// Application defines a student's application record in the 'applications' collection
type Application struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"` // Owning account id

	// Personal details
	FirstName     string `json:"first_name"`
	MiddleName    string `json:"middle_name"`
	LastName      string `json:"last_name"`
	ContactNumber string `json:"contact_number"`
	Gender        string `json:"gender"`
	Email         string `json:"email"`

	// Academic details
	FinalPercentage  string `json:"final_percentage"`
	TentativeRanking string `json:"tentative_ranking"`
	FinalYearProject string `json:"final_year_project"`
	OtherProjects    string `json:"other_projects"`
	Publications     string `json:"publications"`

	// University status
	TargetUniversities   string           `json:"target_universities"`
	AppliedUniversities  string           `json:"applied_universities"`
	AcceptedUniversities string           `json:"accepted_universities"`
	EnrolledUniversity   string           `json:"enrolled_university"`
	EnrollmentStatus     EnrollmentStatus `json:"enrollment_status"`
	StudyProgram         string           `json:"study_program"`
	AdmissionYear        string           `json:"admission_year"`
	ScholarshipStatus    string           `json:"scholarship_status"`

	// Additional information
	Extracurricular        string `json:"extracurricular"`
	ProfessionalExperience string `json:"professional_experience"`
	StrongPoints           string `json:"strong_points"`
	WeakPoints             string `json:"weak_points"`

	// File references: an UploadedFile id or a raw path
	Transcript string `json:"transcript"`
	CV         string `json:"cv"`
	Photo      string `json:"photo"`

	PreferredPrograms        string `json:"preferred_programs"`
	References               string `json:"references"`
	StatementOfPurpose       string `json:"statement_of_purpose"`
	IntendedResearchAreas    string `json:"intended_research_areas"`
	EnglishProficiency       string `json:"english_proficiency"`
	LeadershipExperience     string `json:"leadership_experience"`
	AvailabilityToStart      string `json:"availability_to_start"`
	AdditionalCertifications string `json:"additional_certifications"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// applicationTextFields maps stored keys to the plain text fields of an
// Application, in document order.
var applicationTextFields = []struct {
	key   string
	field func(*Application) *string
}{
	{"user_id", func(a *Application) *string { return &a.UserID }},
	{"first_name", func(a *Application) *string { return &a.FirstName }},
	{"middle_name", func(a *Application) *string { return &a.MiddleName }},
	{"last_name", func(a *Application) *string { return &a.LastName }},
	{"contact_number", func(a *Application) *string { return &a.ContactNumber }},
	{"gender", func(a *Application) *string { return &a.Gender }},
	{"email", func(a *Application) *string { return &a.Email }},
	{"final_percentage", func(a *Application) *string { return &a.FinalPercentage }},
	{"tentative_ranking", func(a *Application) *string { return &a.TentativeRanking }},
	{"final_year_project", func(a *Application) *string { return &a.FinalYearProject }},
	{"other_projects", func(a *Application) *string { return &a.OtherProjects }},
	{"publications", func(a *Application) *string { return &a.Publications }},
	{"target_universities", func(a *Application) *string { return &a.TargetUniversities }},
	{"applied_universities", func(a *Application) *string { return &a.AppliedUniversities }},
	{"accepted_universities", func(a *Application) *string { return &a.AcceptedUniversities }},
	{"enrolled_university", func(a *Application) *string { return &a.EnrolledUniversity }},
	{"study_program", func(a *Application) *string { return &a.StudyProgram }},
	{"admission_year", func(a *Application) *string { return &a.AdmissionYear }},
	{"scholarship_status", func(a *Application) *string { return &a.ScholarshipStatus }},
	{"extracurricular", func(a *Application) *string { return &a.Extracurricular }},
	{"professional_experience", func(a *Application) *string { return &a.ProfessionalExperience }},
	{"strong_points", func(a *Application) *string { return &a.StrongPoints }},
	{"weak_points", func(a *Application) *string { return &a.WeakPoints }},
	{"transcript", func(a *Application) *string { return &a.Transcript }},
	{"cv", func(a *Application) *string { return &a.CV }},
	{"photo", func(a *Application) *string { return &a.Photo }},
	{"preferred_programs", func(a *Application) *string { return &a.PreferredPrograms }},
	{"references", func(a *Application) *string { return &a.References }},
	{"statement_of_purpose", func(a *Application) *string { return &a.StatementOfPurpose }},
	{"intended_research_areas", func(a *Application) *string { return &a.IntendedResearchAreas }},
	{"english_proficiency", func(a *Application) *string { return &a.EnglishProficiency }},
	{"leadership_experience", func(a *Application) *string { return &a.LeadershipExperience }},
	{"availability_to_start", func(a *Application) *string { return &a.AvailabilityToStart }},
	{"additional_certifications", func(a *Application) *string { return &a.AdditionalCertifications }},
}

// NewApplication returns an empty application in the planning state.
func NewApplication(userID string) *Application {
	ts := now()
	return &Application{
		UserID:           userID,
		EnrollmentStatus: DefaultEnrollmentStatus,
		CreatedAt:        ts,
		UpdatedAt:        ts,
	}
}

// NewApplicationFromMap builds an Application from raw stored fields.
// Non-string scalars are kept in their text form.
func NewApplicationFromMap(m map[string]any) *Application {
	if m == nil {
		return NewApplication("")
	}
	a := &Application{
		ID:               asString(m[IDKey]),
		EnrollmentStatus: EnrollmentStatus(stringOr(m, "enrollment_status", string(DefaultEnrollmentStatus))),
		CreatedAt:        timeOr(m, "created_at"),
		UpdatedAt:        timeOr(m, "updated_at"),
	}
	for _, f := range applicationTextFields {
		*f.field(a) = asString(m[f.key])
	}
	return a
}

// Document returns the stored form of the application, without the identifier.
func (a *Application) Document() map[string]any {
	doc := make(map[string]any, len(applicationTextFields)+3)
	for _, f := range applicationTextFields {
		doc[f.key] = *f.field(a)
	}
	doc["enrollment_status"] = string(a.EnrollmentStatus)
	doc["created_at"] = a.CreatedAt
	doc["updated_at"] = a.UpdatedAt
	return doc
}

// ToMap returns the outward representation of the application.
func (a *Application) ToMap() map[string]any {
	out := make(map[string]any, len(applicationTextFields)+4)
	out["id"] = idValue(a.ID)
	for _, f := range applicationTextFields {
		out[f.key] = *f.field(a)
	}
	out["enrollment_status"] = string(a.EnrollmentStatus)
	out["created_at"] = formatTimestamp(a.CreatedAt)
	out["updated_at"] = formatTimestamp(a.UpdatedAt)
	return out
}
