// Package domain defines the job-application record and the hiring pipeline
// model shared by the board engine and its storage backends.
package domain

import (
	"strings"
	"time"

	apperrors "github.com/orba/jobtracker/internal/platform/errors"
)

var (
	// ErrCompanyEmpty indicates a missing company name.
	ErrCompanyEmpty = apperrors.New(apperrors.CodeApplicationCompanyEmpty, "company is required")
	// ErrJobTitleEmpty indicates a missing job title.
	ErrJobTitleEmpty = apperrors.New(apperrors.CodeApplicationJobTitleEmpty, "job title is required")
	// ErrInvalidStage indicates a stage outside the pipeline model.
	ErrInvalidStage = apperrors.New(apperrors.CodeApplicationInvalidStage, "stage is not part of the pipeline")
	// ErrEmptyPatch indicates an edit that touches no editable field.
	ErrEmptyPatch = apperrors.New(apperrors.CodeApplicationNoEditableFields, "patch contains no editable fields")
)

// Application is a single job-application card on the board.
//
// CompanyDescription may contain markup. The engine passes it through
// byte-for-byte; it is untrusted and sanitization belongs to the renderer.
type Application struct {
	ID                 string
	Company            string
	JobTitle           string
	CompanyDescription string
	URL                string
	SubmissionDate     *time.Time
	Status             Stage
	CreatedAt          time.Time
	OwnerScope         string
}

// Draft carries the user-supplied fields for a new application. ID, CreatedAt,
// and OwnerScope are assigned by the store and the engine, never by the user.
type Draft struct {
	Company            string
	JobTitle           string
	CompanyDescription string
	URL                string
	SubmissionDate     *time.Time
}

// NewApplication validates a draft and shapes it into a record ready for
// creation. The returned record has no ID and a zero CreatedAt; the record
// store assigns both.
func NewApplication(draft Draft, ownerScope string) (Application, error) {
	company := strings.TrimSpace(draft.Company)
	if company == "" {
		return Application{}, ErrCompanyEmpty
	}
	jobTitle := strings.TrimSpace(draft.JobTitle)
	if jobTitle == "" {
		return Application{}, ErrJobTitleEmpty
	}

	return Application{
		Company:            company,
		JobTitle:           jobTitle,
		CompanyDescription: draft.CompanyDescription,
		URL:                strings.TrimSpace(draft.URL),
		SubmissionDate:     draft.SubmissionDate,
		Status:             InitialStage(),
		OwnerScope:         ownerScope,
	}, nil
}

// Patch is a partial update restricted to the user-editable fields. Nil
// pointers leave the corresponding field untouched.
type Patch struct {
	Company            *string
	JobTitle           *string
	URL                *string
	Status             *Stage
	CompanyDescription *string
}

// IsEmpty reports whether the patch touches no field.
func (p Patch) IsEmpty() bool {
	return p.Company == nil && p.JobTitle == nil && p.URL == nil &&
		p.Status == nil && p.CompanyDescription == nil
}

// Validate rejects patches that would violate record constraints. Violations
// are reported before any mutation happens.
func (p Patch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}
	if p.Company != nil && strings.TrimSpace(*p.Company) == "" {
		return ErrCompanyEmpty
	}
	if p.JobTitle != nil && strings.TrimSpace(*p.JobTitle) == "" {
		return ErrJobTitleEmpty
	}
	if p.Status != nil && !IsValidStage(*p.Status) {
		return ErrInvalidStage
	}
	return nil
}

// ApplyTo merges the patch into a copy of app and returns it.
func (p Patch) ApplyTo(app Application) Application {
	if p.Company != nil {
		app.Company = strings.TrimSpace(*p.Company)
	}
	if p.JobTitle != nil {
		app.JobTitle = strings.TrimSpace(*p.JobTitle)
	}
	if p.URL != nil {
		app.URL = strings.TrimSpace(*p.URL)
	}
	if p.Status != nil {
		app.Status = *p.Status
	}
	if p.CompanyDescription != nil {
		app.CompanyDescription = *p.CompanyDescription
	}
	return app
}

// Profile carries the optional display names an authenticated user registers
// with. Guests have no profile.
type Profile struct {
	UserID    string
	FirstName string
	LastName  string
	UpdatedAt time.Time
}
