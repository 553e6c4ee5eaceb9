package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"

	RecurringExpense RecurringType = "expense"
	RecurringIncome  RecurringType = "income"

	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"

	JobScheduled JobStatus = "scheduled"
	JobCompleted JobStatus = "completed"
	JobCancelled JobStatus = "cancelled"
)

// RecurringTag marks records created by the recurring scheduler.
const RecurringTag = "récurrent"

// RecurringPrefix is prepended to the description of generated records.
const RecurringPrefix = "(Récurrent) "

type (
	Frequency     string
	RecurringType string
	ProjectStatus string
	JobStatus     string

	// Coordinate is a GPS position with an optional reverse-geocoded address.
	Coordinate struct {
		Lat     float64 `json:"lat"`
		Lng     float64 `json:"lng"`
		Address string  `json:"address,omitempty"`
	}

	WorkSession struct {
		ID            int64       `json:"id"`
		StartTime     time.Time   `json:"startTime"`
		EndTime       *time.Time  `json:"endTime,omitempty"`
		HourlyRate    Money       `json:"hourlyRate"`
		TotalEarned   *Money      `json:"totalEarned,omitempty"`
		ClientID      *int64      `json:"clientId,omitempty"`
		ProjectID     *int64      `json:"projectId,omitempty"`
		Notes         string      `json:"notes,omitempty"`
		StartLocation *Coordinate `json:"startLocation,omitempty"`
		EndLocation   *Coordinate `json:"endLocation,omitempty"`
		CreatedAt     time.Time   `json:"createdAt"`
		UpdatedAt     time.Time   `json:"updatedAt"`
	}

	Expense struct {
		ID              int64     `json:"id"`
		Title           string    `json:"title"`
		Amount          Money     `json:"amount"`
		Category        string    `json:"category"`
		Date            time.Time `json:"date"`
		Description     string    `json:"description,omitempty"`
		ProjectID       *int64    `json:"projectId,omitempty"`
		Tags            []string  `json:"tags,omitempty"`
		Receipt         []byte    `json:"receipt,omitempty"`
		RecurringItemID *int64    `json:"recurringItemId,omitempty"`
		CreatedAt       time.Time `json:"createdAt"`
		UpdatedAt       time.Time `json:"updatedAt"`
	}

	// Income is a non-session revenue record. Only the recurring scheduler
	// creates them, and only when income materialization is enabled.
	Income struct {
		ID              int64     `json:"id"`
		Title           string    `json:"title"`
		Amount          Money     `json:"amount"`
		Category        string    `json:"category"`
		Date            time.Time `json:"date"`
		Description     string    `json:"description,omitempty"`
		ProjectID       *int64    `json:"projectId,omitempty"`
		Tags            []string  `json:"tags,omitempty"`
		RecurringItemID *int64    `json:"recurringItemId,omitempty"`
		CreatedAt       time.Time `json:"createdAt"`
		UpdatedAt       time.Time `json:"updatedAt"`
	}

	MileageEntry struct {
		ID            int64       `json:"id"`
		Date          time.Time   `json:"date"`
		StartAddress  string      `json:"startAddress"`
		EndAddress    string      `json:"endAddress"`
		Distance      float64     `json:"distance"` // km
		Purpose       string      `json:"purpose"`
		StartTime     *time.Time  `json:"startTime,omitempty"`
		EndTime       *time.Time  `json:"endTime,omitempty"`
		StartLocation *Coordinate `json:"startLocation,omitempty"`
		EndLocation   *Coordinate `json:"endLocation,omitempty"`
		CreatedAt     time.Time   `json:"createdAt"`
		UpdatedAt     time.Time   `json:"updatedAt"`
	}

	Client struct {
		ID        int64     `json:"id"`
		Name      string    `json:"name"`
		Email     string    `json:"email,omitempty"`
		Phone     string    `json:"phone,omitempty"`
		Address   string    `json:"address,omitempty"`
		Notes     string    `json:"notes,omitempty"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	Project struct {
		ID          int64         `json:"id"`
		Name        string        `json:"name"`
		ClientID    *int64        `json:"clientId,omitempty"`
		Color       string        `json:"color"`
		HourlyRate  *Money        `json:"hourlyRate,omitempty"`
		Status      ProjectStatus `json:"status"`
		Description string        `json:"description,omitempty"`
		CreatedAt   time.Time     `json:"createdAt"`
		UpdatedAt   time.Time     `json:"updatedAt"`
	}

	// Job is a calendar event booked with a client.
	Job struct {
		ID          int64     `json:"id"`
		ClientID    *int64    `json:"clientId,omitempty"`
		ClientName  string    `json:"clientName"`
		Date        time.Time `json:"date"`
		Description string    `json:"description"`
		Address     string    `json:"address,omitempty"`
		Status      JobStatus `json:"status"`
		Notes       string    `json:"notes,omitempty"`
		CreatedAt   time.Time `json:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt"`
	}

	// RecurringItem is a template the scheduler turns into ledger records.
	// NextDate and LastGeneratedDate are owned by the scheduler.
	RecurringItem struct {
		ID                int64         `json:"id"`
		Title             string        `json:"title"`
		Type              RecurringType `json:"type"`
		Amount            Money         `json:"amount"`
		Category          string        `json:"category"`
		Frequency         Frequency     `json:"frequency"`
		StartDate         time.Time     `json:"startDate"`
		NextDate          time.Time     `json:"nextDate"`
		LastGeneratedDate *time.Time    `json:"lastGeneratedDate,omitempty"`
		Active            bool          `json:"active"`
		ProjectID         *int64        `json:"projectId,omitempty"`
		CreatedAt         time.Time     `json:"createdAt"`
		UpdatedAt         time.Time     `json:"updatedAt"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidRate      = errors.New("invalid hourly rate")
	ErrEmptyTitle       = errors.New("empty title")
	ErrEmptyName        = errors.New("empty name")
	ErrZeroDate         = errors.New("date cannot be zero")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidType      = errors.New("invalid recurring type")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidDistance  = errors.New("invalid distance")
	ErrInvalidInterval  = errors.New("end time before start time")
	ErrSessionStopped   = errors.New("work session already stopped")
)

// IsValidationError reports whether err comes from a Validate method.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidAmount, ErrInvalidRate, ErrEmptyTitle, ErrEmptyName, ErrZeroDate,
		ErrInvalidFrequency, ErrInvalidType, ErrInvalidStatus, ErrInvalidDistance,
		ErrInvalidInterval, ErrSessionStopped, ErrInvalidQuantity, ErrNoLineItems,
		ErrInvalidInvoiceType, ErrEmptyDocument, ErrDocumentTooBig, ErrInvalidDocument,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (f Frequency) Valid() bool {
	switch f {
	case Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (s WorkSession) Validate() error {
	if s.StartTime.IsZero() {
		return ErrZeroDate
	}
	if s.HourlyRate.Cents < 0 {
		return ErrInvalidRate
	}
	if s.EndTime != nil && s.EndTime.Before(s.StartTime) {
		return ErrInvalidInterval
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.Date.IsZero() {
		return ErrZeroDate
	}
	if len(strings.TrimSpace(e.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(e.Title) > 200 {
		return fmt.Errorf("%w: title too long (max 200 characters)", ErrEmptyTitle)
	}
	return nil
}

func (i Income) Validate() error {
	if err := i.Amount.Validate(); err != nil {
		return err
	}
	if i.Date.IsZero() {
		return ErrZeroDate
	}
	if len(strings.TrimSpace(i.Title)) == 0 {
		return ErrEmptyTitle
	}
	return nil
}

func (m MileageEntry) Validate() error {
	if m.Date.IsZero() {
		return ErrZeroDate
	}
	if m.Distance < 0 {
		return ErrInvalidDistance
	}
	if m.StartTime != nil && m.EndTime != nil && m.EndTime.Before(*m.StartTime) {
		return ErrInvalidInterval
	}
	return nil
}

func (c Client) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (p Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	switch p.Status {
	case ProjectActive, ProjectCompleted, ProjectArchived:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, p.Status)
	}
	if p.HourlyRate != nil && p.HourlyRate.Cents < 0 {
		return ErrInvalidRate
	}
	return nil
}

func (j Job) Validate() error {
	if j.Date.IsZero() {
		return ErrZeroDate
	}
	if strings.TrimSpace(j.Description) == "" && strings.TrimSpace(j.ClientName) == "" {
		return ErrEmptyTitle
	}
	switch j.Status {
	case JobScheduled, JobCompleted, JobCancelled:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, j.Status)
	}
	return nil
}

func (r RecurringItem) Validate() error {
	if len(strings.TrimSpace(r.Title)) == 0 {
		return ErrEmptyTitle
	}
	switch r.Type {
	case RecurringExpense, RecurringIncome:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidType, r.Type)
	}
	if !r.Frequency.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, r.Frequency)
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if r.StartDate.IsZero() || r.NextDate.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// HasTag reports whether tag is present on the expense.
func (e Expense) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
