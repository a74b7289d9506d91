// Package submission runs the final registration step: rate limiting,
// uniqueness and field checks, document upload and persistence.
//
// Checks run in a fixed order and the first failure wins, except that all
// participant field errors are collected before returning. Nothing is
// persisted unless every check passed and the upload succeeded.
package submission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	registrationstore "github.com/dalemusser/hackreg/internal/app/store/registrations"
	"github.com/dalemusser/hackreg/internal/app/system/apperr"
	"github.com/dalemusser/hackreg/internal/app/system/blobstore"
	"github.com/dalemusser/hackreg/internal/app/system/htmlsanitize"
	"github.com/dalemusser/hackreg/internal/app/system/inputval"
	"github.com/dalemusser/hackreg/internal/app/system/ratelimit"
	"github.com/dalemusser/hackreg/internal/app/system/stepval"
	"github.com/dalemusser/hackreg/internal/app/system/uniqueness"
	"github.com/dalemusser/hackreg/internal/domain/models"
	"go.uber.org/zap"
)

// DocumentFolder is the object-key prefix for idea documents.
const DocumentFolder = "idea_documents"

// Submission is one complete registration request. IP is the resolved
// client address used for rate limiting.
type Submission struct {
	IP           string
	TeamName     string
	TeamSize     string
	Participants string
	IdeaTitle    string
	Document     *Document
}

// Receipt is returned for a persisted registration.
type Receipt struct {
	Message           string    `json:"message"`
	TeamID            string    `json:"team_id"`
	TeamName          string    `json:"team_name"`
	ParticipantsCount int       `json:"participants_count"`
	RegistrationDate  time.Time `json:"registration_date"`
}

// Availability is the result of a team-name availability check.
type Availability struct {
	Available bool   `json:"available"`
	TeamName  string `json:"team_name"`
	Message   string `json:"message"`
}

// Registrations is the persistence surface the orchestrator needs.
type Registrations interface {
	uniqueness.Lookup
	Create(ctx context.Context, reg models.TeamRegistration) (models.TeamRegistration, error)
}

type Orchestrator struct {
	gate     *ratelimit.Gate
	regs     Registrations
	unique   *uniqueness.Checker
	blobs    blobstore.Uploader
	log      *zap.Logger
	maxBytes int64
	tempDir  string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxDocumentBytes overrides DefaultMaxDocumentBytes.
func WithMaxDocumentBytes(n int64) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxBytes = n
		}
	}
}

// WithTempDir sets where documents are spooled before upload.
func WithTempDir(dir string) Option { return func(o *Orchestrator) { o.tempDir = dir } }

func WithLogger(l *zap.Logger) Option { return func(o *Orchestrator) { o.log = l } }

func New(gate *ratelimit.Gate, regs Registrations, blobs blobstore.Uploader, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gate:     gate,
		regs:     regs,
		unique:   uniqueness.New(regs),
		blobs:    blobs,
		log:      zap.NewNop(),
		maxBytes: DefaultMaxDocumentBytes,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// MaxDocumentBytes reports the configured document size cap.
func (o *Orchestrator) MaxDocumentBytes() int64 { return o.maxBytes }

var (
	errMalformedParticipants = apperr.New(apperr.Validation, "Invalid participants data format.", "Invalid JSON in participants field")
	errMissingFields         = apperr.New(apperr.Validation, "Required team information is missing.", "Missing required fields")
	errTeamSize              = apperr.New(apperr.Validation, "Team size must be between 1 and 4.", "Invalid team size")
	errDuplicateTeam         = apperr.New(apperr.Conflict, "Team name already exists. Please choose a different name.", "Duplicate team name")
	errCountMismatch         = apperr.New(apperr.Validation, "Number of participants must match team size.", "Participant count mismatch")
	errDuplicateEmails       = apperr.New(apperr.Conflict, "Some participants are already registered in other teams.", "Duplicate participant emails")
	errParticipants          = apperr.New(apperr.Validation, "Participant validation failed.", "Invalid participant data")
	errMissingTitle          = apperr.New(apperr.Validation, "Idea title is required.", "Missing idea title")
	errMissingDocument       = apperr.New(apperr.Validation, "Idea document is required.", "Missing idea document")
	errDocumentType          = apperr.New(apperr.Validation, "Idea document must be in PDF or DOC format.", "Invalid document format")
	errDocumentSize          = apperr.New(apperr.PayloadTooLarge, "Idea document size must be under 5MB.", "File size limit exceeded")
)

// Submit validates, uploads and persists one registration.
func (o *Orchestrator) Submit(ctx context.Context, sub Submission) (Receipt, error) {
	if err := o.consume(ctx, ratelimit.BucketSubmission, sub.IP); err != nil {
		return Receipt{}, err
	}

	participants, err := stepval.DecodeParticipants([]byte(sub.Participants))
	if err != nil {
		return Receipt{}, errMalformedParticipants
	}

	sub, participants = sanitized(sub, participants)

	if inputval.Blank(sub.TeamName) || inputval.Blank(sub.TeamSize) || len(participants) == 0 {
		return Receipt{}, errMissingFields
	}

	size, ok := models.FormValue(sub.TeamSize).Int()
	if !ok || size < 1 || size > 4 {
		return Receipt{}, errTeamSize
	}

	taken, err := o.unique.TeamNameTaken(ctx, sub.TeamName)
	if err != nil {
		return Receipt{}, apperr.Wrap(apperr.Upstream, "Failed to check team name.", "Database error", err)
	}
	if taken {
		return Receipt{}, errDuplicateTeam
	}

	if len(participants) != size {
		return Receipt{}, errCountMismatch
	}

	emails := make([]string, len(participants))
	for i, p := range participants {
		emails[i] = p.Email
	}
	conflicts, err := o.unique.EmailConflicts(ctx, emails)
	if err != nil {
		return Receipt{}, apperr.Wrap(apperr.Upstream, "Failed to check participant emails.", "Database error", err)
	}
	if len(conflicts) > 0 {
		return Receipt{}, errDuplicateEmails.With("duplicate_emails", conflicts)
	}

	if perrs := CheckParticipants(participants); len(perrs) > 0 {
		return Receipt{}, errParticipants.With("participant_errors", perrs)
	}

	if inputval.Blank(sub.IdeaTitle) {
		return Receipt{}, errMissingTitle
	}

	doc := sub.Document
	if doc == nil || doc.Body == nil {
		return Receipt{}, errMissingDocument
	}
	if !IsAcceptedType(doc.ContentType) {
		return Receipt{}, errDocumentType
	}
	if doc.Size > o.maxBytes {
		return Receipt{}, errDocumentSize
	}

	f, n, err := spool(o.tempDir, doc.Body, o.maxBytes)
	if err != nil {
		if errors.Is(err, errTooLarge) {
			return Receipt{}, errDocumentSize
		}
		return Receipt{}, apperr.Wrap(apperr.Upstream, "Failed to upload idea document.", "Upload failed", err)
	}
	defer o.removeTemp(f)

	var pages *int
	if mediaType(doc.ContentType) == MIMEPDF {
		if c, ok := countPages(f, n); ok {
			pages = &c
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return Receipt{}, apperr.Wrap(apperr.Upstream, "Failed to upload idea document.", "Upload failed", err)
		}
	}

	key := blobstore.ObjectKey(DocumentFolder, doc.Filename)
	obj, err := o.blobs.Upload(ctx, key, mediaType(doc.ContentType), f, n)
	if err != nil {
		return Receipt{}, apperr.Wrap(apperr.Upstream, "Failed to upload idea document.", "Upload failed", err)
	}

	reg := buildRecord(sub, size, participants, obj, pages)
	saved, err := o.regs.Create(ctx, reg)
	if err != nil {
		o.deleteBlob(obj.Key)
		switch {
		case errors.Is(err, registrationstore.ErrDuplicateTeamName):
			return Receipt{}, errDuplicateTeam
		case errors.Is(err, registrationstore.ErrDuplicateEmail):
			return Receipt{}, errDuplicateEmails.With("duplicate_emails", o.raceConflicts(ctx, emails))
		}
		return Receipt{}, apperr.Wrap(apperr.Upstream, "Failed to save team registration.", "Database error", err)
	}

	o.log.Info("team registered",
		zap.String("team_id", saved.ID.Hex()),
		zap.String("team_name", saved.TeamName),
		zap.Int("participants", len(saved.Participants)))

	return Receipt{
		Message:           "Team registration successful!",
		TeamID:            saved.ID.Hex(),
		TeamName:          saved.TeamName,
		ParticipantsCount: len(saved.Participants),
		RegistrationDate:  saved.CreatedAt,
	}, nil
}

// CheckAvailability reports whether name is free, consuming one point of
// the access bucket.
func (o *Orchestrator) CheckAvailability(ctx context.Context, ip, name string) (Availability, error) {
	if err := o.consume(ctx, ratelimit.BucketAccess, ip); err != nil {
		return Availability{}, err
	}
	name = htmlsanitize.PlainText(name)
	if inputval.Blank(name) {
		return Availability{}, apperr.New(apperr.Validation, "Team name parameter is required", "Missing team name")
	}
	taken, err := o.unique.TeamNameTaken(ctx, name)
	if err != nil {
		return Availability{}, apperr.Wrap(apperr.Upstream, "Failed to check team name availability", "Database error", err)
	}
	res := Availability{Available: !taken, TeamName: name, Message: "Team name is available"}
	if taken {
		res.Message = "Team name is already taken"
	}
	return res, nil
}

func (o *Orchestrator) consume(ctx context.Context, b ratelimit.Bucket, ip string) error {
	if o.gate == nil {
		return nil
	}
	d, err := o.gate.Consume(ctx, b, ip)
	if err != nil {
		if errors.Is(err, ratelimit.ErrUnavailable) {
			return ratelimit.UnavailableError(err)
		}
		return apperr.Wrap(apperr.Upstream, "Unable to process request", "Rate limit check failed", err)
	}
	if !d.Allowed {
		return ratelimit.DeniedError(d)
	}
	return nil
}

// raceConflicts re-reads the conflicting emails after the unique index
// rejected an insert that passed the pre-check.
func (o *Orchestrator) raceConflicts(ctx context.Context, emails []string) []string {
	conflicts, err := o.unique.EmailConflicts(ctx, emails)
	if err != nil || len(conflicts) == 0 {
		return []string{}
	}
	return conflicts
}

func (o *Orchestrator) deleteBlob(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := o.blobs.Delete(ctx, key); err != nil {
		o.log.Warn("failed to delete orphaned idea document", zap.String("key", key), zap.Error(err))
	}
}

func (o *Orchestrator) removeTemp(f *os.File) {
	_ = f.Close()
	if err := os.Remove(f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		o.log.Warn("failed to remove temp document", zap.String("path", f.Name()), zap.Error(err))
	}
}

// CheckParticipants collects every field error of every participant,
// keyed participant_<index>, plus duplicate emails and phones within the
// team. Phones compare as country code plus digits.
func CheckParticipants(ps []models.ParticipantInput) map[string][]string {
	out := map[string][]string{}
	for _, is := range participantIssues(ps) {
		k := fmt.Sprintf("participant_%d", is.index)
		out[k] = append(out[k], is.Message)
	}
	return out
}

// CheckParticipantFields reports the failures Submit would report for raw
// participant input, keyed participant_<index>_<field> with the first
// message per field.
func CheckParticipantFields(ps []models.ParticipantInput) map[string]string {
	_, ps = sanitized(Submission{}, ps)
	out := map[string]string{}
	for _, is := range participantIssues(ps) {
		k := inputval.ParticipantKey(is.index, is.Field)
		if _, ok := out[k]; !ok {
			out[k] = is.Message
		}
	}
	return out
}

type participantIssue struct {
	index int
	inputval.FieldError
}

func participantIssues(ps []models.ParticipantInput) []participantIssue {
	var out []participantIssue
	emails := map[string]bool{}
	phones := map[string]bool{}

	for i, p := range ps {
		add := func(fe inputval.FieldError) { out = append(out, participantIssue{i, fe}) }
		failed := map[string]bool{}
		for _, fe := range inputval.CheckDetails(p) {
			add(fe)
			failed[fe.Field] = true
		}
		for _, fe := range inputval.CheckProfiles(p) {
			add(fe)
		}

		if !failed[inputval.FieldEmail] {
			e := uniqueness.NormalizeEmail(p.Email)
			if emails[e] {
				add(inputval.FieldError{Field: inputval.FieldEmail, Message: "Duplicate email within team"})
			}
			emails[e] = true
		}
		if !failed[inputval.FieldPhone] {
			ph := normalizedPhone(p)
			if phones[ph] {
				add(inputval.FieldError{Field: inputval.FieldPhone, Message: "Duplicate phone number within team"})
			}
			phones[ph] = true
		}
	}
	return out
}

func normalizedPhone(p models.ParticipantInput) string {
	p.StdCode = strings.TrimSpace(p.StdCode)
	p.Phone = strings.TrimSpace(p.Phone)
	return p.FullPhone()
}

// sanitized strips markup from the free-text fields. Every check after it
// sees exactly what will be stored.
func sanitized(sub Submission, ps []models.ParticipantInput) (Submission, []models.ParticipantInput) {
	sub.TeamName = htmlsanitize.PlainText(sub.TeamName)
	sub.IdeaTitle = htmlsanitize.PlainText(sub.IdeaTitle)
	out := make([]models.ParticipantInput, len(ps))
	for i, p := range ps {
		p.Name = htmlsanitize.PlainText(p.Name)
		p.CollegeOrCompanyName = htmlsanitize.PlainText(p.CollegeOrCompanyName)
		out[i] = p
	}
	return sub, out
}

func buildRecord(sub Submission, size int, ps []models.ParticipantInput, obj blobstore.Object, pages *int) models.TeamRegistration {
	reg := models.TeamRegistration{
		TeamName:          sub.TeamName,
		TeamSize:          size,
		IdeaTitle:         sub.IdeaTitle,
		IdeaDocumentURL:   obj.URL,
		IdeaDocumentKey:   obj.Key,
		IdeaDocumentPages: pages,
		Status:            models.StatusRegistered,
		Participants:      make([]models.Participant, len(ps)),
	}
	for i, p := range ps {
		age, _ := p.Age.Int()
		reg.Participants[i] = models.Participant{
			Name:                  p.Name,
			Email:                 uniqueness.NormalizeEmail(p.Email),
			Age:                   age,
			Phone:                 normalizedPhone(p),
			StudentOrProfessional: p.StudentOrProfessional,
			CollegeOrCompanyName:  p.CollegeOrCompanyName,
			GithubProfile:         inputval.ProfileURL(inputval.ProfileGithub, p.GithubLink),
			LinkedinProfile:       inputval.ProfileURL(inputval.ProfileLinkedin, p.LinkedinLink),
			DevfolioProfile:       inputval.ProfileURL(inputval.ProfileDevfolio, p.DevfolioLink),
		}
	}
	return reg
}
