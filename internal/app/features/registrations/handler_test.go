package registrations_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/dalemusser/hackreg/internal/app/features/registrations"
	registrationstore "github.com/dalemusser/hackreg/internal/app/store/registrations"
	"github.com/dalemusser/hackreg/internal/app/system/blobstore"
	"github.com/dalemusser/hackreg/internal/app/system/ratelimit"
	"github.com/dalemusser/hackreg/internal/app/system/submission"
	"github.com/dalemusser/hackreg/internal/testutil"
	"go.uber.org/zap"
)

type memBlobs struct {
	mu   sync.Mutex
	keys []string
}

func (m *memBlobs) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) (blobstore.Object, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return blobstore.Object{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return blobstore.Object{Key: key, URL: "https://cdn.test/" + key}, nil
}

func (m *memBlobs) Delete(context.Context, string) error { return nil }

func newHandler(t *testing.T) (http.Handler, *memBlobs) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	gate := ratelimit.NewGate(ratelimit.NewMemoryStore(nil), ratelimit.DefaultPolicies())
	blobs := &memBlobs{}
	orch := submission.New(gate, registrationstore.New(db), blobs, submission.WithTempDir(t.TempDir()))
	return registrations.Routes(registrations.NewHandler(orch, false, zap.NewNop())), blobs
}

func form(teamName string, emails ...string) map[string]string {
	var ps []map[string]string
	for i, e := range emails {
		ps = append(ps, map[string]string{
			"name": "Member", "email": e, "age": "20",
			"phone":                 "98765432" + string(rune('1'+i)) + "0",
			"studentOrProfessional": "student", "collegeOrCompanyName": "IIT Bombay",
		})
	}
	b, _ := json.Marshal(ps)
	return map[string]string{
		"team_name":    teamName,
		"team_size":    string(rune('0' + len(emails))),
		"participants": string(b),
		"idea_title":   "Smart Campus",
	}
}

func pdf(size int) testutil.FilePart {
	data := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("0"), size-9)...)
	return testutil.FilePart{Field: "idea_document", Filename: "idea.pdf", ContentType: "application/pdf", Data: data}
}

func TestServeCreate_RegistersThenRejectsDuplicate(t *testing.T) {
	h, blobs := newHandler(t)

	rec := testutil.NewRecorder()
	h.ServeHTTP(rec, testutil.NewMultipartRequest("POST", "/", form("ByteForce", "a@x.io", "b@x.io"), pdf(2<<20)))
	rec.AssertStatus(t, http.StatusCreated)

	var body struct {
		TeamID            string `json:"team_id"`
		TeamName          string `json:"team_name"`
		ParticipantsCount int    `json:"participants_count"`
		RegistrationDate  string `json:"registration_date"`
	}
	rec.DecodeJSON(t, &body)
	if body.TeamName != "ByteForce" || body.ParticipantsCount != 2 || body.TeamID == "" || body.RegistrationDate == "" {
		t.Errorf("unexpected receipt: %+v", body)
	}
	if len(blobs.keys) != 1 {
		t.Fatalf("expected one upload, got %d", len(blobs.keys))
	}

	rec = testutil.NewRecorder()
	h.ServeHTTP(rec, testutil.NewMultipartRequest("POST", "/", form("ByteForce", "c@x.io", "d@x.io"), pdf(1024)))
	rec.AssertStatus(t, http.StatusConflict)
	rec.AssertContains(t, `"error":"Duplicate team name"`)
}

func TestServeCreate_MissingDocument(t *testing.T) {
	h, _ := newHandler(t)
	rec := testutil.NewRecorder()
	h.ServeHTTP(rec, testutil.NewMultipartRequest("POST", "/", form("NoDoc", "a@x.io")))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "Missing idea document")
}

func TestServeCreate_OversizedDocument(t *testing.T) {
	h, blobs := newHandler(t)
	rec := testutil.NewRecorder()
	h.ServeHTTP(rec, testutil.NewMultipartRequest("POST", "/", form("Huge", "a@x.io"), pdf(int(submission.DefaultMaxDocumentBytes)+1)))
	rec.AssertStatus(t, http.StatusRequestEntityTooLarge)
	if len(blobs.keys) != 0 {
		t.Errorf("no upload expected, got %d", len(blobs.keys))
	}
}

func TestServeAvailability(t *testing.T) {
	h, _ := newHandler(t)

	rec := testutil.NewRecorder()
	h.ServeHTTP(rec, testutil.NewMultipartRequest("POST", "/", form("Taken", "a@x.io"), pdf(1024)))
	rec.AssertStatus(t, http.StatusCreated)

	rec = testutil.NewRecorder()
	h.ServeHTTP(rec, testutil.NewRequest("GET", "/?team_name=taken"))
	rec.AssertStatus(t, http.StatusOK)
	var res submission.Availability
	rec.DecodeJSON(t, &res)
	if res.Available {
		t.Error("expected name to be taken")
	}

	rec = testutil.NewRecorder()
	h.ServeHTTP(rec, testutil.NewRequest("GET", "/?team_name=Fresh"))
	rec.AssertContains(t, "Team name is available")

	rec = testutil.NewRecorder()
	h.ServeHTTP(rec, testutil.NewRequest("GET", "/"))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "Team name parameter is required")
}
