package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/impetus-notes/note-service/internal/blocks"
	"github.com/impetus-notes/note-service/internal/categories"
	"github.com/impetus-notes/note-service/internal/db"
	"github.com/impetus-notes/note-service/internal/events"
	"github.com/impetus-notes/note-service/internal/genai"
	"github.com/impetus-notes/note-service/internal/notes"
	"github.com/impetus-notes/note-service/internal/pipeline"
	"github.com/impetus-notes/note-service/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCounter atomic.Int64

type testServer struct {
	server *httptest.Server
	store  *db.Store
	notes  *notes.Store
}

type serverOptions struct {
	strategy    genai.Strategy
	pdfMaxBytes int64
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()

	store, err := testdb.NewStoreInMemory(fmt.Sprintf("api-test-%d", testCounter.Add(1)))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	bus := events.NewBus()
	bus.Subscribe(&events.ActivityObserver{Recorder: store})

	notesStore := notes.NewStore(store, bus)
	categoryStore := categories.NewStore(store, notesStore, bus)

	strategy := opts.strategy
	if strategy == nil {
		strategy = genai.NewBasicStrategy()
	}
	p := pipeline.New(strategy, notesStore, categoryStore, nil)

	handler := NewHandler(notesStore, categoryStore, p, store, opts.pdfMaxBytes)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	srv := httptest.NewServer(RequestID(mux))
	t.Cleanup(srv.Close)

	return &testServer{server: srv, store: store, notes: notesStore}
}

func (ts *testServer) do(t *testing.T, method, path, owner string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, ts.server.URL+path, reader)
	require.NoError(t, err)
	if owner != "" {
		req.Header.Set(OwnerHeader, owner)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ts.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createNote(t *testing.T, ts *testServer, owner, docID, title string) notes.Note {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/notes", owner, notes.CreateParams{
		DocID:   docID,
		Title:   title,
		Content: blocks.FromPlainText("Some note text for "+title+".", title),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[notes.Note](t, resp)
}

func TestMissingOwnerHeader(t *testing.T) {
	ts := newTestServer(t, serverOptions{})

	for _, path := range []string{"/api/notes", "/api/categories", "/api/activities"} {
		resp := ts.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	resp := ts.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestNoteLifecycle(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	owner := "user-1"

	created := createNote(t, ts, owner, "doc-1", "First Note")
	assert.Equal(t, "doc-1", created.DocID)
	assert.NotEmpty(t, created.ID)
	assert.NotEqual(t, blocks.NoPreview, created.Preview)

	// Fetch by document id.
	resp := ts.do(t, http.MethodGet, "/api/notes/doc-1", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[notes.Note](t, resp)
	assert.Equal(t, created.ID, got.ID)

	// Update rewrites content and re-derives the preview.
	resp = ts.do(t, http.MethodPut, "/api/notes/doc-1", owner, notes.UpdateParams{
		Title:   "First Note v2",
		Content: blocks.FromPlainText("Entirely new body text.", "First Note v2"),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody[notes.Note](t, resp)
	assert.Equal(t, "First Note v2", updated.Title)
	assert.Contains(t, updated.Preview, "Entirely new body text.")

	// Other owners cannot see the note.
	resp = ts.do(t, http.MethodGet, "/api/notes/doc-1", "user-2", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Delete by storage id.
	resp = ts.do(t, http.MethodDelete, "/api/notes/"+created.ID, owner, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/notes/doc-1", owner, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDuplicateDocIDConflicts(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	createNote(t, ts, "user-1", "doc-dup", "Original")

	resp := ts.do(t, http.MethodPost, "/api/notes", "user-1", notes.CreateParams{
		DocID:   "doc-dup",
		Title:   "Duplicate",
		Content: blocks.FromPlainText("Text.", "Duplicate"),
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestListFilters(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	owner := "user-1"

	// A category must exist before notes reference it.
	resp := ts.do(t, http.MethodPost, "/api/categories", owner, CategoryRequest{Name: "Work"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	work := "Work"
	resp = ts.do(t, http.MethodPost, "/api/notes", owner, notes.CreateParams{
		DocID:    "doc-work",
		Title:    "Work Note",
		Content:  blocks.FromPlainText("Work text.", "Work Note"),
		Category: &work,
		Tags:     []string{"urgent"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	createNote(t, ts, owner, "doc-misc", "Misc Note")

	resp = ts.do(t, http.MethodGet, "/api/notes?category=Work", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	found := decodeBody[[]notes.Note](t, resp)
	require.Len(t, found, 1)
	assert.Equal(t, "doc-work", found[0].DocID)

	resp = ts.do(t, http.MethodGet, "/api/notes?tag=urgent", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	found = decodeBody[[]notes.Note](t, resp)
	require.Len(t, found, 1)
	assert.Equal(t, "doc-work", found[0].DocID)
}

func TestCreateNoteUnknownCategory(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	nope := "Nope"
	resp := ts.do(t, http.MethodPost, "/api/notes", "user-1", notes.CreateParams{
		DocID:    "doc-x",
		Title:    "X",
		Content:  blocks.FromPlainText("Text.", "X"),
		Category: &nope,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTogglesAndFlaggedListings(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	owner := "user-1"
	note := createNote(t, ts, owner, "doc-t", "Toggleable")

	resp := ts.do(t, http.MethodPost, "/api/notes/"+note.ID+"/archive", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	toggled := decodeBody[notes.Note](t, resp)
	assert.True(t, toggled.IsArchived)

	resp = ts.do(t, http.MethodPost, "/api/notes/"+note.ID+"/star", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	toggled = decodeBody[notes.Note](t, resp)
	assert.True(t, toggled.IsStarred)

	resp = ts.do(t, http.MethodGet, "/api/notes/archived", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	archived := decodeBody[[]notes.Note](t, resp)
	require.Len(t, archived, 1)

	resp = ts.do(t, http.MethodGet, "/api/notes/starred", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	starred := decodeBody[[]notes.Note](t, resp)
	require.Len(t, starred, 1)

	// A second archive toggle flips back.
	resp = ts.do(t, http.MethodPost, "/api/notes/"+note.ID+"/archive", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	toggled = decodeBody[notes.Note](t, resp)
	assert.False(t, toggled.IsArchived)
}

func TestSetNoteCategory(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	owner := "user-1"

	resp := ts.do(t, http.MethodPost, "/api/categories", owner, CategoryRequest{Name: "Research"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	note := createNote(t, ts, owner, "doc-c", "Categorizable")

	research := "Research"
	resp = ts.do(t, http.MethodPut, "/api/notes/"+note.ID+"/category", owner, SetCategoryRequest{Category: &research})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody[notes.Note](t, resp)
	require.NotNil(t, updated.Category)
	assert.Equal(t, "Research", *updated.Category)

	// Null clears the assignment.
	resp = ts.do(t, http.MethodPut, "/api/notes/"+note.ID+"/category", owner, SetCategoryRequest{Category: nil})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated = decodeBody[notes.Note](t, resp)
	assert.Nil(t, updated.Category)

	// Unknown categories are rejected.
	nope := "Nope"
	resp = ts.do(t, http.MethodPut, "/api/notes/"+note.ID+"/category", owner, SetCategoryRequest{Category: &nope})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCategoryLifecycleWithCascades(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	owner := "user-1"

	resp := ts.do(t, http.MethodPost, "/api/categories", owner, CategoryRequest{Name: "Projects"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	cat := decodeBody[categories.Category](t, resp)

	// Case-insensitive duplicate.
	resp = ts.do(t, http.MethodPost, "/api/categories", owner, CategoryRequest{Name: "PROJECTS"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	projects := "Projects"
	resp = ts.do(t, http.MethodPost, "/api/notes", owner, notes.CreateParams{
		DocID:    "doc-p1",
		Title:    "Project One",
		Content:  blocks.FromPlainText("Text.", "Project One"),
		Category: &projects,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Rename cascades to the note.
	resp = ts.do(t, http.MethodPut, "/api/categories/"+cat.ID, owner, CategoryRequest{Name: "Active Projects"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	renamed := decodeBody[categories.RenameResult](t, resp)
	assert.Equal(t, "Active Projects", renamed.Category.Name)
	assert.Equal(t, int64(1), renamed.NotesUpdated)

	resp = ts.do(t, http.MethodGet, "/api/notes/doc-p1", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	note := decodeBody[notes.Note](t, resp)
	require.NotNil(t, note.Category)
	assert.Equal(t, "Active Projects", *note.Category)

	// Delete cascades too.
	resp = ts.do(t, http.MethodDelete, "/api/categories/"+cat.ID, owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	deleted := decodeBody[categories.DeleteResult](t, resp)
	assert.Equal(t, int64(1), deleted.NotesDeleted)

	resp = ts.do(t, http.MethodGet, "/api/notes/doc-p1", owner, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNoteHTMLRendering(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	owner := "user-1"

	resp := ts.do(t, http.MethodPost, "/api/notes", owner, notes.CreateParams{
		DocID:   "doc-html",
		Title:   "Rendered",
		Content: blocks.FromPlainText("Plain text body.\n<script>alert(1)</script>", "Rendered"),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/notes/doc-html/html", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	html := string(body)
	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, "Plain text body.")
	assert.NotContains(t, html, "<script>")
}

func TestSummaryAndQuizPipelines(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	owner := "user-1"

	resp := ts.do(t, http.MethodPost, "/api/notes", owner, notes.CreateParams{
		DocID:   "doc-src",
		Title:   "Source",
		Content: blocks.FromPlainText("First sentence. Second sentence. Third sentence.", "Source"),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/pipelines/summary/doc-src", owner, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	summary := decodeBody[notes.Note](t, resp)
	assert.Equal(t, "Summary of Source", summary.Title)

	resp = ts.do(t, http.MethodPost, "/api/pipelines/quiz/doc-src", owner, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	quiz := decodeBody[notes.Note](t, resp)
	assert.Equal(t, "Quiz Questions of Source", quiz.Title)

	resp = ts.do(t, http.MethodPost, "/api/pipelines/summary/missing", owner, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func uploadPDF(t *testing.T, ts *testServer, owner, filename string, content []byte) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, ts.server.URL+"/api/pipelines/pdf", &buf)
	require.NoError(t, err)
	req.Header.Set(OwnerHeader, owner)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := ts.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestImportPDFEndpoint(t *testing.T) {
	ts := newTestServer(t, serverOptions{})

	resp := uploadPDF(t, ts, "user-1", "slides.pdf", []byte("%PDF-1.4 slides with text. More text here."))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	note := decodeBody[notes.Note](t, resp)
	assert.True(t, strings.HasPrefix(note.Title, "Note from PDF: slides") ||
		strings.HasPrefix(note.Title, "PDF Upload: slides"), note.Title)
}

func TestImportPDFRejectsWrongFileType(t *testing.T) {
	ts := newTestServer(t, serverOptions{})

	resp := uploadPDF(t, ts, "user-1", "image.png", []byte("\x89PNG\r\n\x1a\nnot a document"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody[ErrorResponse](t, resp)
	assert.Contains(t, body.Error, "not a PDF")

	// A .pdf filename does not rescue non-PDF bytes.
	resp = uploadPDF(t, ts, "user-1", "renamed.pdf", []byte("MZ\x90\x00"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestImportPDFTooLarge(t *testing.T) {
	ts := newTestServer(t, serverOptions{pdfMaxBytes: 100})

	resp := uploadPDF(t, ts, "user-1", "big.pdf", bytes.Repeat([]byte("x"), 4096))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestActivitiesFeed(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	owner := "user-1"

	note := createNote(t, ts, owner, "doc-a", "Tracked")
	resp := ts.do(t, http.MethodPost, "/api/notes/"+note.ID+"/archive", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/activities", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	activities := decodeBody[[]db.Activity](t, resp)
	require.Len(t, activities, 2)

	// Newest first.
	assert.Equal(t, string(events.NoteArchiveToggled), activities[0].Kind)
	assert.Equal(t, string(events.NoteCreated), activities[1].Kind)

	// Owner scoped.
	resp = ts.do(t, http.MethodGet, "/api/activities", "user-2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	other := decodeBody[[]db.Activity](t, resp)
	assert.Empty(t, other)
}
