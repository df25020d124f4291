// internal/waitlist/admin/handler_test.go
package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eldercare-waitlist/internal/common/config"
	"eldercare-waitlist/internal/common/logger"
	"eldercare-waitlist/internal/models"
	"eldercare-waitlist/internal/waitlist/referral"
	"eldercare-waitlist/internal/waitlist/repository"
	"eldercare-waitlist/internal/waitlist/submission"
)

// ==========================
// Test Helper Functions
// ==========================

var entryTestColumns = []string{
	"id", "email", "name", "source", "location", "parent_location", "care_needs", "waitlist_number", "created_at",
}

type fakeStats struct {
	stats       *models.WaitlistStats
	err         error
	invalidated int
}

func (f *fakeStats) Stats(_ context.Context) (*models.WaitlistStats, error) {
	return f.stats, f.err
}

func (f *fakeStats) Invalidate(_ context.Context) {
	f.invalidated++
}

func newTestMux(t *testing.T, stats *fakeStats) (*http.ServeMux, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.NewTestLogger(t)
	repo := repository.New(db, 2*time.Second)
	linker := referral.New(db, repo, 2*time.Second, log)
	svc := submission.NewService(
		repo,
		linker,
		config.SiteConfig{BaseURL: "https://times-nri.vercel.app"},
		config.SubmissionConfig{DefaultSource: "main-form", MaxBatchSize: 25},
		nil,
		log,
	)

	handler := NewHandler(repo, linker, svc, stats, nil, log)
	mux := http.NewServeMux()
	handler.Register(mux)
	return mux, mock
}

func doRequest(mux *http.ServeMux, method, target, body string) (*httptest.ResponseRecorder, Envelope) {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var env Envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

// ==========================
// Parameter Parsing Tests
// ==========================

func TestParseQueryParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  models.QueryParams
	}{
		{
			name:  "defaults",
			query: "",
			want:  models.QueryParams{},
		},
		{
			name:  "pagination",
			query: "limit=10&offset=30",
			want:  models.QueryParams{Limit: 10, Offset: 30},
		},
		{
			name:  "garbage numbers ignored",
			query: "limit=ten&offset=x",
			want:  models.QueryParams{},
		},
		{
			name:  "mode selectors",
			query: "email=smith&location=Chennai&parentLocation=Delhi&stats=true",
			want: models.QueryParams{
				Email:          "smith",
				Location:       "Chennai",
				ParentLocation: "Delhi",
				Stats:          true,
			},
		},
		{
			name:  "values trimmed",
			query: "email=%20smith%20",
			want:  models.QueryParams{Email: "smith"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ParseQueryParams(values))
		})
	}
}

// ==========================
// Waitlist Query Tests
// ==========================

func TestHandler_QueryWaitlist_List(t *testing.T) {
	mux, mock := newTestMux(t, &fakeStats{})

	mock.ExpectQuery(`SELECT .+ FROM waitlist_submissions\s+ORDER BY created_at DESC`).
		WithArgs(repository.DefaultListLimit, 0).
		WillReturnRows(sqlmock.NewRows(entryTestColumns).
			AddRow(1, "amma@example.com", nil, "main-form", nil, nil, nil, 1, time.Now()))

	rec, env := doRequest(mux, http.MethodGet, "/api/waitlist", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.RequestID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_QueryWaitlist_EmailSearchWinsOverStats(t *testing.T) {
	mux, mock := newTestMux(t, &fakeStats{stats: &models.WaitlistStats{Total: 1}})

	mock.ExpectQuery(`WHERE email ILIKE`).
		WithArgs("%smith%", repository.DefaultSearchLimit).
		WillReturnRows(sqlmock.NewRows(entryTestColumns))

	rec, env := doRequest(mux, http.MethodGet, "/api/waitlist?email=smith&stats=true", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_QueryWaitlist_Stats(t *testing.T) {
	mux, _ := newTestMux(t, &fakeStats{stats: &models.WaitlistStats{Total: 150, LastWeek: 12}})

	rec, env := doRequest(mux, http.MethodGet, "/api/waitlist?stats=true", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	payload, err := json.Marshal(env.Data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":150,"lastWeek":12}`, string(payload))
}

func TestHandler_QueryWaitlist_StorageErrorIs503(t *testing.T) {
	mux, mock := newTestMux(t, &fakeStats{})

	mock.ExpectQuery(`SELECT .+ FROM waitlist_submissions`).
		WillReturnError(assert.AnError)

	rec, env := doRequest(mux, http.MethodGet, "/api/waitlist", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, submission.MsgDatabaseError, env.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Submission Endpoint Tests
// ==========================

func TestHandler_Submit_Success(t *testing.T) {
	mux, mock := newTestMux(t, &fakeStats{})

	mock.ExpectQuery(`SELECT .+ FROM waitlist_submissions WHERE email`).
		WithArgs("amma@example.com").
		WillReturnRows(sqlmock.NewRows(entryTestColumns))
	mock.ExpectQuery(`INSERT INTO waitlist_submissions`).
		WithArgs("amma@example.com", "main-form", nil, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows(entryTestColumns).
			AddRow(1, "amma@example.com", nil, "main-form", nil, nil, nil, 42, time.Now()))

	rec, env := doRequest(mux, http.MethodPost, "/api/waitlist", `{"email":"amma@example.com"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, submission.MsgAdded, env.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Submit_SchemaRejectsNonStringEmail(t *testing.T) {
	mux, _ := newTestMux(t, &fakeStats{})

	rec, env := doRequest(mux, http.MethodPost, "/api/waitlist", `{"email":42}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
}

func TestHandler_Submit_MissingEmail(t *testing.T) {
	mux, _ := newTestMux(t, &fakeStats{})

	rec, env := doRequest(mux, http.MethodPost, "/api/waitlist", `{"source":"main-form"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
}

// ==========================
// Entry Management Tests
// ==========================

func TestHandler_UpdateEntry_UnknownFieldIs400(t *testing.T) {
	mux, _ := newTestMux(t, &fakeStats{})

	rec, env := doRequest(mux, http.MethodPatch, "/api/waitlist/7", `{"created_at":"2020-01-01"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
}

func TestHandler_UpdateEntry_Success(t *testing.T) {
	mux, mock := newTestMux(t, &fakeStats{})

	mock.ExpectQuery(`UPDATE waitlist_submissions`).
		WithArgs("Asha", int64(7)).
		WillReturnRows(sqlmock.NewRows(entryTestColumns).
			AddRow(7, "amma@example.com", "Asha", "main-form", nil, nil, nil, 12, time.Now()))

	rec, env := doRequest(mux, http.MethodPatch, "/api/waitlist/7", `{"name":"Asha"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_UpdateEntry_NotFoundIs404(t *testing.T) {
	mux, mock := newTestMux(t, &fakeStats{})

	mock.ExpectQuery(`UPDATE waitlist_submissions`).
		WithArgs("Asha", int64(404)).
		WillReturnRows(sqlmock.NewRows(entryTestColumns))

	rec, env := doRequest(mux, http.MethodPatch, "/api/waitlist/404", `{"name":"Asha"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_DeleteEntry_InvalidatesStatsCache(t *testing.T) {
	stats := &fakeStats{}
	mux, mock := newTestMux(t, stats)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM referrals WHERE referrer_id`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM referral_details WHERE referrer_id`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE referral_details SET referred_id = NULL`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM waitlist_submissions WHERE id`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec, env := doRequest(mux, http.MethodDelete, "/api/waitlist/7", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, 1, stats.invalidated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_DeleteEntry_MissingIs404(t *testing.T) {
	stats := &fakeStats{}
	mux, mock := newTestMux(t, stats)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM referrals WHERE referrer_id`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM referral_details WHERE referrer_id`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE referral_details SET referred_id = NULL`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM waitlist_submissions WHERE id`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	rec, env := doRequest(mux, http.MethodDelete, "/api/waitlist/404", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
	assert.Zero(t, stats.invalidated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Referral Endpoint Tests
// ==========================

func TestHandler_ListReferrals_ByEmail(t *testing.T) {
	mux, mock := newTestMux(t, &fakeStats{})

	mock.ExpectQuery(`SELECT .+ FROM waitlist_submissions WHERE email`).
		WithArgs("referrer@example.com").
		WillReturnRows(sqlmock.NewRows(entryTestColumns).
			AddRow(7, "referrer@example.com", nil, "main-form", nil, nil, nil, 7, time.Now()))
	mock.ExpectQuery(`FROM referrals\s+WHERE referrer_id`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "referrer_id", "referred_email", "status", "created_at"}).
			AddRow(1, 7, "friend@example.com", "pending", time.Now()))

	rec, env := doRequest(mux, http.MethodGet, "/api/referrals?referrerEmail=referrer@example.com", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_ListReferrals_MissingReferrerIs400(t *testing.T) {
	mux, _ := newTestMux(t, &fakeStats{})

	rec, env := doRequest(mux, http.MethodGet, "/api/referrals", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
}

func TestHandler_UpdateReferral_BadStatusIs400(t *testing.T) {
	mux, _ := newTestMux(t, &fakeStats{})

	rec, env := doRequest(mux, http.MethodPatch, "/api/referrals/1", `{"status":"archived"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
}

func TestHandler_DeleteReferral_Detailed(t *testing.T) {
	mux, mock := newTestMux(t, &fakeStats{})

	mock.ExpectExec(`DELETE FROM referral_details WHERE id`).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec, env := doRequest(mux, http.MethodDelete, "/api/referrals/2?detailed=true", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}
