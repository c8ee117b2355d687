package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whhaicheng/PenguinBM/internal/app/usecase"
	"github.com/whhaicheng/PenguinBM/internal/domain/config"
	"github.com/whhaicheng/PenguinBM/internal/domain/query"
)

// fakeQuerier validates the query and returns a fixed result.
type fakeQuerier struct {
	got    query.Spec
	result *usecase.QueryResult
	err    error
}

func (f *fakeQuerier) Values(_ context.Context, spec query.Spec) (*usecase.QueryResult, error) {
	f.got = spec
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestServer(q Querier) http.Handler {
	cfg := config.ServerConfig{Address: "127.0.0.1:0", ReadTimeout: time.Second, WriteTimeout: time.Second}
	return NewServer(cfg, q, slog.New(slog.NewTextHandler(io.Discard, nil))).Handler()
}

func postQuery(t *testing.T, h http.Handler, form url.Values, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func validForm() url.Values {
	return url.Values{
		"id":        {"Query"},
		"temporal":  {"1990-01-01 - 1990-12-31"},
		"rowselect": {"0,10"},
		"colselect": {"5,20"},
		"pselect":   {"150,250"},
	}
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body struct {
		Error map[string]string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestUserQuery_ReturnsValues(t *testing.T) {
	q := &fakeQuerier{result: &usecase.QueryResult{Rows: 3, Values: []float64{200.5, 210, 199.25}, ElapsedMs: 1.5}}
	rec := postQuery(t, newTestServer(q), validForm(), "/user_query")

	require.Equal(t, http.StatusOK, rec.Code)
	var values []float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &values))
	assert.Equal(t, []float64{200.5, 210, 199.25}, values)
	assert.Equal(t, "3", rec.Header().Get("X-Penguin-Rows"))
	assert.Equal(t, "1.500", rec.Header().Get("X-Penguin-Elapsed-Ms"))

	assert.Equal(t, query.ModeCombo, q.got.Mode)
	assert.Equal(t, query.Continuous, q.got.Continuity)
	assert.Equal(t, query.MonthAll, q.got.Month)
	assert.Equal(t, &query.IntRange{Min: 0, Max: 10}, q.got.Rows)
	assert.Equal(t, &query.IntRange{Min: 5, Max: 20}, q.got.Cols)
	assert.Equal(t, &query.ValueRange{Min: 150, Max: 250}, q.got.Values)
	require.NotNil(t, q.got.Dates)
	assert.Equal(t, "1990-12-31", q.got.Dates.End.Format(query.DateLayout))
}

func TestUserQuery_EmptyResultIsEmptyList(t *testing.T) {
	q := &fakeQuerier{result: &usecase.QueryResult{}}
	rec := postQuery(t, newTestServer(q), validForm(), "/user_query")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestUserQuery_Detail(t *testing.T) {
	q := &fakeQuerier{result: &usecase.QueryResult{SQL: "SELECT 1", Rows: 1, Values: []float64{201}}}
	rec := postQuery(t, newTestServer(q), validForm(), "/user_query?detail=true")

	require.Equal(t, http.StatusOK, rec.Code)
	var res usecase.QueryResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "SELECT 1", res.SQL)
	assert.Equal(t, []float64{201}, res.Values)
}

func TestUserQuery_BadInput(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
		code  string
		bad   string
	}{
		{"missing temporal", "temporal", "", "missing_field", "temporal"},
		{"short temporal", "temporal", "1990-01-01", "malformed_range", "temporal"},
		{"bad row pair", "rowselect", "10", "malformed_range", "rowselect"},
		{"inverted cols", "colselect", "20,5", "malformed_range", "colselect"},
		{"inverted values", "pselect", "250,150", "malformed_range", "value_range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			form.Set(tt.field, tt.value)
			rec := postQuery(t, newTestServer(&fakeQuerier{result: &usecase.QueryResult{}}), form, "/user_query")

			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := errorBody(t, rec)
			assert.Equal(t, tt.code, body["code"])
			assert.Equal(t, tt.bad, body["field"])
		})
	}
}

func TestUserQuery_UnknownID(t *testing.T) {
	form := validForm()
	form.Set("id", "Other")
	rec := postQuery(t, newTestServer(&fakeQuerier{}), form, "/user_query")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorBody(t, rec)["message"], "Other")
}

func TestUserQuery_EngineFailureIs500(t *testing.T) {
	q := &fakeQuerier{err: errors.New("load tables: connection refused")}
	rec := postQuery(t, newTestServer(q), validForm(), "/user_query")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := errorBody(t, rec)
	assert.Equal(t, "internal_error", body["code"])
	assert.NotContains(t, body["message"], "connection refused")
}

func TestIndexAndHealthz(t *testing.T) {
	h := newTestServer(&fakeQuerier{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="pselect"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
