package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/signflow/internal/editor"
	"github.com/roach88/signflow/internal/model"
	"github.com/roach88/signflow/internal/remote"
	"github.com/roach88/signflow/internal/store"
	"github.com/roach88/signflow/internal/syncer"
	"github.com/roach88/signflow/internal/testutil"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*store.Store, *httptest.Server) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "signflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ts := httptest.NewServer(New(st, WithLogger(discard())).Handler())
	t.Cleanup(ts.Close)
	return st, ts
}

func do(t *testing.T, method, url, body string) (*http.Response, remote.ErrorBody) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var eb remote.ErrorBody
	if resp.StatusCode >= 400 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&eb))
	}
	return resp, eb
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestClientRoundTrip(t *testing.T) {
	_, ts := newTestServer(t)
	ctx := context.Background()
	c := remote.NewClient(ts.URL)

	id, err := c.CreateAgreement(ctx, "Lease", 2)
	require.NoError(t, err)

	ids, err := c.SyncSigners(ctx, id, []model.Signer{
		{UID: "s-a", Name: "A", Email: "a@example.com"},
		{UID: "s-b", Name: "B", Email: "b@example.com"},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	fids, err := c.SyncInputFields(ctx, id, []model.FieldPlacement{
		{UID: "f-1", SignerRef: "s-a", Type: model.FieldSignature, Page: 2, X: 120, Y: 300},
	})
	require.NoError(t, err)
	require.Len(t, fids, 1)

	require.NoError(t, c.UpdateAgreementTitle(ctx, id, "Lease v2"))
	end := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.UpdateAgreementDateSequence(ctx, id, model.DateSequence{EndDate: &end, Sequence: true}))

	a, err := c.GetAgreement(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Lease v2", a.Metadata.Title)
	assert.Equal(t, 2, a.PageCount)
	assert.True(t, a.Metadata.Dates.Sequence)
	require.Len(t, a.Signers, 2)
	assert.Equal(t, ids["s-a"], a.Signers[0].ServerID)
	require.Len(t, a.InputFields, 1)
	assert.Equal(t, fids["f-1"], a.InputFields[0].ServerID)
}

func TestClient_NotFound(t *testing.T) {
	_, ts := newTestServer(t)
	c := remote.NewClient(ts.URL)

	_, err := c.GetAgreement(context.Background(), "missing")
	assert.ErrorIs(t, err, remote.ErrNotFound)

	_, err = c.SyncSigners(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestErrors(t *testing.T) {
	st, ts := newTestServer(t)
	id, err := st.CreateAgreement(context.Background(), "t", 1)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"bad json", http.MethodPut, "/agreements/" + id + "/signers", "{", http.StatusBadRequest, CodeBadRequest},
		{"empty body", http.MethodPut, "/agreements/" + id + "/title", "", http.StatusBadRequest, CodeBadRequest},
		{"unknown field", http.MethodPut, "/agreements/" + id + "/title", `{"name":"x"}`, http.StatusBadRequest, CodeBadRequest},
		{"page out of range", http.MethodPut, "/agreements/" + id + "/fields",
			`[{"uid":"f","field_type":"text","page":3,"x":0,"y":0}]`, http.StatusBadRequest, CodeValidation},
		{"missing uid", http.MethodPut, "/agreements/" + id + "/signers", `[{"name":"A"}]`, http.StatusBadRequest, CodeValidation},
		{"unknown agreement", http.MethodPut, "/agreements/nope/title", `{"title":"x"}`, http.StatusNotFound, CodeNotFound},
		{"unknown route", http.MethodGet, "/nope", "", http.StatusNotFound, CodeNotFound},
		{"wrong method", http.MethodDelete, "/agreements/" + id, "", http.StatusMethodNotAllowed, CodeMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, eb := do(t, tt.method, ts.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, eb.Error.Code)
		})
	}
}

func TestBodyLimit(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "signflow.db"))
	require.NoError(t, err)
	defer st.Close()

	ts := httptest.NewServer(New(st, WithLogger(discard()), WithMaxBodyBytes(16)).Handler())
	defer ts.Close()

	resp, eb := do(t, http.MethodPost, ts.URL+"/agreements", `{"title":"a long title","pages":1}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, CodeTooLarge, eb.Error.Code)
}

func TestStartShutdown(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "signflow.db"))
	require.NoError(t, err)
	defer st.Close()

	srv := New(st, WithLogger(discard()))
	require.NoError(t, srv.Start(context.Background(), "127.0.0.1:0"))
	assert.Error(t, srv.Start(context.Background(), "127.0.0.1:0"))

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.Empty(t, srv.Addr())
}

// TestEditorOverHTTP runs an editor session against the client, the server
// and the SQLite store end to end.
func TestEditorOverHTTP(t *testing.T) {
	st, ts := newTestServer(t)
	ctx := context.Background()

	id, err := st.CreateAgreement(ctx, "Lease", 2)
	require.NoError(t, err)
	_, err = st.SyncSigners(ctx, id, []model.Signer{
		{UID: "s-a", Name: "A", Email: "a@example.com"},
		{UID: "s-b", Name: "B", Email: "b@example.com"},
		{UID: "s-c", Name: "C", Email: "c@example.com"},
	})
	require.NoError(t, err)

	clock := testutil.NewManualClock(time.Time{})
	s, err := editor.Open(ctx, remote.NewClient(ts.URL), id, nil,
		editor.WithClock(clock),
		editor.WithDebounce(time.Second),
		editor.WithUIDGenerator(testutil.NewSequentialUIDs("u")),
		editor.WithLauncher(testutil.Inline),
		editor.WithLogger(discard()),
	)
	require.NoError(t, err)

	_, err = s.Apply(ctx, editor.MoveSigner{UID: "s-a", Position: 3})
	require.NoError(t, err)
	_, err = s.Apply(ctx, editor.PlaceField{Signer: "s-b", Type: model.FieldSignature, Page: 2, X: 120, Y: 300})
	require.NoError(t, err)

	clock.Advance(time.Second)
	s.Drain(ctx)

	assert.Equal(t, syncer.StateArmed, s.StreamState(syncer.StreamSigners))
	assert.Equal(t, syncer.StateArmed, s.StreamState(syncer.StreamFields))
	assert.Empty(t, s.Snapshot().Pending)

	a, err := st.GetAgreement(ctx, id)
	require.NoError(t, err)
	got := make([]model.UID, len(a.Signers))
	for i, sg := range a.Signers {
		got[i] = sg.UID
	}
	assert.Equal(t, []model.UID{"s-b", "s-c", "s-a"}, got)
	require.Len(t, a.InputFields, 1)
	assert.Equal(t, 120, a.InputFields[0].X)
	assert.Equal(t, 300, a.InputFields[0].Y)

	f, ok := s.Field(a.InputFields[0].UID)
	require.True(t, ok)
	assert.Equal(t, a.InputFields[0].ServerID, f.ServerID)
}
