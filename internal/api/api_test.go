package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attraddr/attraddr-go/internal/config"
	"github.com/attraddr/attraddr-go/internal/fixture"
	"github.com/attraddr/attraddr-go/internal/gdtf"
	"github.com/attraddr/attraddr-go/internal/services/pubsub"
	"github.com/attraddr/attraddr-go/internal/services/session"
)

func testRouter(t *testing.T) (*session.Session, http.Handler) {
	t.Helper()
	sess := session.New(nil, pubsub.New())
	srv := NewServer(sess, pubsub.New(), "test")
	return sess, srv.Router(&config.Config{Env: "test", CORSOrigin: "http://localhost:3000"})
}

func seedSession(sess *session.Session) {
	registry := gdtf.NewRegistry()
	registry.Add(&gdtf.Profile{
		Name:   "Spot Type Profile",
		Source: gdtf.SourceExternal,
		Modes: []gdtf.Mode{
			{Name: "Standard", Channels: []gdtf.Channel{
				{Attribute: "Dim", Offset: 0},
				{Attribute: "Pan", Offset: 1},
			}},
		},
	})
	fixtures := []*fixture.Fixture{
		fixture.New("Spot 1", "Spot Type", 101, 1, 1),
		fixture.New("Spot 2", "Spot Type", 102, 1, 10),
	}
	sess.AddFixtures(fixtures, registry)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	_, router := testRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestListFixturesEmpty(t *testing.T) {
	_, router := testRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/api/fixtures", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestSetRole(t *testing.T) {
	sess, router := testRouter(t)
	seedSession(sess)
	id := sess.Fixtures()[0].ID

	rec := doJSON(t, router, http.MethodPut, "/api/fixtures/"+id+"/role", map[string]string{"role": "PRIMARY"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, fixture.RolePrimary, sess.Fixtures()[0].Role)
}

func TestSetRoleUnknownFixture(t *testing.T) {
	_, router := testRouter(t)
	rec := doJSON(t, router, http.MethodPut, "/api/fixtures/missing/role", map[string]string{"role": "PRIMARY"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetRoleInvalidValue(t *testing.T) {
	sess, router := testRouter(t)
	seedSession(sess)
	id := sess.Fixtures()[0].ID

	rec := doJSON(t, router, http.MethodPut, "/api/fixtures/"+id+"/role", map[string]string{"role": "BOSS"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCorrectFlaggedFixture(t *testing.T) {
	sess, router := testRouter(t)
	flagged := fixture.New("Spot 1", "Spot Type", 1, 1, 1)
	flagged.FixtureIDInvalid = true
	flagged.AddressInvalid = true
	sess.AddFixtures([]*fixture.Fixture{flagged}, nil)
	id := sess.Fixtures()[0].ID

	rec := doJSON(t, router, http.MethodPut, "/api/fixtures/"+id+"/fixture-id", map[string]int{"fixtureId": 205})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPut, "/api/fixtures/"+id+"/patch", map[string]int{"universe": 3, "channel": 17})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	f := sess.Fixtures()[0]
	assert.Equal(t, 205, f.FixtureID)
	assert.False(t, f.FixtureIDInvalid)
	assert.Equal(t, 3, f.Universe)
	assert.Equal(t, 17, f.Channel)
	assert.False(t, f.AddressInvalid)
}

func TestSetPatchRejectsInvalid(t *testing.T) {
	sess, router := testRouter(t)
	seedSession(sess)
	id := sess.Fixtures()[0].ID

	rec := doJSON(t, router, http.MethodPut, "/api/fixtures/"+id+"/patch", map[string]int{"universe": 0, "channel": 600})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCandidatesRequiresType(t *testing.T) {
	_, router := testRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/api/match/candidates", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportCSV(t *testing.T) {
	sess, router := testRouter(t)

	csvData := "Name,Type,Address,FixtureID\nSpot 1,Spot Type,1,101\nSpot 2,Spot Type,10,102\n"
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "patch.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csvData))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import/csv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body importResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Imported)
	assert.Len(t, sess.Fixtures(), 2)
}

func TestWorkflowOverHTTP(t *testing.T) {
	sess, router := testRouter(t)
	seedSession(sess)

	rec := doJSON(t, router, http.MethodPost, "/api/match/auto", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var matchBody struct {
		MatchedTypes    int `json:"matchedTypes"`
		MatchedFixtures int `json:"matchedFixtures"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matchBody))
	assert.Equal(t, 1, matchBody.MatchedTypes)
	assert.Equal(t, 2, matchBody.MatchedFixtures)

	rec = doJSON(t, router, http.MethodPost, "/api/addresses/resolve", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/sequences/assign", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/export?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "fixture_name,fixture_id,attribute"))
}

func TestExportUnknownFormat(t *testing.T) {
	_, router := testRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/api/export?format=yaml", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportNoRows(t *testing.T) {
	_, router := testRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/api/export?format=csv", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSequenceConfigRoundTrip(t *testing.T) {
	_, router := testRouter(t)

	rec := doJSON(t, router, http.MethodPut, "/api/config/sequence", map[string]interface{}{
		"startNumber":    5001,
		"interval":       2,
		"addBreaks":      true,
		"breakSequences": 5,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/api/config/sequence", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cfg struct {
		StartNumber int `json:"startNumber"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, 5001, cfg.StartNumber)
}

func TestSequenceConfigRejectsInvalid(t *testing.T) {
	_, router := testRouter(t)
	rec := doJSON(t, router, http.MethodPut, "/api/config/sequence", map[string]interface{}{
		"startNumber": 0,
		"interval":    0,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSelectedAttributes(t *testing.T) {
	sess, router := testRouter(t)
	seedSession(sess)

	rec := doJSON(t, router, http.MethodPut, "/api/attributes", map[string]interface{}{
		"selected": []string{"Dim"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Dim"}, sess.SelectedAttributes())
}

func TestClearFixtures(t *testing.T) {
	sess, router := testRouter(t)
	seedSession(sess)

	rec := doJSON(t, router, http.MethodDelete, "/api/fixtures", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, sess.Fixtures())
}

func TestRequestedTopics(t *testing.T) {
	assert.Len(t, requestedTopics(""), 6)
	assert.Equal(t, []pubsub.Topic{pubsub.TopicFixturesUpdated}, requestedTopics("fixtures_updated"))
	assert.Equal(t,
		[]pubsub.Topic{pubsub.TopicMatchesUpdated, pubsub.TopicExportCompleted},
		requestedTopics(" matches_updated , export_completed "))
	assert.Len(t, requestedTopics("bogus"), 6, "unknown topics fall back to all")
}
