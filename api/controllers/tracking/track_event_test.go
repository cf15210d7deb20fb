package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaltracking "github.com/angelmondragon/rentalcrm-backend/internal/tracking"
	pkgerrors "github.com/angelmondragon/rentalcrm-backend/pkg/errors"
	"github.com/angelmondragon/rentalcrm-backend/pkg/types"
)

type stubProcessor struct {
	result internaltracking.Result
	calls  int
	body   []byte
}

func (s *stubProcessor) ProcessRaw(_ context.Context, body []byte) internaltracking.Result {
	s.calls++
	s.body = body
	return s.result
}

type stubPublisher struct {
	envs []internaltracking.Envelope
	err  error
}

func (s *stubPublisher) Publish(_ context.Context, env internaltracking.Envelope) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.envs = append(s.envs, env)
	return "msg-1", nil
}

func postTrack(t *testing.T, handler http.Handler, body string) (int, types.TrackResult) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/public/track-event", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var result types.TrackResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	return rec.Code, result
}

func TestTrackEvent_SyncSuccess(t *testing.T) {
	processor := &stubProcessor{result: internaltracking.Result{Success: true, ContactID: "contact_1"}}
	handler := TrackEvent(processor, nil, 1024, nil)

	status, result := postTrack(t, handler, `{"event_type":"customer.login","customer":{"email":"a@x.com"}}`)

	assert.Equal(t, http.StatusOK, status)
	assert.True(t, result.Success)
	assert.Equal(t, "contact_1", result.ContactID)
	assert.Equal(t, "Event tracked successfully", result.Message)
	assert.Equal(t, 1, processor.calls)
}

func TestTrackEvent_SyncAnonymousOmitsContactID(t *testing.T) {
	processor := &stubProcessor{result: internaltracking.Result{Success: true}}
	handler := TrackEvent(processor, nil, 1024, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/public/track-event", strings.NewReader(`{"event_type":"page.viewed"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "contact_id")
	assert.Contains(t, rec.Body.String(), `"success":true`)
}

func TestTrackEvent_SyncFailureIs500(t *testing.T) {
	processor := &stubProcessor{result: internaltracking.Result{Success: false, Error: "store unavailable", Code: pkgerrors.CodeDependency}}
	handler := TrackEvent(processor, nil, 1024, nil)

	status, result := postTrack(t, handler, `{"event_type":"customer.login","customer":{"email":"a@x.com"}}`)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.False(t, result.Success)
	assert.Equal(t, "store unavailable", result.Error)
}

func TestTrackEvent_SchemaRejectsBeforeProcessing(t *testing.T) {
	processor := &stubProcessor{result: internaltracking.Result{Success: true}}
	handler := TrackEvent(processor, nil, 1024, nil)

	for _, body := range []string{`{"customer":{"email":"a@x.com"}}`, `not json`, `{"event_type":"x","event_data":"nope"}`} {
		status, result := postTrack(t, handler, body)
		assert.Equal(t, http.StatusInternalServerError, status, body)
		assert.False(t, result.Success)
		assert.NotEmpty(t, result.Error)
	}
	assert.Zero(t, processor.calls)
}

func TestTrackEvent_BodyTooLarge(t *testing.T) {
	processor := &stubProcessor{result: internaltracking.Result{Success: true}}
	handler := TrackEvent(processor, nil, 16, nil)

	status, result := postTrack(t, handler, `{"event_type":"page.viewed","event_data":{"page":"home"}}`)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "request body too large", result.Error)
	assert.Zero(t, processor.calls)
}

func TestTrackEvent_AsyncPublishes(t *testing.T) {
	publisher := &stubPublisher{}
	processor := &stubProcessor{}
	handler := TrackEvent(processor, publisher, 1024, nil)

	status, result := postTrack(t, handler, `{"event_type":"vehicle.viewed","customer":{"email":"a@x.com"},"event_data":{"vehicle_name":"Jeep"}}`)

	assert.Equal(t, http.StatusOK, status)
	assert.True(t, result.Success)
	assert.Equal(t, "Event queued for processing", result.Message)
	require.Len(t, publisher.envs, 1)
	assert.Equal(t, "vehicle.viewed", publisher.envs[0].Type())
	assert.Zero(t, processor.calls)
}

func TestTrackEvent_AsyncPublishFailure(t *testing.T) {
	publisher := &stubPublisher{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("pubsub down"), "publish tracking event")}
	handler := TrackEvent(nil, publisher, 1024, nil)

	status, result := postTrack(t, handler, `{"event_type":"page.viewed"}`)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "publish tracking event", result.Error)
}

func TestTrackEvent_Unwired(t *testing.T) {
	status, result := postTrack(t, TrackEvent(nil, nil, 1024, nil), `{"event_type":"page.viewed"}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "event tracking unavailable", result.Error)
}
