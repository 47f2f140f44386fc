package vertex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/aiplatform/v1"
	"google.golang.org/api/option"

	"github.com/seconds-0/slack-support-bot/internal/core/domain"
)

var testConfig = Config{Project: "proj", Location: "us-central1", IndexID: "42", Dimensions: 2}

func newTestIndex(t *testing.T, handler http.HandlerFunc) *Index {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	api, err := aiplatform.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication())
	require.NoError(t, err)

	idx, err := NewIndex(api, testConfig)
	require.NoError(t, err)
	return idx
}

func TestNewIndex_Validation(t *testing.T) {
	api, err := aiplatform.NewService(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)

	_, err = NewIndex(nil, testConfig)
	assert.Error(t, err)

	_, err = NewIndex(api, Config{Project: "p", Location: "l", Dimensions: 2})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewIndex(api, Config{Project: "p", Location: "l", IndexID: "i"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	idx, err := NewIndex(api, testConfig)
	require.NoError(t, err)
	assert.Equal(t, "vertex", idx.Name())
	assert.Equal(t, 2, idx.Dimensions())
	assert.Equal(t, "projects/proj/locations/us-central1/indexes/42", idx.name)
}

func TestUpsert(t *testing.T) {
	var body aiplatform.GoogleCloudAiplatformV1UpsertDatapointsRequest
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/projects/proj/locations/us-central1/indexes/42:upsertDatapoints", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{}`))
	})

	err := idx.Upsert(context.Background(), []domain.IndexRecord{
		{DatapointID: "doc_0", FeatureVector: []float32{0.5, 1}},
		{DatapointID: "doc_1", FeatureVector: []float32{2, 0.25}},
	})
	require.NoError(t, err)

	require.Len(t, body.Datapoints, 2)
	assert.Equal(t, "doc_0", body.Datapoints[0].DatapointId)
	assert.Equal(t, []float64{0.5, 1}, body.Datapoints[0].FeatureVector)
	assert.Equal(t, "doc_1", body.Datapoints[1].DatapointId)
}

func TestUpsert_Empty(t *testing.T) {
	idx := newTestIndex(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatal("no request expected")
	})
	assert.NoError(t, idx.Upsert(context.Background(), nil))
	assert.NoError(t, idx.Delete(context.Background(), nil))
}

func TestUpsert_ErrorClasses(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantPermanent bool
		wantThrottled bool
	}{
		{"bad request", http.StatusBadRequest, true, false},
		{"rate limited", http.StatusTooManyRequests, false, true},
		{"unavailable", http.StatusServiceUnavailable, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := newTestIndex(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"nope"}}`, tt.status)
			})
			err := idx.Upsert(context.Background(), []domain.IndexRecord{{DatapointID: "a", FeatureVector: []float32{1, 2}}})
			require.Error(t, err)
			var te *domain.ThrottledError
			assert.Equal(t, tt.wantPermanent, errors.Is(err, domain.ErrPermanent))
			assert.Equal(t, tt.wantThrottled, errors.As(err, &te))
		})
	}
}

func TestDelete(t *testing.T) {
	var body aiplatform.GoogleCloudAiplatformV1RemoveDatapointsRequest
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/projects/proj/locations/us-central1/indexes/42:removeDatapoints", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{}`))
	})

	require.NoError(t, idx.Delete(context.Background(), []string{"doc_3", "doc_4"}))
	assert.Equal(t, []string{"doc_3", "doc_4"}, body.DatapointIds)
}
