package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saral-edu/institute-api/internal/models"
	appErrors "github.com/saral-edu/institute-api/pkg/errors"
)

type mockRollReader struct {
	results map[string][]models.ResultDetail
	calls   int
}

func (m *mockRollReader) QueryByRoll(ctx context.Context, rollNumber string) ([]models.ResultDetail, error) {
	m.calls++
	if r, ok := m.results[rollNumber]; ok {
		return r, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "no results found for roll number")
}

type mockVerificationCache struct {
	entries map[string][]byte
}

func newMockVerificationCache() *mockVerificationCache {
	return &mockVerificationCache{entries: make(map[string][]byte)}
}

func (m *mockVerificationCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockVerificationCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func sampleDetail(roll string) models.ResultDetail {
	return models.ResultDetail{Result: models.Result{
		ID:           "res-1",
		RollNumber:   roll,
		TotalMarks:   200,
		Percentage:   76,
		OverallGrade: models.GradeBPlus,
		ResultStatus: models.ResultStatusPass,
	}}
}

func TestVerificationServiceCacheMissThenHit(t *testing.T) {
	reader := &mockRollReader{results: map[string][]models.ResultDetail{
		"R-1001": {sampleDetail("R-1001")},
	}}
	cache := newMockVerificationCache()
	svc := NewVerificationService(reader, cache, NewMetricsService(), zap.NewNop(), time.Minute)

	first, err := svc.VerifyByRoll(context.Background(), "R-1001")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, reader.calls)
	assert.Contains(t, cache.entries, "verify:results:r-1001")

	second, err := svc.VerifyByRoll(context.Background(), "R-1001")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, reader.calls, "second lookup must be served from cache")
}

func TestVerificationServiceWithoutCache(t *testing.T) {
	reader := &mockRollReader{results: map[string][]models.ResultDetail{
		"R-1001": {sampleDetail("R-1001")},
	}}
	svc := NewVerificationService(reader, nil, nil, zap.NewNop(), 0)

	results, err := svc.VerifyByRoll(context.Background(), "R-1001")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestVerificationServiceUnknownRoll(t *testing.T) {
	reader := &mockRollReader{results: map[string][]models.ResultDetail{}}
	svc := NewVerificationService(reader, newMockVerificationCache(), nil, zap.NewNop(), time.Minute)

	_, err := svc.VerifyByRoll(context.Background(), "R-9999")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
