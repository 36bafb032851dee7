package api

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	logger, hook := test.NewNullLogger()
	rr := httptest.NewRecorder()

	writeJSON(logger.WithField("test", "api"), rr, http.StatusCreated, ErrorResponse{Error: "none"})

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"none"}`, rr.Body.String())
	assert.Empty(t, hook.AllEntries())
}

func TestWriteJSON_EncodeFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	rr := httptest.NewRecorder()

	writeJSON(logger.WithField("test", "api"), rr, http.StatusOK, map[string]float64{"score": math.NaN()})

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"failed to encode response"}`, rr.Body.String())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "Failed to encode response", hook.LastEntry().Message)
}
