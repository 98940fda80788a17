package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arencloud/stackdeck/internal/configstore"

	"github.com/aws/smithy-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tracedContext() (*gin.Context, *httptest.ResponseRecorder, *Trace) {
	rw := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rw)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	tr := &Trace{ID: "t1"}
	c.Set(traceKey, tr)
	return c, rw, tr
}

func TestRespondErrorAddsEvent(t *testing.T) {
	c, rw, tr := tracedContext()
	respondError(c, http.StatusTeapot, "teapot")

	assert.Equal(t, http.StatusTeapot, rw.Code)
	assert.True(t, c.IsAborted())
	require.Len(t, tr.Events, 1)
	assert.Equal(t, "error", tr.Events[0].Name)
	assert.Equal(t, "teapot", lastError(tr))
}

type statusErr struct{ code int }

func (e statusErr) Error() string       { return fmt.Sprintf("status %d", e.code) }
func (e statusErr) HTTPStatusCode() int { return e.code }

func TestRespondRemoteStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"parse", &configstore.ParseError{Err: errors.New("bad")}, http.StatusBadRequest},
		{"duplicate", fmt.Errorf("%w: %q", configstore.ErrDuplicateInstance, "x"), http.StatusConflict},
		{"not found", fmt.Errorf("list objects: %w", &smithy.GenericAPIError{Code: "NoSuchBucket"}), http.StatusNotFound},
		{"client side", fmt.Errorf("create bucket: %w", statusErr{code: http.StatusForbidden}), http.StatusForbidden},
		{"server side", statusErr{code: http.StatusServiceUnavailable}, http.StatusBadGateway},
		{"transport", errors.New("connection refused"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rw, tr := tracedContext()
			respondRemote(c, tt.err)
			assert.Equal(t, tt.want, rw.Code)
			assert.Equal(t, tt.err.Error(), lastError(tr))
		})
	}
}

func TestTraceStoreRing(t *testing.T) {
	s := newTraceStore(3)
	for i := 1; i <= 5; i++ {
		s.add(&Trace{ID: fmt.Sprintf("t%d", i)})
	}
	all := s.all(0)
	require.Len(t, all, 3)
	assert.Equal(t, "t5", all[0].ID)
	assert.Equal(t, "t3", all[2].ID)
	assert.Len(t, s.all(2), 2)
	assert.Nil(t, s.get("t1"))
	assert.NotNil(t, s.get("t4"))
}

func TestPercentile(t *testing.T) {
	assert.Zero(t, percentile(nil, 95))
	assert.Equal(t, 4.0, percentile([]float64{5, 1, 3, 2, 4}, 95))
	assert.Equal(t, 1.0, percentile([]float64{5, 1, 3, 2, 4}, 0))
}
