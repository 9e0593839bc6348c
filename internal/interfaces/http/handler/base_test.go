package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storesync/backend/internal/domain/pipeline"
	"github.com/storesync/backend/internal/interfaces/http/dto"
)

func performRequest(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	router := gin.New()
	router.GET("/", handler)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBaseHandler_Success(t *testing.T) {
	var h BaseHandler
	w := performRequest(func(c *gin.Context) {
		h.Success(c, map[string]string{"status": "ok"})
	})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
}

func TestBaseHandler_ErrorIncludesRequestID(t *testing.T) {
	var h BaseHandler
	router := gin.New()
	router.GET("/", func(c *gin.Context) {
		c.Set("request_id", "req-42")
		h.BadRequest(c, "bad input")
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
	assert.Equal(t, "req-42", resp.Error.RequestID)
}

func TestBaseHandler_NotFound(t *testing.T) {
	var h BaseHandler
	w := performRequest(func(c *gin.Context) {
		h.NotFound(c, "no such tab")
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
}

func TestBaseHandler_HandleError(t *testing.T) {
	var h BaseHandler

	t.Run("nil error writes nothing", func(t *testing.T) {
		w := performRequest(func(c *gin.Context) {
			h.HandleError(c, nil)
			c.Status(http.StatusOK)
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("wrapped sink error maps to bad gateway", func(t *testing.T) {
		err := fmt.Errorf("publishing tab: %w", pipeline.ErrSinkPublishFailed)
		w := performRequest(func(c *gin.Context) {
			h.HandleError(c, err)
		})

		assert.Equal(t, http.StatusBadGateway, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeSinkFailed, resp.Error.Code)
	})

	t.Run("unknown error maps to internal", func(t *testing.T) {
		w := performRequest(func(c *gin.Context) {
			h.HandleError(c, errors.New("boom"))
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
	})
}
