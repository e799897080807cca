package errors

import (
	"encoding/json"
	stderrors "errors"
	"io/fs"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorBodyFormat(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteHTTPBadRequest(rr, "Missing client id")

	require.Equal(t, 400, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body apiError
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "400", body.Status)
	require.Equal(t, []string{"Missing client id"}, body.Errors)
}

func TestWriteHTTPNotFound(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteHTTPNotFound(rr, "not found")
	require.Equal(t, 404, rr.Code)
}

func TestErrorKinds(t *testing.T) {
	var err error = &ArgumentError{Msg: "Invalid audio index"}
	var argErr *ArgumentError
	require.True(t, stderrors.As(err, &argErr))
	require.Equal(t, "Invalid audio index", argErr.Error())

	err = &FFmpegError{Stderr: "boom"}
	var ffErr *FFmpegError
	require.True(t, stderrors.As(err, &ffErr))
	require.Contains(t, ffErr.Error(), "boom")

	err = &ReadError{Path: "/cache/x/stream.m3u8", Err: fs.ErrNotExist}
	var readErr *ReadError
	require.True(t, stderrors.As(err, &readErr))
	require.True(t, stderrors.Is(err, fs.ErrNotExist))
}
