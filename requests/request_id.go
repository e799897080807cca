package requests

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const requestIDHeader = "requestID"

// GetRequestID returns the inbound request id, generating one when the
// gateway did not provide it.
func GetRequestID(req *http.Request) string {
	requestID := req.Header.Get(requestIDHeader)
	if requestID != "" {
		return requestID
	}
	requestID = strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	req.Header.Set(requestIDHeader, requestID)
	return requestID
}
