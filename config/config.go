package config

import "math/rand"

var Version string

// SegmentTime is the target duration of a single HLS segment in seconds.
const SegmentTime = 10

// SessionIDLength is the length of the random directory name that holds the
// output of one video transcode session.
const SessionIDLength = 30

// RandomID generates an alphanumeric id used as a session cache directory
// name. The global source is used, ids may be requested from any goroutine.
func RandomID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	res := make([]byte, length)
	for i := 0; i < length; i++ {
		res[i] = charset[rand.Intn(len(charset))]
	}
	return string(res)
}
