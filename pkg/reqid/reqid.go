// Package reqid hands out process-unique request IDs for log correlation.
package reqid

import (
	"fmt"
	"os"
	"sync/atomic"
)

var (
	prefix string
	reqid  atomic.Uint64
)

func init() {
	hostname, err := os.Hostname()
	if hostname == "" || err != nil {
		hostname = "localhost"
	}
	prefix = fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

// NextRequestID generates the next request ID in the sequence.
func NextRequestID() string {
	return format(reqid.Add(1))
}

// GetReqID returns the most recently issued request ID.
func GetReqID() string {
	return format(reqid.Load())
}

func format(n uint64) string {
	return fmt.Sprintf("%s-%09d", prefix, n)
}
