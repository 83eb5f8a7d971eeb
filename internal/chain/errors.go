package chain

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
)

// Error codes and messages providers use when eth_getLogs covers too much.
var rangeTooLargeMarkers = []string{
	"block range",
	"range is too large",
	"range too large",
	"query returned more than",
	"exceed maximum block range",
	"log response size exceeded",
	"too many blocks",
}

// rateLimitMarkers identify throttling, which providers also report
// under limitExceededCode.
var rateLimitMarkers = []string{
	"rate limit",
	"request rate",
	"rate exceeded",
	"too many requests",
	"quota",
	"capacity exceeded",
	"throughput",
}

const limitExceededCode = -32005

// IsRangeTooLarge reports whether err is a provider rejection of a log
// query that spans too many blocks or returns too many results.
func IsRangeTooLarge(err error) bool {
	if err == nil {
		return false
	}

	if IsRateLimited(err) {
		return false
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == limitExceededCode {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range rangeTooLargeMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsRateLimited reports whether err is a provider throttling a request.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
