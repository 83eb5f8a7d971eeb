package blocktime

import "errors"

var (
	// ErrResolutionUnderflow means the target time predates the genesis block.
	ErrResolutionUnderflow = errors.New("target time predates genesis block")
	// ErrResolutionFuture means the target time is after the head block.
	ErrResolutionFuture = errors.New("target time is after the head block")
	// ErrSearchExhausted means the search hit its step limit before converging.
	ErrSearchExhausted = errors.New("block search exceeded step limit")
)
