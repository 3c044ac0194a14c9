package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string

	// Result describes the conversion for bookkeeping after a successful
	// write. It is not part of the published message.
	Result *ConversionResult
}

// ConversionResult summarizes one converted grid.
type ConversionResult struct {
	Digest      string
	Instrument  Instrument
	Times       int
	Ranges      int
	Variables   []string
	Warnings    []string
	ProcessedAt time.Time
}
