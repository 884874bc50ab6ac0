package tracker

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

// EncodeSpan msgpack-encodes a span for the §8 round-trip testable
// property. The dispatch and metricsink sinks do not use it.
// Grounded on the teacher's ipc length-prefixed msgpack frame encoding.
func EncodeSpan(span types.ExecutionSpan) ([]byte, error) {
	return msgpack.Marshal(span)
}

// DecodeSpan is the inverse of EncodeSpan.
func DecodeSpan(data []byte) (types.ExecutionSpan, error) {
	var span types.ExecutionSpan
	if err := msgpack.Unmarshal(data, &span); err != nil {
		return types.ExecutionSpan{}, err
	}
	return span, nil
}

// EncodeSpans encodes a batch of spans as a single msgpack array,
// matching the shape metricsink batches rows for export.
func EncodeSpans(spans []types.ExecutionSpan) ([]byte, error) {
	return msgpack.Marshal(spans)
}

// DecodeSpans is the inverse of EncodeSpans.
func DecodeSpans(data []byte) ([]types.ExecutionSpan, error) {
	var spans []types.ExecutionSpan
	if err := msgpack.Unmarshal(data, &spans); err != nil {
		return nil, err
	}
	return spans, nil
}
