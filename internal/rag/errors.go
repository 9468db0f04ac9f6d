package rag

import "errors"

// Error taxonomy for the retrieval pipeline. Components wrap these sentinels
// with fmt.Errorf("...: %w", ...) so callers can classify failures with
// errors.Is and decide between retry (transient) and abort (permanent).
var (
	// ErrValidation marks malformed inputs: mismatched batch lengths,
	// wrong vector dimensions, empty filenames.
	ErrValidation = errors.New("validation failed")

	// ErrConfiguration marks an unsupported index or quantizer type,
	// rejected at construction time rather than at use.
	ErrConfiguration = errors.New("unsupported configuration")

	// ErrNotReady marks an operation attempted on an empty, untrained, or
	// unloaded index.
	ErrNotReady = errors.New("index not ready")

	// ErrCorruption marks persisted index files that are missing or
	// unparsable.
	ErrCorruption = errors.New("persisted index corrupted")

	// ErrEmbedding marks an embedding backend failure: unreachable service,
	// malformed response, unrecognized model.
	ErrEmbedding = errors.New("embedding backend failure")

	// ErrSearch is the umbrella for search-time failures surfaced to
	// callers of the search service.
	ErrSearch = errors.New("vector search failed")
)

// User-visible Vietnamese messages. A valid empty-result outcome and an
// infrastructure fault must never be conflated, so each surface picks
// exactly one of these.
const (
	// MsgNoResults is shown when the search completed but nothing cleared
	// the confidence threshold.
	MsgNoResults = "Không tìm thấy thông tin liên quan. Vui lòng thử câu hỏi khác."

	// MsgServiceUnavailable is shown when the pipeline itself failed.
	MsgServiceUnavailable = "Dịch vụ tạm thời không khả dụng. Vui lòng thử lại sau."
)
