package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys for media pipeline spans.
const (
	// AttrMediaID is the catalog id of the media item
	AttrMediaID = attribute.Key("media.id")

	// AttrUserID is the id of the owning user
	AttrUserID = attribute.Key("user.id")

	// AttrContentType is the declared MIME type of an upload
	AttrContentType = attribute.Key("media.content_type")

	// AttrSize is the size of a blob in bytes
	AttrSize = attribute.Key("blob.size")

	// AttrKey is the object storage key
	AttrKey = attribute.Key("blob.key")

	// AttrDisposition is the worker's decision for a message (ack, retry, discard)
	AttrDisposition = attribute.Key("worker.disposition")
)

// Span names used across the pipeline.
const (
	// SpanIngest covers one upload from first byte to bus fan-out
	SpanIngest = "ingest.upload"

	// SpanPreview covers one preview derivation
	SpanPreview = "worker.preview"

	// SpanMetadata covers one metadata extraction
	SpanMetadata = "worker.metadata"

	// SpanSync covers one full or partial sync request
	SpanSync = "api.sync"
)
