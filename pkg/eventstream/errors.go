package eventstream

import "errors"

// ErrNilIngestEvent indicates a nil event payload was provided to a publisher.
var ErrNilIngestEvent = errors.New("nil ingest event")
