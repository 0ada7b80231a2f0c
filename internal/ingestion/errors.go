package ingestion

import "errors"

// errTooLarge signals a file exceeding max_bytes_per_file; the coordinator
// treats it as a per-file skip, never as a batch failure.
var errTooLarge = errors.New("file exceeds max_bytes_per_file")
