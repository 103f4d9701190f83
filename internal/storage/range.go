package storage

import (
	"errors"
	"strconv"
	"strings"

	"github.com/target/mmk-genstudio/internal/core"
)

// ErrRangeNotSatisfiable is returned for a well-formed range outside the object.
var ErrRangeNotSatisfiable = errors.New("storage: range not satisfiable")

// ParseRange parses a single-range "bytes=" Range header against an object of
// size bytes. ok is false when the whole object should be served: no header,
// a malformed header or a multi-range request, all of which a server may ignore.
func ParseRange(header string, size int64) (r core.BlobRange, ok bool, err error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return core.BlobRange{}, false, nil
	}
	byteRange, found := strings.CutPrefix(header, "bytes=")
	if !found || strings.Contains(byteRange, ",") {
		return core.BlobRange{}, false, nil
	}
	startStr, endStr, found := strings.Cut(strings.TrimSpace(byteRange), "-")
	if !found {
		return core.BlobRange{}, false, nil
	}
	startStr, endStr = strings.TrimSpace(startStr), strings.TrimSpace(endStr)

	if startStr == "" {
		// Suffix range: the last n bytes.
		n, perr := strconv.ParseInt(endStr, 10, 64)
		if perr != nil || n < 0 {
			return core.BlobRange{}, false, nil
		}
		if n == 0 || size == 0 {
			return core.BlobRange{}, false, ErrRangeNotSatisfiable
		}
		n = min(n, size)
		return core.BlobRange{Start: size - n, End: size - 1}, true, nil
	}

	start, perr := strconv.ParseInt(startStr, 10, 64)
	if perr != nil || start < 0 {
		return core.BlobRange{}, false, nil
	}
	if start >= size {
		return core.BlobRange{}, false, ErrRangeNotSatisfiable
	}
	end := size - 1
	if endStr != "" {
		e, perr := strconv.ParseInt(endStr, 10, 64)
		if perr != nil || e < start {
			return core.BlobRange{}, false, nil
		}
		end = min(e, size-1)
	}
	return core.BlobRange{Start: start, End: end}, true, nil
}
