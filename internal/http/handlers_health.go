package httpx

import (
	"io"
	"net/http"
)

const healthResponse = `{"status":"ok","service":"genstudio"}`

// healthHandler answers liveness probes. It does not touch the database or
// the provider.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = io.WriteString(w, healthResponse)
}
