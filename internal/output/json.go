package output

import (
	"encoding/json"
	"io"

	"github.com/bryanwahyu/automaton-recon/internal/domain/scans"
)

// WriteJSON writes the scan record exactly as the HTTP API returns it.
func WriteJSON(w io.Writer, scan *scans.Scan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(scan)
}
