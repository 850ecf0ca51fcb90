package netstatus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type probePayload struct {
	IsInternetAvailable      bool `json:"isInternetAvailable"`
	IsFiscalBackendAvailable bool `json:"isFiscalBackendAvailable"`
}

// HTTPProber asks the on-device probe endpoint for the two raw booleans.
// The status enum itself is always derived client-side.
type HTTPProber struct {
	URL    string
	Client *http.Client
}

func (p *HTTPProber) Probe(ctx context.Context) (bool, bool, error) {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return false, false, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return false, false, err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return false, false, fmt.Errorf("probe endpoint returned %d", res.StatusCode)
	}

	var payload probePayload
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return false, false, err
	}
	return payload.IsInternetAvailable, payload.IsFiscalBackendAvailable, nil
}
