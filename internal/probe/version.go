package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hamed0406/shameotron/internal/domain"
)

// maxReportBytes caps how much of a tester response we decode.
const maxReportBytes = 4 << 20

type VersionProber struct {
	Client   *http.Client
	Template string
}

func NewVersionProber(template string, timeout time.Duration) *VersionProber {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &VersionProber{
		Client:   &http.Client{Timeout: timeout},
		Template: template,
	}
}

// testerReport is the subset of the federation tester report we read.
type testerReport struct {
	FederationOK json.RawMessage `json:"FederationOK"`
	Version      *struct {
		Name    string  `json:"name"`
		Version *string `json:"version"`
	} `json:"Version"`
	ConnectionReports json.RawMessage `json:"ConnectionReports"`
}

func (p *VersionProber) Probe(ctx context.Context, host domain.Host) (domain.VersionResult, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, domain.TesterURL(p.Template, host), nil)
	if err != nil {
		return domain.Failed(fmt.Errorf("build request: %w", err)), ""
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return domain.Timeout(fmt.Errorf("%w: %v", domain.ErrNetworkTimeout, err)), ""
		}
		return domain.Failed(fmt.Errorf("%w: %v", domain.ErrConnectivity, err)), ""
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return domain.Failed(fmt.Errorf("%w: tester returned %s", domain.ErrMalformedResponse, resp.Status)), ""
	}

	var rep testerReport
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReportBytes)).Decode(&rep); err != nil {
		if isTimeout(err) {
			return domain.Timeout(fmt.Errorf("%w: %v", domain.ErrNetworkTimeout, err)), ""
		}
		return domain.Failed(fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)), ""
	}
	if len(rep.FederationOK) == 0 {
		return domain.Failed(fmt.Errorf("%w: FederationOK missing", domain.ErrMalformedResponse)), ""
	}
	ok, err := truthy(rep.FederationOK)
	if err != nil {
		return domain.Failed(fmt.Errorf("%w: FederationOK: %v", domain.ErrMalformedResponse, err)), ""
	}
	if !ok {
		return domain.Offline(), ""
	}

	addr := firstKey(rep.ConnectionReports)
	if rep.Version == nil || rep.Version.Version == nil {
		return domain.Failed(fmt.Errorf("%w: Version.version missing", domain.ErrMalformedResponse)), addr
	}
	// an empty version string is still what the server reported
	return domain.Version(*rep.Version.Version), addr
}

// truthy reports whether a JSON value counts as set: null, false, 0, ""
// and empty arrays or objects do not.
func truthy(raw json.RawMessage) (bool, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, err
	}
	switch x := v.(type) {
	case nil:
		return false, nil
	case bool:
		return x, nil
	case float64:
		return x != 0, nil
	case string:
		return x != "", nil
	case []any:
		return len(x) > 0, nil
	case map[string]any:
		return len(x) > 0, nil
	}
	return true, nil
}

// firstKey returns the first key of a JSON object in document order.
func firstKey(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return ""
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return ""
	}
	tok, err = dec.Token()
	if err != nil {
		return ""
	}
	key, _ := tok.(string)
	return key
}
