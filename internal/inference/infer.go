package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/josephbrant/regdossier/internal/evidence"
)

const (
	// MaxDigestItems bounds how much evidence is sent with the single
	// inference request a reconciliation run may issue.
	MaxDigestItems = 120

	defaultTimeout = 90 * time.Second
)

const patchSchemaPrompt = `Required JSON schema (every section and field optional — omit anything unsupported):
{
  "core": {
    "trade_name": "string",
    "manufacturer": "string",
    "device_class": "string",
    "description": "string",
    "model_numbers": ["string"]
  },
  "clinical_context": {
    "intended_purpose": "string (min 50 chars when present)",
    "indications": ["string"],
    "contraindications": ["string"],
    "target_population": "string",
    "clinical_benefits": [{"benefit_id": "string", "description": "string", "clinical_measure": "string", "expected_outcome": "string"}],
    "warnings_precautions": "string"
  },
  "risk_context": {
    "principal_risks": [{"risk_id": "string", "hazard": "string", "harm": "string", "severity": "string"}],
    "risk_mitigations": "string",
    "residual_risks": "string",
    "complaint_rate_threshold": "number",
    "serious_incident_rate_threshold": "number"
  },
  "clinical_evidence": {
    "literature_summary": "string",
    "pmcf_summary": "string",
    "equivalent_devices": ["string"]
  }
}`

// Meta is the structured record of one inference round-trip, returned to the
// caller whether or not the call succeeded. Applied and FilledFields are
// completed by whoever merges the patch.
type Meta struct {
	Attempted    bool     `json:"attempted"`
	Applied      bool     `json:"applied"`
	Provider     string   `json:"provider,omitempty"`
	Model        string   `json:"model,omitempty"`
	LatencyMS    int64    `json:"latency_ms,omitempty"`
	FilledFields []string `json:"filled_fields,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// Client issues the schema-constrained gap-filling request.
type Client struct {
	caller  Caller
	model   string
	timeout time.Duration
	clock   func() time.Time
}

type ClientOption func(*Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

func WithClock(clock func() time.Time) ClientOption {
	return func(c *Client) { c.clock = clock }
}

func NewClient(caller Caller, opts ...ClientOption) *Client {
	c := &Client{caller: caller, timeout: defaultTimeout, clock: time.Now}
	if ac, ok := caller.(*AnthropicCaller); ok {
		c.model = ac.Model()
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Infer sends a bounded evidence digest and returns the validated patch.
// Transport failures, timeouts and unparseable responses are captured in
// Meta.Error; they never escape as errors because reconciliation must
// complete on deterministic merges alone.
func (c *Client) Infer(ctx context.Context, deviceCode string, atoms []evidence.Atom) (*Patch, Meta) {
	meta := Meta{Attempted: true, Provider: providerAnthropic, Model: c.model}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := buildPrompt(deviceCode, atoms)
	started := c.clock()
	raw, err := c.caller.GenerateJSON(ctx, prompt)
	meta.LatencyMS = c.clock().Sub(started).Milliseconds()
	if err != nil {
		switch classifyTransportError(err) {
		case failureTimeout:
			meta.Error = fmt.Sprintf("inference timed out: %v", err)
		default:
			meta.Error = fmt.Sprintf("inference failed: %v", err)
		}
		return nil, meta
	}
	if strings.TrimSpace(raw) == "" {
		meta.Error = "inference returned an empty response"
		return nil, meta
	}

	patch, warnings, err := ValidatePatch(raw)
	meta.Warnings = warnings
	if err != nil {
		meta.Error = err.Error()
		return nil, meta
	}
	if patch.IsEmpty() {
		meta.Warnings = append(meta.Warnings, "inference produced no usable fields")
		return nil, meta
	}
	return &patch, meta
}

func buildPrompt(deviceCode string, atoms []evidence.Atom) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Device dossier gap-filling for device %s.\n\n", deviceCode)
	b.WriteString("Below is the normalized evidence extracted from the device's source documents. ")
	b.WriteString("Fill only dossier fields this evidence directly supports. ")
	b.WriteString("Do not invent values; omit unsupported fields entirely.\n\n")
	b.WriteString(patchSchemaPrompt)
	b.WriteString("\n\nEvidence digest (one JSON record per line):\n")

	n := len(atoms)
	if n > MaxDigestItems {
		n = MaxDigestItems
	}
	for _, a := range atoms[:n] {
		line, err := json.Marshal(map[string]any{
			"type":       a.Type,
			"confidence": a.Provenance.Confidence,
			"source":     a.Provenance.SourceFile,
			"data":       a.NormalizedData,
		})
		if err != nil {
			continue
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	if len(atoms) > n {
		fmt.Fprintf(&b, "(%d further evidence records omitted for length)\n", len(atoms)-n)
	}
	b.WriteString("\nRespond with only valid JSON matching the schema.")
	return b.String()
}
