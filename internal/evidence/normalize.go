package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/josephbrant/regdossier/internal/canonical"
)

const (
	unknownDevice = "UNKNOWN_DEVICE"
	unknownPeriod = "UNKNOWN"
	unknownSource = "unknown"

	atomIDHashChars = 12
)

// typeSignals maps diagnostic canonical keys to the evidence type they
// imply, most specific first. A record carrying both a complaint id and a
// generic field still classifies as a complaint because order decides.
var typeSignals = []struct {
	key      string
	atomType string
}{
	{canonical.KeyComplaintID, TypeComplaintSummary},
	{canonical.KeyIncidentID, TypeSeriousIncident},
	{canonical.KeyFSCAID, TypeFSCA},
	{canonical.KeyStudyID, TypeClinicalStudy},
	{canonical.KeyLiteratureID, TypeLiteratureReview},
}

// Normalizer converts raw extraction records into immutable evidence atoms.
type Normalizer struct {
	reg *canonical.Registry
}

func NewNormalizer(reg *canonical.Registry) *Normalizer {
	if reg == nil {
		reg = canonical.Default()
	}
	return &Normalizer{reg: reg}
}

// Normalize canonicalizes field names, infers missing types, synthesizes
// missing provenance, and assigns deterministic content-hash ids. Two
// ingestions of the same extract yield the same ids, so colliding ids are
// true duplicates of already-known atoms.
func (n *Normalizer) Normalize(raws []Raw, ctx Context) []Atom {
	clock := ctx.Clock
	if clock == nil {
		clock = time.Now
	}

	atoms := make([]Atom, 0, len(raws))
	ordinals := make(map[string]int)

	for _, raw := range raws {
		data := n.canonicalizeData(raw.Data)
		atomType := normalizeTypeName(raw.EvidenceType)
		if atomType == "" {
			atomType = n.inferType(data)
		}

		prov := Provenance{
			UploadID:    ctx.UploadID,
			SourceFile:  firstNonEmpty(raw.SourceFile, raw.SourceName, unknownSource),
			DeviceRef:   firstNonEmpty(n.reg.StringField(data, canonical.KeyDeviceRef), ctx.DeviceCode, unknownDevice),
			Period:      firstNonEmpty(n.reg.StringField(data, canonical.KeyPeriod), ctx.Period, unknownPeriod),
			ExtractedAt: clock(),
		}
		if raw.ExtractedAt != nil && !raw.ExtractedAt.IsZero() {
			prov.ExtractedAt = *raw.ExtractedAt
		}
		if raw.Confidence != nil {
			prov.Confidence = clamp01(*raw.Confidence)
		}

		// The ordinal counts prior occurrences of identical content in this
		// batch: the first copy of a record hashes the same across batches
		// (idempotent re-ingestion), while a genuinely repeated row keeps a
		// distinct identity.
		base := contentHash(atomType, data, prov, 0)
		ordinal := ordinals[base]
		ordinals[base]++
		hash := base
		if ordinal > 0 {
			hash = contentHash(atomType, data, prov, ordinal)
		}
		id := atomType + ":" + hash[:atomIDHashChars]

		atoms = append(atoms, Atom{
			AtomID:         id,
			Type:           atomType,
			Version:        n.reg.Version(),
			ContentHash:    hash,
			NormalizedData: data,
			Provenance:     prov,
		})
	}
	return atoms
}

// canonicalizeData rewrites every key of the raw bag to its canonical
// spelling. When several raw spellings collapse to one canonical key the
// registry's lookup precedence picks the surviving value.
func (n *Normalizer) canonicalizeData(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		canon := n.reg.Canonicalize(k)
		if _, exists := out[canon]; exists {
			continue
		}
		if v, ok := n.reg.Field(raw, canon); ok {
			out[canon] = v
		}
	}
	return out
}

func (n *Normalizer) inferType(data map[string]any) string {
	for _, sig := range typeSignals {
		if _, ok := n.reg.Field(data, sig.key); ok {
			return sig.atomType
		}
	}
	return TypeSalesVolume
}

// contentHash digests the atom's semantic content. Extraction time is
// excluded so two runs over the same document produce the same hash; the
// ordinal keeps genuinely separate identical-looking records of one source
// from collapsing into each other.
func contentHash(atomType string, data map[string]any, prov Provenance, ordinal int) string {
	payload := struct {
		Type    string         `json:"type"`
		Data    map[string]any `json:"data"`
		Source  string         `json:"source"`
		Device  string         `json:"device"`
		Period  string         `json:"period"`
		Ordinal int            `json:"ordinal"`
	}{atomType, data, prov.SourceFile, prov.DeviceRef, prov.Period, ordinal}

	blob, err := json.Marshal(payload)
	if err != nil {
		// Unmarshalable values should not occur for decoded JSON input;
		// fall back to the unsorted textual form rather than failing.
		blob = []byte(fmt.Sprintf("%s|%v|%s|%d", atomType, data, prov.SourceFile, ordinal))
	}
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:])
}

func normalizeTypeName(t string) string {
	t = strings.TrimSpace(strings.ToLower(t))
	t = strings.ReplaceAll(t, " ", "_")
	t = strings.ReplaceAll(t, "-", "_")
	return t
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
