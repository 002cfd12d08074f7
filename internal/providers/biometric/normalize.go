package biometric

import (
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
)

// parseTimestamp accepts RFC 3339 strings and unix timestamps in seconds or milliseconds,
// as numbers or numeric strings. Anything else yields the zero time.
func parseTimestamp(r gjson.Result) time.Time {
	switch r.Type {
	case gjson.Number:
		return fromUnix(r.Int())
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		if s == "" {
			return time.Time{}
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return fromUnix(n)
		}
	}
	return time.Time{}
}

func fromUnix(n int64) time.Time {
	switch {
	case n <= 0:
		return time.Time{}
	case n > 1e12:
		return time.UnixMilli(n).UTC()
	default:
		return time.Unix(n, 0).UTC()
	}
}

// parseCode reads an integer code that may be sent as a number or a numeric string.
func parseCode(r gjson.Result) (int64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Int(), true
	case gjson.String:
		n, err := strconv.ParseInt(strings.TrimSpace(r.Str), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func parseScore(r gjson.Result) float64 {
	v := r.Float()
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func optionalBool(r gjson.Result) *bool {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	return core.Bool(r.Bool())
}

// parseAttack maps the presentation attack verdict. Unknown or missing verdicts
// are routed to manual review.
func parseAttack(r gjson.Result) core.AttackResult {
	switch strings.ToUpper(strings.TrimSpace(r.String())) {
	case "PASS", "PASSED":
		return core.AttackPass
	case "REJECT", "REJECTED", "FAIL":
		return core.AttackReject
	default:
		return core.AttackManualReview
	}
}

// parseProof maps the provider proof body to a ProofPayload.
func parseProof(body gjson.Result) (*core.ProofPayload, error) {
	if !body.IsObject() || !body.Get("liveness").Exists() {
		return nil, core.ErrProofUnavailable.Withf("provider returned no proof")
	}
	doc := body.Get("document")
	return &core.ProofPayload{
		IsLive:             body.Get("liveness.live").Bool(),
		InjectionDetected:  body.Get("liveness.injection").Bool(),
		DocumentExpired:    optionalBool(doc.Get("expired")),
		PresentationAttack: parseAttack(body.Get("presentationAttack")),
		FaceMatchScore:     parseScore(body.Get("faceMatch.score")),
		ConfidenceScore:    parseScore(body.Get("confidence")),
		BarcodeCheckPassed: optionalBool(doc.Get("barcodeValid")),
		OCRConsistent:      optionalBool(doc.Get("ocrConsistent")),
	}, nil
}
