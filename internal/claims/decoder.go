// Package claims decodes bearer tokens into the identity and expiry claims
// the session needs. Signatures are never verified: the tokens were obtained
// directly from the token endpoint and are only inspected client-side.
package claims

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/openkcm/session-client/internal/serviceerr"
)

// knownAlgorithms are parsed by go-jose directly. Tokens signed with any other
// alg, including "none", go through the raw segment decoder instead.
var knownAlgorithms = []jose.SignatureAlgorithm{
	jose.RS256, jose.RS384, jose.RS512,
	jose.PS256, jose.PS384, jose.PS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.HS256, jose.HS384, jose.HS512,
	jose.EdDSA,
}

// Claims is the subset of a token payload used by the session.
type Claims struct {
	Subject  string
	Username string
	Email    string
	Groups   []string
	// Expiry is zero when the token carries no exp claim.
	Expiry time.Time
}

type Decoder struct {
	segments *gojwt.Parser
}

func NewDecoder() *Decoder {
	return &Decoder{segments: gojwt.NewParser()}
}

type customClaims struct {
	Username          string    `json:"username"`
	PreferredUsername string    `json:"preferred_username"`
	UPN               string    `json:"upn"`
	Email             string    `json:"email"`
	Groups            groupList `json:"groups"`
}

type rawPayload struct {
	Subject   string             `json:"sub"`
	ExpiresAt *gojwt.NumericDate `json:"exp"`
	customClaims
}

// Decode parses token and returns its claims. The alg header is not checked;
// expired tokens decode successfully and only structural problems produce an
// error.
func (d *Decoder) Decode(token string) (Claims, error) {
	if strings.TrimSpace(token) == "" {
		return Claims{}, errors.Join(serviceerr.ErrDecodeFailed, errors.New("empty token"))
	}

	if c, err := decodeJWS(token); err == nil {
		return c, nil
	}

	c, err := d.decodeSegments(token)
	if err != nil {
		return Claims{}, errors.Join(serviceerr.ErrDecodeFailed, err)
	}
	return c, nil
}

func decodeJWS(token string) (Claims, error) {
	parsed, err := jwt.ParseSigned(token, knownAlgorithms)
	if err != nil {
		return Claims{}, err
	}

	var standard jwt.Claims
	var custom customClaims
	if err := parsed.UnsafeClaimsWithoutVerification(&standard, &custom); err != nil {
		return Claims{}, err
	}

	var exp time.Time
	if standard.Expiry != nil {
		exp = standard.Expiry.Time()
	}
	return newClaims(standard.Subject, exp, custom), nil
}

// decodeSegments reads header and payload of a compact token with two or
// three segments, whatever its alg.
func (d *Decoder) decodeSegments(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 && len(parts) != 3 {
		return Claims{}, errors.New("token must have two or three segments")
	}

	headerJSON, err := d.segments.DecodeSegment(parts[0])
	if err != nil {
		return Claims{}, errors.Join(errors.New("decoding header"), err)
	}
	var header map[string]any
	if err := json.Unmarshal(headerJSON, &header); err != nil || header == nil {
		return Claims{}, errors.Join(errors.New("header is not a JSON object"), err)
	}

	payloadJSON, err := d.segments.DecodeSegment(parts[1])
	if err != nil {
		return Claims{}, errors.Join(errors.New("decoding payload"), err)
	}
	var payload rawPayload
	if err := json.Unmarshal(payloadJSON, &payload); err != nil {
		return Claims{}, errors.Join(errors.New("payload is not a JSON object"), err)
	}

	var exp time.Time
	if payload.ExpiresAt != nil {
		exp = payload.ExpiresAt.Time
	}
	return newClaims(payload.Subject, exp, payload.customClaims), nil
}

func newClaims(subject string, exp time.Time, custom customClaims) Claims {
	return Claims{
		Subject:  subject,
		Username: firstNonEmpty(custom.Username, custom.PreferredUsername, custom.UPN, subject),
		Email:    custom.Email,
		Groups:   custom.Groups,
		Expiry:   exp,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// groupList accepts both a JSON array and a single string.
type groupList []string

func (g *groupList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*g = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	if single != "" {
		*g = groupList{single}
	}
	return nil
}
