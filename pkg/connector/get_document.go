package connector

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

const OpGetDocument = "document-types"

// DocumentRequest carries the per-call parameters of GetDocument.
type DocumentRequest struct {
	DocumentType string
	PersonNRN    string
	RequestorNRN string
	CommuneNIS   string // defaults to the configured municipality
	Language     string // defaults to "fr"
}

func (r DocumentRequest) withDefaults(cfg Config) DocumentRequest {
	if strings.TrimSpace(r.CommuneNIS) == "" {
		r.CommuneNIS = cfg.MunicipalityID
	}
	if strings.TrimSpace(r.Language) == "" {
		r.Language = DefaultLanguage
	}
	return r
}

// GetDocument fetches the JSON document wrapper and returns it verbatim.
// Upstream 4xx and 5xx are both failures.
func (c *Client) GetDocument(ctx context.Context, dr DocumentRequest) (doc json.RawMessage, err error) {
	start := time.Now()
	defer func() { observe(OpGetDocument, start, err) }()

	dr = dr.withDefaults(c.cfg)
	u := c.cfg.documentURL(dr.PersonNRN, dr.DocumentType)

	res, body, err := c.get(ctx, OpGetDocument, u,
		map[string]string{
			HeaderRequestorNRN:    dr.RequestorNRN,
			HeaderMunicipalityNIS: dr.CommuneNIS,
		},
		map[string]string{"language": dr.Language},
	)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 400 {
		return nil, c.fail(statusError(OpGetDocument, u, res), u)
	}
	if !json.Valid(body) {
		return nil, c.fail(newAPIError(KindMalformed, OpGetDocument, errPrefix+"bad JSON response", res.StatusCode, nil), u)
	}
	return json.RawMessage(body), nil
}
