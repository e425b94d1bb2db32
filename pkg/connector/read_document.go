package connector

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const OpReadDocument = "read-document"

// PDF is a raw PDF payload.
type PDF []byte

// ContentType is the media type PDF bodies are served with.
func (PDF) ContentType() string { return "application/pdf" }

// ReadDocument fetches the certificate of personNRN as a PDF, on behalf of
// requestorNRN.
func (c *Client) ReadDocument(ctx context.Context, documentType, personNRN, requestorNRN string) (pdf PDF, err error) {
	start := time.Now()
	defer func() { observe(OpReadDocument, start, err) }()

	u := c.cfg.documentURL(personNRN, documentType)
	c.log.Info("Récupération du PDF", zap.String("op", OpReadDocument), zap.String("documentType", documentType))

	res, body, err := c.get(ctx, OpReadDocument, u, map[string]string{
		HeaderRequestorNRN:      requestorNRN,
		HeaderMunicipalityToken: c.cfg.MunicipalityID,
	}, nil)
	if err != nil {
		return nil, err
	}

	if res.StatusCode == http.StatusNoContent {
		return nil, c.fail(newAPIError(KindEmpty, OpReadDocument, errPrefix+"204", res.StatusCode, nil), u)
	}
	if res.StatusCode >= 400 {
		return nil, c.fail(statusError(OpReadDocument, u, res), u)
	}
	if !isPDF(body) {
		return nil, c.fail(newAPIError(KindMalformed, OpReadDocument, errPrefix+"bad PDF response", res.StatusCode, nil), u)
	}
	return PDF(body), nil
}

// pdfHeaderWindow is how far into the body the %PDF- marker may start;
// readers tolerate leading junk such as a BOM or blank lines.
const pdfHeaderWindow = 1024

func isPDF(b []byte) bool {
	return bytes.Contains(b[:min(len(b), pdfHeaderWindow)], []byte("%PDF-"))
}
