package connector

import (
	"encoding/base64"
	"strings"
)

const OpDecodeExtract = "decode-extract"

// DecodeExtract turns a base64 PDF, as held in JSON documents, into raw bytes.
// It makes no upstream call and records no upstream metrics.
func (c *Client) DecodeExtract(pdfBase64 string) (PDF, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, pdfBase64)

	b, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return nil, c.fail(newAPIError(KindDecode, OpDecodeExtract, "invalid base64 payload", 0, err), "")
	}
	return PDF(b), nil
}
