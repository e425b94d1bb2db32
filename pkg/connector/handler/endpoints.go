package handler

import (
	"context"
	"net/http"
	"strings"

	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/joeydtaylor/certipop/pkg/audit"
	"github.com/joeydtaylor/certipop/pkg/codec"
	"github.com/joeydtaylor/certipop/pkg/connector"
	"go.uber.org/zap"
)

// ReadDocument serves GET read-document as application/pdf.
func (h *Handler) ReadDocument(w http.ResponseWriter, r *http.Request) {
	q, ok := requireParams(w, r, "document_type", "person_nrn", "requestor_nrn")
	if !ok {
		return
	}
	pdf, err := h.svc.ReadDocument(r.Context(), q["document_type"], q["person_nrn"], q["requestor_nrn"])
	h.record(r, connector.OpReadDocument, err, q["document_type"], q["person_nrn"], q["requestor_nrn"])
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writePDF(w, pdf)
}

// GetDocument serves GET document-types as the JSON envelope around the
// upstream document.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	q, ok := requireParams(w, r, "document_type", "person_nrn", "requestor_nrn")
	if !ok {
		return
	}
	dr := connector.DocumentRequest{
		DocumentType: q["document_type"],
		PersonNRN:    q["person_nrn"],
		RequestorNRN: q["requestor_nrn"],
		CommuneNIS:   strings.TrimSpace(r.URL.Query().Get("commune_nis")),
		Language:     strings.TrimSpace(r.URL.Query().Get("language")),
	}
	doc, err := h.svc.GetDocument(r.Context(), dr)
	h.record(r, connector.OpGetDocument, err, dr.DocumentType, dr.PersonNRN, dr.RequestorNRN)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeData(w, doc)
}

type decodeExtractRequest struct {
	PDFBase64 *string `json:"pdf_base64"`
}

// DecodeExtract serves POST decode-extract.
func (h *Handler) DecodeExtract(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	var in decodeExtractRequest
	if err := codec.JSON.Unmarshal(body, &in); err != nil {
		writeFailure(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if in.PDFBase64 == nil {
		writeFailure(w, http.StatusBadRequest, errClassMissing, "missing parameter: pdf_base64")
		return
	}
	pdf, err := h.svc.DecodeExtract(*in.PDFBase64)
	h.record(r, connector.OpDecodeExtract, err, "", "", "")
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writePDF(w, pdf)
}

func (h *Handler) record(r *http.Request, op string, err error, docType, person, requestor string) {
	outcome := "ok"
	if k := connector.KindOf(err); k != "" {
		outcome = string(k)
	} else if err != nil {
		outcome = "error"
	}
	ev := audit.NewEvent(op, outcome)
	ev.DocumentType = docType
	ev.PersonNRN = audit.MaskNRN(person)
	ev.RequestorNRN = audit.MaskNRN(requestor)
	ev.Municipality = h.municipality
	ev.RequestID = chimd.GetReqID(r.Context())
	if h.auth != nil {
		ev.Username = h.auth.GetUser(r.Context()).Username
	}
	// The response must not wait on or fail because of auditing.
	if err := h.audit.Publish(context.WithoutCancel(r.Context()), ev); err != nil {
		h.log.Warn("audit event dropped", zap.String("op", op), zap.String("eventId", ev.ID), zap.Error(err))
	}
}
