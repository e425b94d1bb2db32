package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service,AuditPublisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/joeydtaylor/certipop/pkg/audit"
	"github.com/joeydtaylor/certipop/pkg/connector"
	"github.com/joeydtaylor/certipop/pkg/connector/handler/mocks"
	"github.com/joeydtaylor/certipop/pkg/middleware/auth"
)

type HandlerSuite struct {
	suite.Suite
	router    http.Handler
	ctrl      *gomock.Controller
	mockSvc   *mocks.MockService
	mockAudit *mocks.MockAuditPublisher
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockSvc = mocks.NewMockService(s.ctrl)
	s.mockAudit = mocks.NewMockAuditPublisher(s.ctrl)

	h := New(s.mockSvc,
		WithAudit(s.mockAudit),
		WithAuth(auth.New(auth.Config{})),
		WithMunicipality("liege"),
	)
	r := chi.NewRouter()
	for name, fn := range h.Handlers() {
		method := http.MethodGet
		if name == connector.OpDecodeExtract {
			method = http.MethodPost
		}
		r.Method(method, "/"+name, fn)
	}
	s.router = r
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) decodeEnvelope(rec *httptest.ResponseRecorder) envelope {
	var env envelope
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func (s *HandlerSuite) expectAudit(op, outcome string) {
	s.mockAudit.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ev audit.Event) error {
			assert.Equal(s.T(), op, ev.Operation)
			assert.Equal(s.T(), outcome, ev.Outcome)
			assert.Equal(s.T(), "liege", ev.Municipality)
			assert.NotEmpty(s.T(), ev.ID)
			return nil
		})
}

func (s *HandlerSuite) TestReadDocument_OK() {
	s.mockSvc.EXPECT().
		ReadDocument(gomock.Any(), "LegalCohabitation", "76070935550", "85010112345").
		Return(connector.PDF("%PDF-1.4 body"), nil)
	s.mockAudit.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ev audit.Event) error {
			assert.Equal(s.T(), "*******5550", ev.PersonNRN)
			assert.Equal(s.T(), "*******2345", ev.RequestorNRN)
			assert.Equal(s.T(), "LegalCohabitation", ev.DocumentType)
			return nil
		})

	req := httptest.NewRequest(http.MethodGet,
		"/read-document?document_type=LegalCohabitation&person_nrn=76070935550&requestor_nrn=85010112345", nil)
	rec := s.serve(req)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("application/pdf", rec.Header().Get("Content-Type"))
	s.Equal("%PDF-1.4 body", rec.Body.String())
}

func (s *HandlerSuite) TestReadDocument_MissingParam() {
	req := httptest.NewRequest(http.MethodGet, "/read-document?document_type=LegalCohabitation&person_nrn=1", nil)
	rec := s.serve(req)

	s.Equal(http.StatusBadRequest, rec.Code)
	env := s.decodeEnvelope(rec)
	s.Equal(1, env.Err)
	s.Equal(errClassMissing, env.ErrClass)
	s.Contains(env.ErrDesc, "requestor_nrn")
}

func (s *HandlerSuite) TestReadDocument_UpstreamError() {
	s.mockSvc.EXPECT().
		ReadDocument(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, &connector.APIError{Kind: connector.KindEmpty, Op: connector.OpReadDocument, Message: "NRN APIMS Error: 204", Status: 204})
	s.expectAudit(connector.OpReadDocument, "empty")

	req := httptest.NewRequest(http.MethodGet, "/read-document?document_type=a&person_nrn=b&requestor_nrn=c", nil)
	rec := s.serve(req)

	s.Equal(http.StatusBadGateway, rec.Code)
	env := s.decodeEnvelope(rec)
	s.Equal(1, env.Err)
	s.Equal("empty", env.ErrClass)
	s.Equal("NRN APIMS Error: 204", env.ErrDesc)
	s.JSONEq("null", string(env.Data))
}

func (s *HandlerSuite) TestGetDocument_OK() {
	s.mockSvc.EXPECT().
		GetDocument(gomock.Any(), connector.DocumentRequest{
			DocumentType: "Residence",
			PersonNRN:    "76070935550",
			RequestorNRN: "85010112345",
			CommuneNIS:   "62063",
			Language:     "de",
		}).
		Return(json.RawMessage(`{"pdf":"aGVsbG8=","mime":"application/pdf"}`), nil)
	s.expectAudit(connector.OpGetDocument, "ok")

	req := httptest.NewRequest(http.MethodGet,
		"/document-types?document_type=Residence&person_nrn=76070935550&requestor_nrn=85010112345&commune_nis=62063&language=de", nil)
	rec := s.serve(req)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("application/json", rec.Header().Get("Content-Type"))
	env := s.decodeEnvelope(rec)
	s.Equal(0, env.Err)
	s.JSONEq(`{"pdf":"aGVsbG8=","mime":"application/pdf"}`, string(env.Data))
}

func (s *HandlerSuite) TestGetDocument_OptionalParamsLeftBlank() {
	s.mockSvc.EXPECT().
		GetDocument(gomock.Any(), connector.DocumentRequest{
			DocumentType: "Residence",
			PersonNRN:    "1",
			RequestorNRN: "2",
		}).
		Return(json.RawMessage(`{}`), nil)
	s.expectAudit(connector.OpGetDocument, "ok")

	rec := s.serve(httptest.NewRequest(http.MethodGet, "/document-types?document_type=Residence&person_nrn=1&requestor_nrn=2", nil))
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerSuite) TestGetDocument_Malformed() {
	s.mockSvc.EXPECT().
		GetDocument(gomock.Any(), gomock.Any()).
		Return(nil, &connector.APIError{Kind: connector.KindMalformed, Message: "NRN APIMS Error: bad JSON response"})
	s.expectAudit(connector.OpGetDocument, "malformed")

	rec := s.serve(httptest.NewRequest(http.MethodGet, "/document-types?document_type=a&person_nrn=b&requestor_nrn=c", nil))
	s.Equal(http.StatusBadGateway, rec.Code)
	s.Equal("malformed", s.decodeEnvelope(rec).ErrClass)
}

func (s *HandlerSuite) TestDecodeExtract_OK() {
	s.mockSvc.EXPECT().DecodeExtract("aGVsbG8=").Return(connector.PDF("hello"), nil)
	s.expectAudit(connector.OpDecodeExtract, "ok")

	req := httptest.NewRequest(http.MethodPost, "/decode-extract", bytes.NewReader([]byte(`{"pdf_base64":"aGVsbG8=","extra":1}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := s.serve(req)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("application/pdf", rec.Header().Get("Content-Type"))
	s.Equal("5", rec.Header().Get("Content-Length"))
	s.Equal("hello", rec.Body.String())
}

func (s *HandlerSuite) TestDecodeExtract_DecodeError() {
	s.mockSvc.EXPECT().DecodeExtract("@@@").
		Return(nil, &connector.APIError{Kind: connector.KindDecode, Message: "invalid base64 payload"})
	s.expectAudit(connector.OpDecodeExtract, "decode")

	req := httptest.NewRequest(http.MethodPost, "/decode-extract", bytes.NewReader([]byte(`{"pdf_base64":"@@@"}`)))
	rec := s.serve(req)

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("decode", s.decodeEnvelope(rec).ErrClass)
}

func (s *HandlerSuite) TestDecodeExtract_BadBodies() {
	cases := map[string]string{
		"empty":         ``,
		"not json":      `pdf_base64=aGVsbG8=`,
		"missing field": `{"pdf":"aGVsbG8="}`,
		"trailing":      `{"pdf_base64":"aGVsbG8="} {}`,
	}
	for name, body := range cases {
		s.Run(name, func() {
			rec := s.serve(httptest.NewRequest(http.MethodPost, "/decode-extract", bytes.NewReader([]byte(body))))
			s.Equal(http.StatusBadRequest, rec.Code)
			s.Equal(1, s.decodeEnvelope(rec).Err)
		})
	}
}

func (s *HandlerSuite) TestAuditFailureDoesNotFailRequest() {
	s.mockSvc.EXPECT().DecodeExtract("aGVsbG8=").Return(connector.PDF("hello"), nil)
	s.mockAudit.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("relay down"))

	rec := s.serve(httptest.NewRequest(http.MethodPost, "/decode-extract", bytes.NewReader([]byte(`{"pdf_base64":"aGVsbG8="}`))))
	s.Equal(http.StatusOK, rec.Code)
}

func TestWriteAPIError_ForeignError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeAPIError(rec, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "internal", env.ErrClass)
}
