package connector

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	personNRN    = "76070935550"
	requestorNRN = "85010112345"
	docType      = "LegalCohabitation"
	samplePDF    = "%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n%%EOF\n"
)

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

// newTestClient points a Client at h and captures its warnings.
func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *observer.ObservedLogs) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	core, logs := observer.New(zapcore.DebugLevel)
	c, err := New(Config{
		URL:            srv.URL + "/bosa/v1",
		Username:       "apims",
		Password:       "s3cret",
		MunicipalityID: "tok-liege",
	}, WithLogger(zap.New(core)))
	require.NoError(t, err)
	return c, logs
}

func TestReadDocument_Success(t *testing.T) {
	var got *http.Request
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		_, _ = w.Write([]byte(samplePDF))
	})

	pdf, err := c.ReadDocument(context.Background(), docType, personNRN, requestorNRN)
	require.NoError(t, err)
	assert.Equal(t, samplePDF, string(pdf))
	assert.Equal(t, "application/pdf", pdf.ContentType())

	require.NotNil(t, got)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/bosa/v1/mon-dossier-documents/"+personNRN+"/"+docType, got.URL.Path)
	assert.Empty(t, got.URL.RawQuery)
	user, pass, ok := got.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "apims", user)
	assert.Equal(t, "s3cret", pass)
	assert.Equal(t, requestorNRN, got.Header.Get(HeaderRequestorNRN))
	assert.Equal(t, "tok-liege", got.Header.Get(HeaderMunicipalityToken))
	assert.Empty(t, got.Header.Get(HeaderMunicipalityNIS))
}

func TestReadDocument_LeadingBytesBeforeHeader(t *testing.T) {
	body := "\r\n" + samplePDF
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	})

	pdf, err := c.ReadDocument(context.Background(), docType, personNRN, requestorNRN)
	require.NoError(t, err)
	assert.Equal(t, body, string(pdf))
}

func TestIsPDF(t *testing.T) {
	tests := []struct {
		name string
		body []byte
		want bool
	}{
		{"header first", []byte(samplePDF), true},
		{"bom", append([]byte("\xef\xbb\xbf"), samplePDF...), true},
		{"html", []byte("<html>%PD</html>"), false},
		{"empty", nil, false},
		{"header too far", append(bytes.Repeat([]byte(" "), pdfHeaderWindow), samplePDF...), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isPDF(tt.body))
		})
	}
}

func TestReadDocument_Failures(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantKind   Kind
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "no content",
			handler:    func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) },
			wantKind:   KindEmpty,
			wantStatus: http.StatusNoContent,
			wantMsg:    "NRN APIMS Error: 204",
		},
		{
			name: "not a pdf",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("<html><body>maintenance</body></html>"))
			},
			wantKind:   KindMalformed,
			wantStatus: http.StatusOK,
			wantMsg:    "NRN APIMS Error: bad PDF response",
		},
		{
			name:       "empty 200",
			handler:    func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) },
			wantKind:   KindMalformed,
			wantStatus: http.StatusOK,
			wantMsg:    "bad PDF response",
		},
		{
			name: "client error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, `{"detail":"unknown person"}`, http.StatusNotFound)
			},
			wantKind:   KindStatus,
			wantStatus: http.StatusNotFound,
			wantMsg:    "404 Client Error: Not Found",
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantKind:   KindStatus,
			wantStatus: http.StatusBadGateway,
			wantMsg:    "502 Server Error: Bad Gateway",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, logs := newTestClient(t, tt.handler)

			pdf, err := c.ReadDocument(context.Background(), docType, personNRN, requestorNRN)
			require.Error(t, err)
			assert.Nil(t, pdf)
			assert.True(t, IsUpstream(err))

			var ae *APIError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.wantKind, ae.Kind)
			assert.Equal(t, tt.wantStatus, ae.Status)
			assert.Equal(t, OpReadDocument, ae.Op)
			assert.Contains(t, ae.Message, tt.wantMsg)

			warns := logs.FilterLevelExact(zapcore.WarnLevel).All()
			require.Len(t, warns, 1)
			assert.Equal(t, string(tt.wantKind), warns[0].ContextMap()["kind"])
		})
	}
}

func TestReadDocument_NetworkError(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")
	c, err := New(Config{URL: "https://apims.invalid/bosa/v1", MunicipalityID: "tok"},
		WithHTTPClient(doerFunc(func(*http.Request) (*http.Response, error) { return nil, boom })))
	require.NoError(t, err)

	_, err = c.ReadDocument(context.Background(), docType, personNRN, requestorNRN)
	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "NRN APIMS Error: dial tcp")
}

func TestReadDocument_CanceledContext(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(samplePDF))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ReadDocument(ctx, docType, personNRN, requestorNRN)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetDocument_Defaults(t *testing.T) {
	var got *http.Request
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"document":{"type":"LegalCohabitation","pdf":"aGVsbG8="}}`))
	})

	doc, err := c.GetDocument(context.Background(), DocumentRequest{
		DocumentType: docType,
		PersonNRN:    personNRN,
		RequestorNRN: requestorNRN,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"document":{"type":"LegalCohabitation","pdf":"aGVsbG8="}}`, string(doc))

	require.NotNil(t, got)
	assert.Equal(t, "/bosa/v1/mon-dossier-documents/"+personNRN+"/"+docType, got.URL.Path)
	assert.Equal(t, "fr", got.URL.Query().Get("language"))
	assert.Equal(t, "tok-liege", got.Header.Get(HeaderMunicipalityNIS))
	assert.Equal(t, requestorNRN, got.Header.Get(HeaderRequestorNRN))
	assert.Empty(t, got.Header.Get(HeaderMunicipalityToken))
	_, _, ok := got.BasicAuth()
	assert.True(t, ok)
}

func TestGetDocument_ExplicitParams(t *testing.T) {
	var got *http.Request
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.GetDocument(context.Background(), DocumentRequest{
		DocumentType: docType,
		PersonNRN:    personNRN,
		RequestorNRN: requestorNRN,
		CommuneNIS:   "62063",
		Language:     "nl",
	})
	require.NoError(t, err)
	assert.Equal(t, "/bosa/v1/mon-dossier-documents/"+personNRN+"/"+docType, got.URL.Path)
	assert.Equal(t, "nl", got.URL.Query().Get("language"))
	assert.Equal(t, "62063", got.Header.Get(HeaderMunicipalityNIS))
}

func TestGetDocument_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind Kind
	}{
		{name: "invalid json", status: http.StatusOK, body: "<html>oops</html>", wantKind: KindMalformed},
		{name: "empty body", status: http.StatusOK, body: "", wantKind: KindMalformed},
		{name: "client error", status: http.StatusForbidden, body: `{"detail":"forbidden"}`, wantKind: KindStatus},
		{name: "server error", status: http.StatusInternalServerError, body: `{"detail":"boom"}`, wantKind: KindStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			doc, err := c.GetDocument(context.Background(), DocumentRequest{
				DocumentType: docType, PersonNRN: personNRN, RequestorNRN: requestorNRN,
			})
			require.Error(t, err)
			assert.Nil(t, doc)
			assert.Equal(t, tt.wantKind, KindOf(err))
			assert.True(t, IsUpstream(err))
		})
	}
}

func TestDecodeExtract(t *testing.T) {
	c, err := New(Config{MunicipalityID: "tok"})
	require.NoError(t, err)

	pdf, err := c.DecodeExtract("aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(pdf))
	assert.Equal(t, "application/pdf", pdf.ContentType())

	pdf, err = c.DecodeExtract("aGVs\nbG8=\n")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(pdf))

	_, err = c.DecodeExtract("not base64!!")
	require.Error(t, err)
	assert.Equal(t, KindDecode, KindOf(err))
	assert.False(t, IsUpstream(err))

	assert.Zero(t, upstreamSamples(t, OpDecodeExtract), "decode-extract makes no upstream call")
}

// upstreamSamples counts upstream request series recorded for operation.
func upstreamSamples(t *testing.T, operation string) int {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	n := 0
	for _, mf := range families {
		if mf.GetName() != "certipop_upstream_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "operation" && l.GetValue() == operation {
					n++
				}
			}
		}
	}
	return n
}

func TestKindOf_ForeignError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("x")))
	assert.False(t, IsUpstream(errors.New("x")))
	assert.False(t, IsUpstream(nil))
}
