package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/joeydtaylor/certipop/pkg/codec"
	"github.com/joeydtaylor/certipop/pkg/connector"
)

const errClassMissing = "missing_parameter"

// envelope is the body of every JSON answer: err is 0 on success, 1 on failure.
type envelope struct {
	Err      int             `json:"err"`
	ErrClass string          `json:"err_class,omitempty"`
	ErrDesc  string          `json:"err_desc,omitempty"`
	Data     json.RawMessage `json:"data"`
}

func requireParams(w http.ResponseWriter, r *http.Request, names ...string) (map[string]string, bool) {
	q := r.URL.Query()
	out := make(map[string]string, len(names))
	for _, n := range names {
		v := strings.TrimSpace(q.Get(n))
		if v == "" {
			writeFailure(w, http.StatusBadRequest, errClassMissing, "missing parameter: "+n)
			return nil, false
		}
		out[n] = v
	}
	return out, true
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, errors.New("empty body")
	}
	b, err := io.ReadAll(r.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, fmt.Errorf("body larger than %d bytes", mbe.Limit)
		}
		return nil, err
	}
	if len(b) == 0 {
		return nil, errors.New("empty body")
	}
	return b, nil
}

func writePDF(w http.ResponseWriter, pdf connector.PDF) {
	w.Header().Set("Content-Type", pdf.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func writeData(w http.ResponseWriter, data json.RawMessage) {
	writeEnvelope(w, http.StatusOK, envelope{Data: data})
}

func writeFailure(w http.ResponseWriter, status int, class, desc string) {
	writeEnvelope(w, status, envelope{Err: 1, ErrClass: class, ErrDesc: desc, Data: json.RawMessage("null")})
}

// writeAPIError maps connector failures: upstream kinds to 502, decode to 400.
func writeAPIError(w http.ResponseWriter, err error) {
	var ae *connector.APIError
	if !errors.As(err, &ae) {
		writeFailure(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	status := http.StatusBadGateway
	if !ae.Upstream() {
		status = http.StatusBadRequest
	}
	writeFailure(w, status, string(ae.Kind), ae.Message)
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	if env.Data == nil {
		env.Data = json.RawMessage("null")
	}
	b, err := codec.JSON.Marshal(env)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", codec.JSON.ContentType())
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
