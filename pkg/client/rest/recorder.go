/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"sync"
)

const (
	redacted       = "--redacted--"
	redactedObject = "{--redacted--}"
)

// RecordedRequest is a request as it was sent, with secrets and volatile values replaced.
type RecordedRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Params  map[string]string `json:"params,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
}

// Recorder captures outgoing agent requests so a run can be compared against a known sequence.
type Recorder struct {
	lock     sync.Mutex
	prefixes []string
	requests []RecordedRequest
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) addPrefix(baseURL string) {
	u, err := url.Parse(baseURL)
	if err != nil || strings.Trim(u.Path, "/") == "" {
		return
	}

	r.lock.Lock()
	r.prefixes = append(r.prefixes, strings.TrimRight(u.Path, "/"))
	r.lock.Unlock()
}

// Requests returns a copy of everything recorded so far.
func (r *Recorder) Requests() []RecordedRequest {
	r.lock.Lock()
	defer r.lock.Unlock()

	out := make([]RecordedRequest, len(r.requests))
	copy(out, r.requests)
	return out
}

// Wrap returns a transport that records every request before handing it to next.
func (r *Recorder) Wrap(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}

	return &recordingTransport{rec: r, next: next}
}

type recordingTransport struct {
	rec  *Recorder
	next http.RoundTripper
}

func (r *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		b, err := ioutil.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		_ = req.Body.Close()
		body = b
		req.Body = ioutil.NopCloser(bytes.NewReader(b))
	}

	r.rec.record(req, body)

	return r.next.RoundTrip(req)
}

func (r *Recorder) record(req *http.Request, body []byte) {
	r.lock.Lock()
	defer r.lock.Unlock()

	path := req.URL.Path
	for _, p := range r.prefixes {
		if strings.HasPrefix(path, p+"/") {
			path = strings.TrimPrefix(path, p)
			break
		}
	}

	rec := RecordedRequest{
		Method:  strings.ToLower(req.Method),
		URL:     path,
		Headers: map[string]string{},
	}

	for _, h := range []string{"Accept", "Content-Type", "Authorization"} {
		if v := req.Header.Get(h); v != "" {
			rec.Headers[h] = v
		}
	}

	if q := req.URL.Query(); len(q) > 0 {
		rec.Params = map[string]string{}
		for k := range q {
			rec.Params[k] = q.Get(k)
		}
	}

	if len(body) > 0 {
		var data interface{}
		if err := json.Unmarshal(body, &data); err == nil {
			rec.Data = data
		} else {
			rec.Data = string(body)
		}
	}

	Redact(&rec)

	if n := len(r.requests); n > 0 && reflect.DeepEqual(r.requests[n-1], rec) {
		return
	}

	r.requests = append(r.requests, rec)
}

var (
	templatedPaths = []struct {
		prefix string
		re     *regexp.Regexp
		repl   string
	}{
		{"/connections/", regexp.MustCompile(`^(/connections/)([^/]+)(/[^/]+)?$`), "${1}{connection_id}${3}"},
		{"/issue-credential/records/", regexp.MustCompile(`^(/issue-credential/records/)([^/]+)(/[^/]+)?$`), "${1}{record_id}${3}"},
		{"/present-proof/records/", regexp.MustCompile(`^(/present-proof/records/)([^/]+)(/[^/]+)?$`), "${1}{record_id}${3}"},
		{"/present-proof-2.0/records/", regexp.MustCompile(`^(/present-proof-2\.0/records/)([^/]+)(/[^/]+)?$`), "${1}{record_id}${3}"},
		{"/credential-definitions/", regexp.MustCompile(`^(/credential-definitions/)([^/]+)(/[^/]+)?$`), "${1}{cred_def_id}${3}"},
	}

	labelTimestamp = regexp.MustCompile(`- \d+$`)
)

// Redact replaces secrets, record ids and volatile body fields with placeholders.
func Redact(rec *RecordedRequest) {
	if _, ok := rec.Headers["Authorization"]; ok {
		rec.Headers["Authorization"] = redacted
	}

	for _, tp := range templatedPaths {
		if rec.URL == "/credential-definitions/created" {
			break
		}
		if strings.HasPrefix(rec.URL, tp.prefix) {
			rec.URL = tp.re.ReplaceAllString(rec.URL, tp.repl)
			break
		}
	}

	if rec.Method == "get" && rec.URL == "/basicmessages" {
		if _, ok := rec.Params["connection_id"]; ok {
			rec.Params["connection_id"] = "{connection_id}"
		}
	}

	data, ok := rec.Data.(map[string]interface{})
	if !ok || rec.Method != "post" {
		return
	}

	switch rec.URL {
	case "/present-proof/send-request":
		data["proof_request"] = redacted
		data["connection_id"] = "{connection_id}"
		data["cred_def_id"] = "{cred_def_id}"
	case "/issue-credential/send-offer":
		data["credential_preview"] = redactedObject
		data["cred_def_id"] = "{cred_def_id}"
		data["connection_id"] = "{connection_id}"
	case "/present-proof/create-request":
		data["proof_request"] = redactedObject
	case "/present-proof-2.0/create-request":
		data["presentation_request"] = redactedObject
	case "/out-of-band/create-invitation":
		attachments, _ := data["attachments"].([]interface{})
		for _, a := range attachments {
			if att, ok := a.(map[string]interface{}); ok {
				redactAttachment(att)
			}
		}
	case "/connections/{connection_id}":
		if label, ok := data["my_label"].(string); ok {
			data["my_label"] = labelTimestamp.ReplaceAllString(label, "- {timestamp}")
		}
	}
}

func redactAttachment(att map[string]interface{}) {
	if _, ok := att["id"]; ok {
		att["id"] = redacted
	}

	d, ok := att["data"].(map[string]interface{})
	if !ok {
		return
	}

	j, ok := d["json"].(map[string]interface{})
	if !ok {
		return
	}

	if _, ok := d["id"]; ok {
		d["id"] = redacted
	}

	for _, k := range []string{"id", "thread_id", "created_at", "updated_at", "presentation_exchange_id", "pres_ex_id"} {
		if _, ok := j[k]; ok {
			j[k] = redacted
		}
	}

	for _, k := range []string{"presentation_request", "presentation_request_dict"} {
		if _, ok := j[k]; ok {
			j[k] = redactedObject
		}
	}

	if byFormat, ok := j["by_format"].(map[string]interface{}); ok {
		if pr, ok := byFormat["pres_request"].(map[string]interface{}); ok {
			if indy, ok := pr["indy"].(map[string]interface{}); ok {
				indy["nonce"] = redacted
				attrs, _ := indy["requested_attributes"].(map[string]interface{})
				for _, v := range attrs {
					if item, ok := v.(map[string]interface{}); ok {
						redactAttributeRequest(item)
					}
				}
			}
		}
	}

	if _, ok := j["pres_request"]; ok {
		j["pres_request"] = redactedObject
	}
}

func redactAttributeRequest(item map[string]interface{}) {
	if nr, ok := item["non_revoked"].(map[string]interface{}); ok {
		for _, k := range []string{"from", "to"} {
			if _, ok := nr[k]; ok {
				nr[k] = redacted
			}
		}
	}

	restrictions, _ := item["restrictions"].([]interface{})
	for _, r := range restrictions {
		if rm, ok := r.(map[string]interface{}); ok {
			if _, ok := rm["issuer_did"]; ok {
				rm["issuer_did"] = redacted
			}
		}
	}
}
