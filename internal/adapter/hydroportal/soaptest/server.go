// Package soaptest runs an in-process WaterOneFlow 1.1 SOAP service for
// tests. It serves a WSDL document and answers each operation with a canned
// WaterML payload wrapped the way HydroPortal wraps it: escaped text inside
// <opResult>.
package soaptest

import (
	"bytes"
	_ "embed"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

const (
	servicePath = "/Snotel/cuahsi_1_1.asmx"
	namespace   = "http://www.cuahsi.org/his/1.1/ws/"
)

//go:embed wsdl.xml
var wsdlTemplate string

// Request is one SOAP call received by the server.
type Request struct {
	Operation  string
	SOAPAction string
	Body       []byte
}

// Server is a fake HydroPortal endpoint.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	payloads  map[string][]byte
	faults    map[string]string
	wsdlHits  int
	requests  []Request
	opCounter map[string]int
}

// NewServer starts a server answering each operation in payloads (keyed by
// operation name, e.g. "GetSites") with the given WaterML document.
func NewServer(payloads map[string][]byte) *Server {
	s := &Server{
		payloads:  make(map[string][]byte, len(payloads)),
		faults:    make(map[string]string),
		opCounter: make(map[string]int),
	}
	for op, p := range payloads {
		s.payloads[op] = p
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// WSDLURL is the service description URL to hand to a client.
func (s *Server) WSDLURL() string {
	return s.URL + servicePath + "?WSDL"
}

// SetPayload replaces the response for op.
func (s *Server) SetPayload(op string, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads[op] = payload
	delete(s.faults, op)
}

// SetFault makes op answer with a SOAP fault carrying msg.
func (s *Server) SetFault(op, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = msg
}

// Calls reports how many times op was invoked.
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opCounter[op]
}

// WSDLHits reports how many times the WSDL was fetched.
func (s *Server) WSDLHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wsdlHits
}

// Requests returns every SOAP call received so far, in order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != servicePath {
		http.NotFound(w, r)
		return
	}

	if r.Method == http.MethodGet {
		s.mu.Lock()
		s.wsdlHits++
		s.mu.Unlock()
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		_, _ = io.WriteString(w, strings.ReplaceAll(wsdlTemplate, "{{ENDPOINT}}", s.URL+servicePath))
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, _ := io.ReadAll(r.Body)
	action := strings.Trim(r.Header.Get("SOAPAction"), `"`)
	op := action[strings.LastIndexByte(action, '/')+1:]

	s.mu.Lock()
	s.requests = append(s.requests, Request{Operation: op, SOAPAction: action, Body: body})
	s.opCounter[op]++
	payload, ok := s.payloads[op]
	faultMsg, faulted := s.faults[op]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	switch {
	case faulted:
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(Fault("soap:Server", faultMsg))
	case !ok:
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(Fault("soap:Client", "Server did not recognize the value of HTTP Header SOAPAction: "+action))
	default:
		_, _ = w.Write(Envelope(op, payload))
	}
}

// Envelope wraps a WaterML payload in a SOAP response for op.
func Envelope(op string, payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema">`)
	buf.WriteString(`<soap:Body><` + op + `Response xmlns="` + namespace + `"><` + op + `Result>`)
	_ = xml.EscapeText(&buf, payload)
	buf.WriteString(`</` + op + `Result></` + op + `Response></soap:Body></soap:Envelope>`)
	return buf.Bytes()
}

// Fault renders a SOAP 1.1 fault envelope.
func Fault(code, msg string) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body><soap:Fault>`)
	buf.WriteString(`<faultcode>` + code + `</faultcode><faultstring>`)
	_ = xml.EscapeText(&buf, []byte(msg))
	buf.WriteString(`</faultstring><detail /></soap:Fault></soap:Body></soap:Envelope>`)
	return buf.Bytes()
}
