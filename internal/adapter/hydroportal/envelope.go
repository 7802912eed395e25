package hydroportal

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const soapEnvNS = "http://schemas.xmlsoap.org/soap/envelope/"

// element is one child of an operation's request element. Children, when set,
// take precedence over Value.
type element struct {
	Name     string
	Value    string
	Children []element
}

// buildEnvelope renders a document/literal SOAP 1.1 request for op.
func buildEnvelope(namespace, op string, params []element) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<soap:Envelope xmlns:soap="` + soapEnvNS + `">`)
	buf.WriteString(`<soap:Body>`)
	buf.WriteString(`<` + op + ` xmlns="`)
	_ = xml.EscapeText(&buf, []byte(namespace))
	buf.WriteString(`">`)
	for _, p := range params {
		writeElement(&buf, p)
	}
	buf.WriteString(`</` + op + `>`)
	buf.WriteString(`</soap:Body></soap:Envelope>`)
	return buf.Bytes()
}

func writeElement(buf *bytes.Buffer, e element) {
	buf.WriteString("<" + e.Name + ">")
	if len(e.Children) > 0 {
		for _, c := range e.Children {
			writeElement(buf, c)
		}
	} else {
		_ = xml.EscapeText(buf, []byte(e.Value))
	}
	buf.WriteString("</" + e.Name + ">")
}

type responseEnvelope struct {
	XMLName xml.Name `xml:"http://schemas.xmlsoap.org/soap/envelope/ Envelope"`
	Body    struct {
		Fault *Fault `xml:"http://schemas.xmlsoap.org/soap/envelope/ Fault"`
		Inner []byte `xml:",innerxml"`
	} `xml:"http://schemas.xmlsoap.org/soap/envelope/ Body"`
}

// Fault is a SOAP 1.1 fault returned by the service.
type Fault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
	Actor  string `xml:"faultactor"`
	Detail string `xml:"detail"`
}

func (f *Fault) Error() string {
	msg := strings.TrimSpace(f.String)
	if d := strings.TrimSpace(f.Detail); d != "" {
		msg += ": " + d
	}
	return fmt.Sprintf("soap fault %s: %s", strings.TrimSpace(f.Code), msg)
}

type resultElement struct {
	Text  string `xml:",chardata"`
	Inner string `xml:",innerxml"`
}

// parseEnvelope extracts the <opResult> payload from a SOAP response. The
// result is either escaped text (the usual WaterOneFlow shape) or inline XML.
func parseEnvelope(body []byte, op string) ([]byte, error) {
	var env responseEnvelope
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("decode soap envelope: %w", err)
	}
	if env.Body.Fault != nil {
		return nil, env.Body.Fault
	}
	return findResult(env.Body.Inner, op)
}

func findResult(inner []byte, op string) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(inner))
	inResponse := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode soap body: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case op + "Response":
			inResponse = true
		case op + "Result":
			if !inResponse {
				continue
			}
			var res resultElement
			if err := dec.DecodeElement(&res, &start); err != nil {
				return nil, fmt.Errorf("decode %sResult: %w", op, err)
			}
			inline := strings.TrimSpace(res.Inner)
			if strings.HasPrefix(inline, "<") && !strings.HasPrefix(inline, "<![CDATA[") {
				return []byte(inline), nil
			}
			return []byte(strings.TrimSpace(res.Text)), nil
		}
	}
	if !inResponse {
		return nil, fmt.Errorf("missing %sResponse element", op)
	}
	return nil, fmt.Errorf("missing %sResult element", op)
}
