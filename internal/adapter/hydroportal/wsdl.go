package hydroportal

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

const (
	wsdlNS     = "http://schemas.xmlsoap.org/wsdl/"
	wsdlSOAPNS = "http://schemas.xmlsoap.org/wsdl/soap/"
)

// ServiceDescription is the part of a WSDL document needed to call a
// document/literal SOAP 1.1 service.
type ServiceDescription struct {
	TargetNamespace string
	Endpoint        string
	actions         map[string]string // operation name -> soapAction
}

// SOAPAction returns the advertised action for op.
func (d *ServiceDescription) SOAPAction(op string) (string, bool) {
	action, ok := d.actions[op]
	return action, ok
}

// Operations lists the advertised operation names.
func (d *ServiceDescription) Operations() []string {
	ops := make([]string, 0, len(d.actions))
	for op := range d.actions {
		ops = append(ops, op)
	}
	return ops
}

type wsdlDefinitions struct {
	XMLName         xml.Name      `xml:"http://schemas.xmlsoap.org/wsdl/ definitions"`
	TargetNamespace string        `xml:"targetNamespace,attr"`
	Bindings        []wsdlBinding `xml:"http://schemas.xmlsoap.org/wsdl/ binding"`
	Services        []wsdlService `xml:"http://schemas.xmlsoap.org/wsdl/ service"`
}

type wsdlBinding struct {
	Name       string          `xml:"name,attr"`
	SOAP       *soapBinding    `xml:"http://schemas.xmlsoap.org/wsdl/soap/ binding"`
	Operations []wsdlOperation `xml:"http://schemas.xmlsoap.org/wsdl/ operation"`
}

type soapBinding struct {
	Transport string `xml:"transport,attr"`
	Style     string `xml:"style,attr"`
}

type wsdlOperation struct {
	Name string         `xml:"name,attr"`
	SOAP *soapOperation `xml:"http://schemas.xmlsoap.org/wsdl/soap/ operation"`
}

type soapOperation struct {
	Action string `xml:"soapAction,attr"`
}

type wsdlService struct {
	Name  string     `xml:"name,attr"`
	Ports []wsdlPort `xml:"http://schemas.xmlsoap.org/wsdl/ port"`
}

type wsdlPort struct {
	Name    string       `xml:"name,attr"`
	Binding string       `xml:"binding,attr"`
	Address *soapAddress `xml:"http://schemas.xmlsoap.org/wsdl/soap/ address"`
}

type soapAddress struct {
	Location string `xml:"location,attr"`
}

// ParseWSDL reads a WSDL 1.1 document and extracts the SOAP 1.1 port. A
// relative endpoint address is resolved against base.
func ParseWSDL(r io.Reader, base *url.URL) (*ServiceDescription, error) {
	var defs wsdlDefinitions
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := dec.Decode(&defs); err != nil {
		return nil, fmt.Errorf("decode wsdl: %w", err)
	}

	port, binding, err := soapPort(defs)
	if err != nil {
		return nil, err
	}

	endpoint, err := resolveEndpoint(port.Address.Location, base)
	if err != nil {
		return nil, err
	}

	desc := &ServiceDescription{
		TargetNamespace: defs.TargetNamespace,
		Endpoint:        endpoint,
		actions:         make(map[string]string, len(binding.Operations)),
	}
	for _, op := range binding.Operations {
		action := ""
		if op.SOAP != nil {
			action = op.SOAP.Action
		}
		desc.actions[op.Name] = action
	}
	return desc, nil
}

// soapPort finds the first service port that has a SOAP 1.1 address and is
// bound to a SOAP 1.1 binding.
func soapPort(defs wsdlDefinitions) (wsdlPort, wsdlBinding, error) {
	bindings := make(map[string]wsdlBinding, len(defs.Bindings))
	for _, b := range defs.Bindings {
		if b.SOAP != nil {
			bindings[b.Name] = b
		}
	}
	if len(bindings) == 0 {
		return wsdlPort{}, wsdlBinding{}, errors.New("wsdl: no SOAP 1.1 binding")
	}

	for _, svc := range defs.Services {
		for _, port := range svc.Ports {
			if port.Address == nil || port.Address.Location == "" {
				continue
			}
			if b, ok := bindings[localName(port.Binding)]; ok {
				return port, b, nil
			}
		}
	}
	return wsdlPort{}, wsdlBinding{}, errors.New("wsdl: no SOAP 1.1 port")
}

func resolveEndpoint(location string, base *url.URL) (string, error) {
	u, err := url.Parse(strings.TrimSpace(location))
	if err != nil {
		return "", fmt.Errorf("wsdl: endpoint %q: %w", location, err)
	}
	if base != nil && !u.IsAbs() {
		u = base.ResolveReference(u)
	}
	return u.String(), nil
}

// localName strips a namespace prefix such as "tns:".
func localName(qname string) string {
	if i := strings.LastIndexByte(qname, ':'); i >= 0 {
		return qname[i+1:]
	}
	return qname
}
