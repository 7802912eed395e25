package hydroportal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norlandrhagen/snowintel/internal/adapter/hydroportal/soaptest"
)

func TestBuildEnvelope_EscapesValues(t *testing.T) {
	env := string(buildEnvelope("urn:ns", "GetSiteInfo", []element{{Name: "site", Value: `a<b&"c"`}}))

	assert.Contains(t, env, `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">`)
	assert.Contains(t, env, `<GetSiteInfo xmlns="urn:ns"><site>a&lt;b&amp;&#34;c&#34;</site></GetSiteInfo>`)
}

func TestParseEnvelope_EscapedResult(t *testing.T) {
	payload := `<sitesResponse><site/></sitesResponse>`
	got, err := parseEnvelope(soaptest.Envelope("GetSites", []byte(payload)), "GetSites")
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
}

func TestParseEnvelope_InlineResult(t *testing.T) {
	body := `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>
<GetValuesResponse xmlns="http://www.cuahsi.org/his/1.1/ws/"><GetValuesResult><timeSeriesResponse><timeSeries/></timeSeriesResponse></GetValuesResult></GetValuesResponse>
</soap:Body></soap:Envelope>`

	got, err := parseEnvelope([]byte(body), "GetValues")
	require.NoError(t, err)
	assert.Equal(t, `<timeSeriesResponse><timeSeries/></timeSeriesResponse>`, string(got))
}

func TestParseEnvelope_CDATAResult(t *testing.T) {
	body := `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>
<GetSitesResponse><GetSitesResult><![CDATA[<sitesResponse/>]]></GetSitesResult></GetSitesResponse>
</soap:Body></soap:Envelope>`

	got, err := parseEnvelope([]byte(body), "GetSites")
	require.NoError(t, err)
	assert.Equal(t, `<sitesResponse/>`, string(got))
}

func TestParseEnvelope_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"not xml", "gateway timeout", "decode soap envelope"},
		{"not an envelope", "<html/>", "decode soap envelope"},
		{"missing response", `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body><Other/></soap:Body></soap:Envelope>`, "missing GetSitesResponse"},
		{"missing result", `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body><GetSitesResponse/></soap:Body></soap:Envelope>`, "missing GetSitesResult"},
		{"fault", string(soaptest.Fault("soap:Server", "boom")), "soap fault soap:Server: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseEnvelope([]byte(tt.body), "GetSites")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
