package xmp_test

import (
	"encoding/xml"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/SethCurry/stocktag/internal/xmp"
	"github.com/SethCurry/stocktag/pkg/stock"
)

type rdfList struct {
	Items []string `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# li"`
}

type rdfContainer struct {
	Alt rdfList `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Alt"`
	Bag rdfList `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Bag"`
}

type description struct {
	Rating          string         `xml:"http://ns.adobe.com/xap/1.0/ Rating,attr"`
	MicrosoftRating string         `xml:"http://ns.microsoft.com/photo/1.0/ Rating,attr"`
	Title           rdfContainer   `xml:"http://purl.org/dc/elements/1.1/ title"`
	Description     rdfContainer   `xml:"http://purl.org/dc/elements/1.1/ description"`
	Subjects        []rdfContainer `xml:"http://purl.org/dc/elements/1.1/ subject"`
	Rights          rdfContainer   `xml:"http://purl.org/dc/elements/1.1/ rights"`
	PhotoshopKeys   string         `xml:"http://ns.adobe.com/photoshop/1.0/ Keywords"`
	LastKeywordXMP  rdfContainer   `xml:"http://ns.microsoft.com/photo/1.0/ LastKeywordXMP"`
	LastKeywordIPTC rdfContainer   `xml:"http://ns.microsoft.com/photo/1.0/ LastKeywordIPTC"`
	IptcCoreKeys    rdfContainer   `xml:"http://iptc.org/std/Iptc4xmpCore/1.0/xmlns/ Keywords"`
}

type xmpmeta struct {
	XMLName      xml.Name    `xml:"adobe:ns:meta/ xmpmeta"`
	Descriptions description `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# RDF>Description"`
}

func parse(t *testing.T, packet string) description {
	t.Helper()

	var meta xmpmeta

	err := xml.Unmarshal([]byte(packet), &meta)
	if err != nil {
		t.Fatalf("failed to parse packet: %v\n%s", err, packet)
	}

	return meta.Descriptions
}

func build(r *stock.Result) string {
	return xmp.Build(stock.NewEmbedFields(r, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func TestBuildRoundTrip(t *testing.T) {
	keywords := []string{"fox", "snow", "winter"}

	packet := build(&stock.Result{
		Title:       "Red fox",
		Description: "A red fox crossing a snowy field",
		Keywords:    keywords,
	})

	if !strings.HasPrefix(packet, "<?xpacket begin=") || !strings.HasSuffix(packet, `<?xpacket end="w"?>`) {
		t.Errorf("packet is not wrapped in xpacket instructions:\n%s", packet)
	}

	desc := parse(t, packet)

	if got := desc.Title.Alt.Items; !reflect.DeepEqual(got, []string{"Red fox"}) {
		t.Errorf("dc:title: got %v", got)
	}

	if got := desc.Description.Alt.Items; !reflect.DeepEqual(got, []string{"A red fox crossing a snowy field"}) {
		t.Errorf("dc:description: got %v", got)
	}

	if len(desc.Subjects) != 2 {
		t.Fatalf("got %d dc:subject elements want 2", len(desc.Subjects))
	}

	if got := desc.Subjects[0].Bag.Items; !reflect.DeepEqual(got, []string{"Red fox"}) {
		t.Errorf("first dc:subject: got %v", got)
	}

	for name, got := range map[string][]string{
		"dc:subject":      desc.Subjects[1].Bag.Items,
		"LastKeywordXMP":  desc.LastKeywordXMP.Bag.Items,
		"LastKeywordIPTC": desc.LastKeywordIPTC.Bag.Items,
		"iptcCore":        desc.IptcCoreKeys.Bag.Items,
	} {
		if !reflect.DeepEqual(got, keywords) {
			t.Errorf("%s: got %v want %v", name, got, keywords)
		}
	}

	if desc.PhotoshopKeys != "fox, snow, winter" {
		t.Errorf("photoshop:Keywords: got %q", desc.PhotoshopKeys)
	}
}

func TestBuildConstants(t *testing.T) {
	desc := parse(t, build(&stock.Result{Title: "anything"}))

	if desc.Rating != "5" {
		t.Errorf("xmp:Rating: got %q want 5", desc.Rating)
	}

	if desc.MicrosoftRating != "99" {
		t.Errorf("MicrosoftPhoto:Rating: got %q want 99", desc.MicrosoftRating)
	}

	if got := desc.Rights.Alt.Items; !reflect.DeepEqual(got, []string{"© 2026 All Rights Reserved"}) {
		t.Errorf("dc:rights: got %v", got)
	}
}

func TestBuildEscapesText(t *testing.T) {
	title := `Fish & "Chips" <on> Joe's plate`

	packet := build(&stock.Result{Title: title, Keywords: []string{"a&b", "<tag>"}})

	if strings.Contains(packet, "Fish & ") || strings.Contains(packet, "<on>") || strings.Contains(packet, "<tag>") {
		t.Errorf("packet contains unescaped text:\n%s", packet)
	}

	desc := parse(t, packet)

	if got := desc.Title.Alt.Items; !reflect.DeepEqual(got, []string{title}) {
		t.Errorf("dc:title: got %v want %q", got, title)
	}

	if got := desc.IptcCoreKeys.Bag.Items; !reflect.DeepEqual(got, []string{"a&b", "<tag>"}) {
		t.Errorf("keywords: got %v", got)
	}
}

func TestBuildDropsIllegalCharacters(t *testing.T) {
	testCases := []struct {
		name     string
		title    string
		keyword  string
		title2   string
		keyword2 string
	}{
		{"Control characters", "Fox\x01 at dusk", "fox\x0b", "Fox at dusk", "fox"},
		{"Invalid UTF-8", "Fox\xff\xfe at dusk", "sn\xc3ow", "Fox at dusk", "snow"},
		{"Noncharacters", "Fox\uffff at dusk", "dusk\ufffe", "Fox at dusk", "dusk"},
		{"Whitespace is kept", "Fox\tat\ndusk", "red fox", "Fox\tat\ndusk", "red fox"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			packet := build(&stock.Result{Title: tc.title, Keywords: []string{tc.keyword}})

			dec := xml.NewDecoder(strings.NewReader(packet))
			for {
				_, err := dec.Token()
				if err == io.EOF {
					break
				}

				if err != nil {
					t.Fatalf("packet does not parse: %v\n%q", err, packet)
				}
			}

			desc := parse(t, packet)

			if got := desc.Title.Alt.Items; !reflect.DeepEqual(got, []string{tc.title2}) {
				t.Errorf("dc:title: got %q want %q", got, tc.title2)
			}

			if got := desc.IptcCoreKeys.Bag.Items; !reflect.DeepEqual(got, []string{tc.keyword2}) {
				t.Errorf("keywords: got %q want %q", got, tc.keyword2)
			}
		})
	}
}

func TestBuildOmitsAbsentFields(t *testing.T) {
	packet := build(&stock.Result{})

	for _, element := range []string{"dc:title", "dc:description", "dc:subject", "iptcCore:Keywords", "dc:creator"} {
		if strings.Contains(packet, "<"+element+">") {
			t.Errorf("empty result still wrote %s", element)
		}
	}

	parse(t, packet)
}

func TestEscape(t *testing.T) {
	if got := xmp.Escape(`&<>"'`); got != "&amp;&lt;&gt;&quot;&apos;" {
		t.Errorf("got %s", got)
	}
}
