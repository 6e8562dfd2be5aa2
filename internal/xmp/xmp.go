// Package xmp renders the XMP packet embedded in exported JPEG files.
//
// The packet repeats the same title and keywords under several namespaces
// because stock marketplaces, Adobe tools and Windows Explorer each read a
// different subset of them.
package xmp

import (
	"fmt"
	"strings"

	"github.com/SethCurry/stocktag/pkg/stock"
)

// Namespace is the identifier that prefixes an XMP APP1 segment.
const Namespace = "http://ns.adobe.com/xap/1.0/"

// Namespace URIs used in the packet.
const (
	NamespaceRDF            = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NamespaceDC             = "http://purl.org/dc/elements/1.1/"
	NamespaceXMP            = "http://ns.adobe.com/xap/1.0/"
	NamespacePhotoshop      = "http://ns.adobe.com/photoshop/1.0/"
	NamespaceMicrosoftPhoto = "http://ns.microsoft.com/photo/1.0/"
	NamespaceIptcCore       = "http://iptc.org/std/Iptc4xmpCore/1.0/xmlns/"
)

// MicrosoftRating is what Windows stores for five stars on its 0-99 scale.
const MicrosoftRating = 99

const (
	packetBegin = "<?xpacket begin=\"\ufeff\" id=\"W5M0MpCehiHzreSzNTczkc9d\"?>\n"
	packetEnd   = "<?xpacket end=\"w\"?>"
	dateLayout  = "2006-01-02T15:04:05-07:00"
)

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// Escape escapes the five XML special characters.  Invalid UTF-8 and
// characters XML 1.0 does not allow, such as most C0 controls, are dropped.
func Escape(s string) string {
	return escaper.Replace(strings.Map(xmlChar, strings.ToValidUTF8(s, "")))
}

// xmlChar returns -1 for runes outside the XML 1.0 Char production.
func xmlChar(r rune) rune {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return r
	case r < 0x20:
		return -1
	case r >= 0xd800 && r <= 0xdfff, r == 0xfffe, r == 0xffff:
		return -1
	}

	return r
}

// Build renders a complete XMP packet for the fields.
//
// dc:subject is written twice when there are keywords: once holding the
// title for readers that treat it as a short label, and once holding the
// keyword bag.  Single-valued readers take the later one.
func Build(f stock.EmbedFields) string {
	var b strings.Builder

	date := f.Time.Format(dateLayout)

	b.WriteString(packetBegin)
	b.WriteString(`<x:xmpmeta xmlns:x="adobe:ns:meta/" x:xmptk="stocktag">` + "\n")
	fmt.Fprintf(&b, ` <rdf:RDF xmlns:rdf="%s">`+"\n", NamespaceRDF)
	b.WriteString(`  <rdf:Description rdf:about=""` + "\n")
	fmt.Fprintf(&b, `    xmlns:dc="%s"`+"\n", NamespaceDC)
	fmt.Fprintf(&b, `    xmlns:xmp="%s"`+"\n", NamespaceXMP)
	fmt.Fprintf(&b, `    xmlns:photoshop="%s"`+"\n", NamespacePhotoshop)
	fmt.Fprintf(&b, `    xmlns:MicrosoftPhoto="%s"`+"\n", NamespaceMicrosoftPhoto)
	fmt.Fprintf(&b, `    xmlns:iptcCore="%s"`+"\n", NamespaceIptcCore)
	fmt.Fprintf(&b, `    xmp:Rating="%d"`+"\n", f.Rating)
	fmt.Fprintf(&b, `    xmp:CreateDate="%s"`+"\n", date)
	fmt.Fprintf(&b, `    xmp:ModifyDate="%s"`+"\n", date)
	fmt.Fprintf(&b, `    xmp:MetadataDate="%s"`+"\n", date)
	fmt.Fprintf(&b, `    MicrosoftPhoto:Rating="%d">`+"\n", MicrosoftRating)

	if f.Title != "" {
		writeAlt(&b, "dc:title", f.Title)
		writeBag(&b, "dc:subject", []string{f.Title})
		writeSimple(&b, "photoshop:Headline", f.Title)
	}

	if f.Description != "" {
		writeAlt(&b, "dc:description", f.Description)
	}

	if len(f.Keywords) > 0 {
		writeBag(&b, "dc:subject", f.Keywords)
		writeSimple(&b, "photoshop:Keywords", strings.Join(f.Keywords, ", "))
		writeBag(&b, "MicrosoftPhoto:LastKeywordXMP", f.Keywords)
		writeBag(&b, "MicrosoftPhoto:LastKeywordIPTC", f.Keywords)
		writeBag(&b, "iptcCore:Keywords", f.Keywords)
	}

	if f.Author != "" {
		writeSeq(&b, "dc:creator", []string{f.Author})
	}

	if f.Copyright != "" {
		writeAlt(&b, "dc:rights", f.Copyright)
	}

	b.WriteString("  </rdf:Description>\n")
	b.WriteString(" </rdf:RDF>\n")
	b.WriteString("</x:xmpmeta>\n")
	b.WriteString(packetEnd)

	return b.String()
}

func writeSimple(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "   <%s>%s</%s>\n", name, Escape(value), name)
}

func writeAlt(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "   <%s>\n    <rdf:Alt>\n", name)
	fmt.Fprintf(b, "     <rdf:li xml:lang=\"x-default\">%s</rdf:li>\n", Escape(value))
	fmt.Fprintf(b, "    </rdf:Alt>\n   </%s>\n", name)
}

func writeBag(b *strings.Builder, name string, values []string) {
	writeList(b, name, "rdf:Bag", values)
}

func writeSeq(b *strings.Builder, name string, values []string) {
	writeList(b, name, "rdf:Seq", values)
}

func writeList(b *strings.Builder, name, kind string, values []string) {
	fmt.Fprintf(b, "   <%s>\n    <%s>\n", name, kind)

	for _, v := range values {
		fmt.Fprintf(b, "     <rdf:li>%s</rdf:li>\n", Escape(v))
	}

	fmt.Fprintf(b, "    </%s>\n   </%s>\n", kind, name)
}
