package fields

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

// xmlNode is a namespace-agnostic element tree. Capabilities documents vary
// too much between servers and versions for fixed structs.
type xmlNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Content string     `xml:",chardata"`
	Nodes   []xmlNode  `xml:",any"`
}

func parseXML(data []byte) (*xmlNode, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charsetReader
	dec.Entity = xml.HTMLEntity

	var root xmlNode
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}
	return &root, nil
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

func (n *xmlNode) name() string {
	return n.XMLName.Local
}

func (n *xmlNode) attr(local string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

func (n *xmlNode) text() string {
	return strings.TrimSpace(n.Content)
}

func (n *xmlNode) children(local string) []*xmlNode {
	var out []*xmlNode
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == local {
			out = append(out, &n.Nodes[i])
		}
	}
	return out
}

func (n *xmlNode) child(local string) *xmlNode {
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == local {
			return &n.Nodes[i]
		}
	}
	return nil
}

// childText returns the text of the first child named local, or "".
func (n *xmlNode) childText(local string) string {
	if c := n.child(local); c != nil {
		return c.text()
	}
	return ""
}

// descendants returns every element named local below n, in document order.
func (n *xmlNode) descendants(local string) []*xmlNode {
	var out []*xmlNode
	for i := range n.Nodes {
		c := &n.Nodes[i]
		if c.XMLName.Local == local {
			out = append(out, c)
		}
		out = append(out, c.descendants(local)...)
	}
	return out
}
