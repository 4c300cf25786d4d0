package ipfix

import (
	"fmt"
	"strings"
)

// FieldSpec describes one field of a TemplateSet: which information
// element it carries, its wire size in bytes, and its enterprise number
// (0 for IANA-assigned elements, the only kind this exporter emits).
type FieldSpec struct {
	Identifier       FieldID
	SizeBytes        int
	EnterpriseNumber uint32
}

// TemplateSet is an ordered sequence of FieldSpecs sharing a set ID.
type TemplateSet struct {
	ID     uint16
	Fields []FieldSpec
}

// dataLength is the sum of field sizes in the set, i.e. the per-record
// payload width this set contributes to a DataSet.
func (ts TemplateSet) dataLength() int {
	n := 0
	for _, f := range ts.Fields {
		n += f.SizeBytes
	}
	return n
}

// Template is the ordered sequence of TemplateSets that drives
// serialization. Built once at startup via Build and never mutated
// afterwards.
type Template struct {
	Sets []TemplateSet
}

// FieldDef is the declarative (identifier, size) pair configuration
// supplies, per spec §4.C / §6.
type FieldDef struct {
	Identifier string
	SizeBytes  int
}

// Build constructs a single-set Template from an ordered list of field
// definitions, validating each identifier against the closed IPFIX
// enumeration (spec §3) and each size against its canonical IPFIX size
// (spec §4.C). Unknown identifiers or size mismatches are rejected here,
// at build time, rather than discovered later while encoding.
func Build(setID uint16, defs []FieldDef) (*Template, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("ipfix: template must declare at least one field")
	}
	fields := make([]FieldSpec, 0, len(defs))
	for _, d := range defs {
		id, ok := FieldNames[d.Identifier]
		if !ok {
			return nil, fmt.Errorf("ipfix: unknown field identifier %q", d.Identifier)
		}
		want := canonicalSize[id]
		if d.SizeBytes != want {
			return nil, fmt.Errorf("ipfix: field %q declared size %d, canonical size is %d", d.Identifier, d.SizeBytes, want)
		}
		fields = append(fields, FieldSpec{Identifier: id, SizeBytes: d.SizeBytes})
	}
	return &Template{Sets: []TemplateSet{{ID: setID, Fields: fields}}}, nil
}

// DefaultFieldDefs is the built-in template equivalent to the nine
// canonical fields in spec §3, in the order the original dataplane's
// ipfix_make_v10_template used.
var DefaultFieldDefs = []FieldDef{
	{Identifier: "sourceIPv4Address", SizeBytes: 4},
	{Identifier: "destinationIPv4Address", SizeBytes: 4},
	{Identifier: "protocolIdentifier", SizeBytes: 1},
	{Identifier: "sourceTransportPort", SizeBytes: 2},
	{Identifier: "destinationTransportPort", SizeBytes: 2},
	{Identifier: "flowStartMilliseconds", SizeBytes: 8},
	{Identifier: "flowEndMilliseconds", SizeBytes: 8},
	{Identifier: "octetDeltaCount", SizeBytes: 8},
	{Identifier: "packetDeltaCount", SizeBytes: 8},
}

// DefaultSetID is the data set ID the built-in template uses; set IDs
// 256 and above are reserved for data sets per RFC 7011.
const DefaultSetID uint16 = 256

// BuildDefault constructs the built-in nine-field template.
func BuildDefault() (*Template, error) {
	return Build(DefaultSetID, DefaultFieldDefs)
}

// String renders a human-readable dump of the template, in the spirit of
// the original dataplane's format_netflow_v10_template debug helper.
// Exposed for diagnostics via internal/api.
func (t *Template) String() string {
	var b strings.Builder
	b.WriteString("IPFIX template:\n")
	for _, set := range t.Sets {
		fmt.Fprintf(&b, "  set %d:\n", set.ID)
		for _, f := range set.Fields {
			fmt.Fprintf(&b, "    %s (%d bytes, enterprise %d)\n", f.Identifier, f.SizeBytes, f.EnterpriseNumber)
		}
	}
	return b.String()
}
