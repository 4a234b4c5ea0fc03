package domain

// PropertyType discriminates the concrete Property variant. Stored on tag
// nodes under the "ttype" key and doubles as an extra graph label for
// indexed lookup.
type PropertyType string

const (
	TypeDNSRecordProperty PropertyType = "DNSRecordProperty"
	TypeSimpleProperty    PropertyType = "SimpleProperty"
	TypeSourceProperty    PropertyType = "SourceProperty"
	TypeVulnProperty      PropertyType = "VulnProperty"
)

// Property is the typed payload carried by an entity tag or edge tag.
// ContentKey projects the identity fields used for duplicate detection;
// FresherThan and OverrideWith follow the same discipline as Relation.
type Property interface {
	// Name returns the property's display name, matched case-sensitively
	// by owner-scoped tag lookups.
	Name() string

	// PropertyType returns the variant discriminator.
	PropertyType() PropertyType

	// Props projects the declared fields to a flat key/value map.
	Props() map[string]any

	// ContentKey projects only the identity fields, used to locate a
	// content-equal stored tag.
	ContentKey() map[string]any

	// FresherThan reports whether the receiver should override other.
	FresherThan(other Property) bool

	// OverrideWith returns a copy of the receiver with other's volatile
	// fields merged in. The receiver is the stored property.
	OverrideWith(other Property) Property
}

// DNSRecordProperty records a DNS answer observed for the owning record.
// The TTL is volatile; name and data identify the property.
type DNSRecordProperty struct {
	PropertyName string
	Header       RRHeader
	Data         string
}

func (p DNSRecordProperty) Name() string               { return p.PropertyName }
func (p DNSRecordProperty) PropertyType() PropertyType { return TypeDNSRecordProperty }

func (p DNSRecordProperty) Props() map[string]any {
	m := map[string]any{"property_name": p.PropertyName, "data": p.Data}
	for k, v := range p.Header.props() {
		m[k] = v
	}
	return m
}

func (p DNSRecordProperty) ContentKey() map[string]any {
	return map[string]any{"property_name": p.PropertyName, "data": p.Data}
}

func (p DNSRecordProperty) FresherThan(other Property) bool {
	o, ok := other.(DNSRecordProperty)
	return ok && p.Header.TTL != o.Header.TTL
}

func (p DNSRecordProperty) OverrideWith(other Property) Property {
	if o, ok := other.(DNSRecordProperty); ok {
		p.Header.TTL = o.Header.TTL
	}
	return p
}

// SimpleProperty is an arbitrary name/value pair. Both fields are
// identity; it carries no volatile data.
type SimpleProperty struct {
	PropertyName  string
	PropertyValue string
}

func (p SimpleProperty) Name() string               { return p.PropertyName }
func (p SimpleProperty) PropertyType() PropertyType { return TypeSimpleProperty }

func (p SimpleProperty) Props() map[string]any {
	return map[string]any{
		"property_name":  p.PropertyName,
		"property_value": p.PropertyValue,
	}
}

func (p SimpleProperty) ContentKey() map[string]any { return p.Props() }

func (p SimpleProperty) FresherThan(other Property) bool { return false }
func (p SimpleProperty) OverrideWith(other Property) Property {
	return p
}

// SourceProperty attributes the owner to the data source that produced it.
// A higher confidence from the same source overrides a lower one.
type SourceProperty struct {
	Source     string
	Confidence int
}

func (p SourceProperty) Name() string               { return p.Source }
func (p SourceProperty) PropertyType() PropertyType { return TypeSourceProperty }

func (p SourceProperty) Props() map[string]any {
	return map[string]any{"name": p.Source, "confidence": p.Confidence}
}

func (p SourceProperty) ContentKey() map[string]any {
	return map[string]any{"name": p.Source}
}

func (p SourceProperty) FresherThan(other Property) bool {
	o, ok := other.(SourceProperty)
	return ok && p.Confidence > o.Confidence
}

func (p SourceProperty) OverrideWith(other Property) Property {
	if o, ok := other.(SourceProperty); ok {
		p.Confidence = o.Confidence
	}
	return p
}

// VulnProperty records a vulnerability finding. The vulnerability id and
// reporting source identify it; the descriptive fields are volatile.
type VulnProperty struct {
	ID          string
	Description string
	Source      string
	Category    string
	Enum        string
	Ref         string
}

func (p VulnProperty) Name() string               { return p.ID }
func (p VulnProperty) PropertyType() PropertyType { return TypeVulnProperty }

func (p VulnProperty) Props() map[string]any {
	return map[string]any{
		"vuln_id":  p.ID,
		"desc":     p.Description,
		"source":   p.Source,
		"category": p.Category,
		"enum":     p.Enum,
		"ref":      p.Ref,
	}
}

func (p VulnProperty) ContentKey() map[string]any {
	return map[string]any{"vuln_id": p.ID, "source": p.Source}
}

func (p VulnProperty) FresherThan(other Property) bool {
	o, ok := other.(VulnProperty)
	if !ok {
		return false
	}
	return p.Description != o.Description || p.Category != o.Category ||
		p.Enum != o.Enum || p.Ref != o.Ref
}

func (p VulnProperty) OverrideWith(other Property) Property {
	if o, ok := other.(VulnProperty); ok {
		p.Description = o.Description
		p.Category = o.Category
		p.Enum = o.Enum
		p.Ref = o.Ref
	}
	return p
}
