package domain

import "strings"

// RelationType discriminates the concrete Relation variant. Stored on
// relationships under the "etype" key.
type RelationType string

const (
	TypeBasicDNSRelation RelationType = "BasicDNSRelation"
	TypePrefDNSRelation  RelationType = "PrefDNSRelation"
	TypeSRVDNSRelation   RelationType = "SRVDNSRelation"
	TypePortRelation     RelationType = "PortRelation"
	TypeSimpleRelation   RelationType = "SimpleRelation"
)

// Relation is the typed payload carried by an edge between two entities.
//
// Equals compares identity fields only. FresherThan reports whether the
// receiver carries newer data than a stored relation it is content-equal
// to, and OverrideWith merges that newer data into a stored relation,
// returning the combined result.
type Relation interface {
	// Label returns the relation label, e.g. "dns_record". The upper-cased
	// label becomes the relationship type in the graph store.
	Label() string

	// RelationType returns the variant discriminator.
	RelationType() RelationType

	// Props projects the declared fields to a flat key/value map.
	Props() map[string]any

	// Equals reports content equality over identity fields.
	Equals(other Relation) bool

	// FresherThan reports whether the receiver should override other.
	FresherThan(other Relation) bool

	// OverrideWith returns a copy of the receiver with other's volatile
	// fields merged in. The receiver is the stored relation.
	OverrideWith(other Relation) Relation
}

// RRHeader is the shared header of DNS resource-record relations. RRType
// and Class identify the record; TTL is volatile.
type RRHeader struct {
	RRType int
	Class  int
	TTL    int
}

func (h RRHeader) props() map[string]any {
	return map[string]any{
		"header_rrtype": h.RRType,
		"header_class":  h.Class,
		"header_ttl":    h.TTL,
	}
}

func (h RRHeader) sameRecord(o RRHeader) bool {
	return h.RRType == o.RRType && h.Class == o.Class
}

// BasicDNSRelation is a plain DNS resource record pointing at another
// entity, e.g. an A record from an FQDN to an IPAddress.
type BasicDNSRelation struct {
	Name   string
	Header RRHeader
}

func (r BasicDNSRelation) Label() string              { return r.Name }
func (r BasicDNSRelation) RelationType() RelationType { return TypeBasicDNSRelation }

func (r BasicDNSRelation) Props() map[string]any {
	p := map[string]any{"label": r.Name}
	for k, v := range r.Header.props() {
		p[k] = v
	}
	return p
}

func (r BasicDNSRelation) Equals(other Relation) bool {
	o, ok := other.(BasicDNSRelation)
	return ok && strings.EqualFold(r.Name, o.Name) && r.Header.sameRecord(o.Header)
}

func (r BasicDNSRelation) FresherThan(other Relation) bool {
	o, ok := other.(BasicDNSRelation)
	return ok && r.Header.TTL != o.Header.TTL
}

func (r BasicDNSRelation) OverrideWith(other Relation) Relation {
	if o, ok := other.(BasicDNSRelation); ok {
		r.Header.TTL = o.Header.TTL
	}
	return r
}

// PrefDNSRelation is a DNS record carrying a preference value, e.g. MX.
type PrefDNSRelation struct {
	Name       string
	Header     RRHeader
	Preference int
}

func (r PrefDNSRelation) Label() string              { return r.Name }
func (r PrefDNSRelation) RelationType() RelationType { return TypePrefDNSRelation }

func (r PrefDNSRelation) Props() map[string]any {
	p := map[string]any{"label": r.Name, "preference": r.Preference}
	for k, v := range r.Header.props() {
		p[k] = v
	}
	return p
}

func (r PrefDNSRelation) Equals(other Relation) bool {
	o, ok := other.(PrefDNSRelation)
	return ok && strings.EqualFold(r.Name, o.Name) && r.Header.sameRecord(o.Header)
}

func (r PrefDNSRelation) FresherThan(other Relation) bool {
	o, ok := other.(PrefDNSRelation)
	return ok && (r.Header.TTL != o.Header.TTL || r.Preference != o.Preference)
}

func (r PrefDNSRelation) OverrideWith(other Relation) Relation {
	if o, ok := other.(PrefDNSRelation); ok {
		r.Header.TTL = o.Header.TTL
		r.Preference = o.Preference
	}
	return r
}

// SRVDNSRelation is a DNS SRV record.
type SRVDNSRelation struct {
	Name     string
	Header   RRHeader
	Priority int
	Weight   int
	Port     int
}

func (r SRVDNSRelation) Label() string              { return r.Name }
func (r SRVDNSRelation) RelationType() RelationType { return TypeSRVDNSRelation }

func (r SRVDNSRelation) Props() map[string]any {
	p := map[string]any{
		"label":    r.Name,
		"priority": r.Priority,
		"weight":   r.Weight,
		"port":     r.Port,
	}
	for k, v := range r.Header.props() {
		p[k] = v
	}
	return p
}

func (r SRVDNSRelation) Equals(other Relation) bool {
	o, ok := other.(SRVDNSRelation)
	return ok && strings.EqualFold(r.Name, o.Name) && r.Header.sameRecord(o.Header)
}

func (r SRVDNSRelation) FresherThan(other Relation) bool {
	o, ok := other.(SRVDNSRelation)
	if !ok {
		return false
	}
	return r.Header.TTL != o.Header.TTL || r.Priority != o.Priority ||
		r.Weight != o.Weight || r.Port != o.Port
}

func (r SRVDNSRelation) OverrideWith(other Relation) Relation {
	if o, ok := other.(SRVDNSRelation); ok {
		r.Header.TTL = o.Header.TTL
		r.Priority = o.Priority
		r.Weight = o.Weight
		r.Port = o.Port
	}
	return r
}

// PortRelation links an asset to a service listening on a port. All fields
// are identity; the relation has no volatile data.
type PortRelation struct {
	Name       string
	PortNumber int
	Protocol   string
}

func (r PortRelation) Label() string              { return r.Name }
func (r PortRelation) RelationType() RelationType { return TypePortRelation }

func (r PortRelation) Props() map[string]any {
	return map[string]any{
		"label":       r.Name,
		"port_number": r.PortNumber,
		"protocol":    r.Protocol,
	}
}

func (r PortRelation) Equals(other Relation) bool {
	o, ok := other.(PortRelation)
	return ok && strings.EqualFold(r.Name, o.Name) &&
		r.PortNumber == o.PortNumber && strings.EqualFold(r.Protocol, o.Protocol)
}

func (r PortRelation) FresherThan(other Relation) bool { return false }
func (r PortRelation) OverrideWith(other Relation) Relation {
	return r
}

// SimpleRelation is a bare labeled relation with no payload beyond the
// label itself.
type SimpleRelation struct {
	Name string
}

func (r SimpleRelation) Label() string              { return r.Name }
func (r SimpleRelation) RelationType() RelationType { return TypeSimpleRelation }

func (r SimpleRelation) Props() map[string]any {
	return map[string]any{"label": r.Name}
}

func (r SimpleRelation) Equals(other Relation) bool {
	o, ok := other.(SimpleRelation)
	return ok && strings.EqualFold(r.Name, o.Name)
}

func (r SimpleRelation) FresherThan(other Relation) bool { return false }
func (r SimpleRelation) OverrideWith(other Relation) Relation {
	return r
}
