package codec

import (
	"fmt"
	"time"

	"assetgraph/internal/domain"
)

// DecodeError reports a stored record that is missing a required field or
// holds a malformed value, indicating store corruption or schema drift.
type DecodeError struct {
	Key    string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q: %s", e.Key, e.Reason)
}

func missingKey(key string) error {
	return &DecodeError{Key: key, Reason: "required field is absent"}
}

// stringProp returns the string value stored under key, or "".
func stringProp(props map[string]any, key string) string {
	if s, ok := props[key].(string); ok {
		return s
	}
	return ""
}

// intProp coerces the value stored under key to int. Store drivers differ
// in their numeric types: SQLite JSON yields float64, Neo4j yields int64.
func intProp(props map[string]any, key string) int {
	switch v := props[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func timeProp(props map[string]any, key string) (time.Time, error) {
	v, ok := props[key]
	if !ok {
		return time.Time{}, missingKey(key)
	}
	t, ok := v.(time.Time)
	if !ok {
		return time.Time{}, &DecodeError{Key: key, Reason: fmt.Sprintf("not a temporal value (%T)", v)}
	}
	return t, nil
}

func requireString(props map[string]any, key string) (string, error) {
	s := stringProp(props, key)
	if s == "" {
		return "", missingKey(key)
	}
	return s, nil
}

// project keeps only the declared fields of a variant.
func project(props map[string]any, fields []string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := props[f]; ok {
			out[f] = v
		}
	}
	return out
}

func decodeHeader(p map[string]any) domain.RRHeader {
	return domain.RRHeader{
		RRType: intProp(p, "header_rrtype"),
		Class:  intProp(p, "header_class"),
		TTL:    intProp(p, "header_ttl"),
	}
}

var headerFields = []string{"header_rrtype", "header_class", "header_ttl"}

// Per-variant field registries. Decode projects the stored map through the
// declared field list before constructing the variant, so unknown keys
// never leak into payloads.

type assetCodec struct {
	fields []string
	decode func(p map[string]any) domain.Asset
}

var assetCodecs = map[domain.AssetType]assetCodec{
	domain.TypeFQDN: {
		fields: []string{"name"},
		decode: func(p map[string]any) domain.Asset {
			return domain.FQDN{Name: stringProp(p, "name")}
		},
	},
	domain.TypeIPAddress: {
		fields: []string{"address", "type"},
		decode: func(p map[string]any) domain.Asset {
			return domain.IPAddress{Address: stringProp(p, "address"), Type: stringProp(p, "type")}
		},
	},
	domain.TypeNetblock: {
		fields: []string{"cidr", "type"},
		decode: func(p map[string]any) domain.Asset {
			return domain.Netblock{CIDR: stringProp(p, "cidr"), Type: stringProp(p, "type")}
		},
	},
	domain.TypeAutonomousSystem: {
		fields: []string{"number"},
		decode: func(p map[string]any) domain.Asset {
			return domain.AutonomousSystem{Number: intProp(p, "number")}
		},
	},
	domain.TypeService: {
		fields: []string{"identifier"},
		decode: func(p map[string]any) domain.Asset {
			return domain.Service{Identifier: stringProp(p, "identifier")}
		},
	},
}

type relationCodec struct {
	fields []string
	decode func(p map[string]any) domain.Relation
}

var relationCodecs = map[domain.RelationType]relationCodec{
	domain.TypeBasicDNSRelation: {
		fields: append([]string{"label"}, headerFields...),
		decode: func(p map[string]any) domain.Relation {
			return domain.BasicDNSRelation{Name: stringProp(p, "label"), Header: decodeHeader(p)}
		},
	},
	domain.TypePrefDNSRelation: {
		fields: append([]string{"label", "preference"}, headerFields...),
		decode: func(p map[string]any) domain.Relation {
			return domain.PrefDNSRelation{
				Name:       stringProp(p, "label"),
				Header:     decodeHeader(p),
				Preference: intProp(p, "preference"),
			}
		},
	},
	domain.TypeSRVDNSRelation: {
		fields: append([]string{"label", "priority", "weight", "port"}, headerFields...),
		decode: func(p map[string]any) domain.Relation {
			return domain.SRVDNSRelation{
				Name:     stringProp(p, "label"),
				Header:   decodeHeader(p),
				Priority: intProp(p, "priority"),
				Weight:   intProp(p, "weight"),
				Port:     intProp(p, "port"),
			}
		},
	},
	domain.TypePortRelation: {
		fields: []string{"label", "port_number", "protocol"},
		decode: func(p map[string]any) domain.Relation {
			return domain.PortRelation{
				Name:       stringProp(p, "label"),
				PortNumber: intProp(p, "port_number"),
				Protocol:   stringProp(p, "protocol"),
			}
		},
	},
	domain.TypeSimpleRelation: {
		fields: []string{"label"},
		decode: func(p map[string]any) domain.Relation {
			return domain.SimpleRelation{Name: stringProp(p, "label")}
		},
	},
}

type propertyCodec struct {
	fields []string
	decode func(p map[string]any) domain.Property
}

var propertyCodecs = map[domain.PropertyType]propertyCodec{
	domain.TypeDNSRecordProperty: {
		fields: append([]string{"property_name", "data"}, headerFields...),
		decode: func(p map[string]any) domain.Property {
			return domain.DNSRecordProperty{
				PropertyName: stringProp(p, "property_name"),
				Header:       decodeHeader(p),
				Data:         stringProp(p, "data"),
			}
		},
	},
	domain.TypeSimpleProperty: {
		fields: []string{"property_name", "property_value"},
		decode: func(p map[string]any) domain.Property {
			return domain.SimpleProperty{
				PropertyName:  stringProp(p, "property_name"),
				PropertyValue: stringProp(p, "property_value"),
			}
		},
	},
	domain.TypeSourceProperty: {
		fields: []string{"name", "confidence"},
		decode: func(p map[string]any) domain.Property {
			return domain.SourceProperty{
				Source:     stringProp(p, "name"),
				Confidence: intProp(p, "confidence"),
			}
		},
	},
	domain.TypeVulnProperty: {
		fields: []string{"vuln_id", "desc", "source", "category", "enum", "ref"},
		decode: func(p map[string]any) domain.Property {
			return domain.VulnProperty{
				ID:          stringProp(p, "vuln_id"),
				Description: stringProp(p, "desc"),
				Source:      stringProp(p, "source"),
				Category:    stringProp(p, "category"),
				Enum:        stringProp(p, "enum"),
				Ref:         stringProp(p, "ref"),
			}
		},
	},
}

// DecodeAsset reconstructs the asset variant named by etype from a flat
// property map.
func DecodeAsset(etype domain.AssetType, props map[string]any) (domain.Asset, error) {
	c, ok := assetCodecs[etype]
	if !ok {
		return nil, &DecodeError{Key: KeyEtype, Reason: fmt.Sprintf("unsupported asset type %q", etype)}
	}
	return c.decode(project(props, c.fields)), nil
}

// DecodeRelation reconstructs the relation variant named by etype.
func DecodeRelation(etype domain.RelationType, props map[string]any) (domain.Relation, error) {
	c, ok := relationCodecs[etype]
	if !ok {
		return nil, &DecodeError{Key: KeyEtype, Reason: fmt.Sprintf("unsupported relation type %q", etype)}
	}
	return c.decode(project(props, c.fields)), nil
}

// DecodeProperty reconstructs the property variant named by ttype.
func DecodeProperty(ttype domain.PropertyType, props map[string]any) (domain.Property, error) {
	c, ok := propertyCodecs[ttype]
	if !ok {
		return nil, &DecodeError{Key: KeyTtype, Reason: fmt.Sprintf("unsupported property type %q", ttype)}
	}
	return c.decode(project(props, c.fields)), nil
}

// DecodeEntity reconstructs a stored entity from its node properties.
func DecodeEntity(props map[string]any) (*domain.Entity, error) {
	id, err := requireString(props, KeyEntityID)
	if err != nil {
		return nil, err
	}
	createdAt, err := timeProp(props, KeyCreatedAt)
	if err != nil {
		return nil, err
	}
	updatedAt, err := timeProp(props, KeyUpdatedAt)
	if err != nil {
		return nil, err
	}
	etype, err := requireString(props, KeyEtype)
	if err != nil {
		return nil, err
	}
	asset, err := DecodeAsset(domain.AssetType(etype), props)
	if err != nil {
		return nil, err
	}
	return &domain.Entity{
		ID:        id,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Asset:     asset,
		Extra:     collectExtras(props),
	}, nil
}

// DecodeEdge reconstructs a stored edge from its relationship properties.
// The endpoint entities are left nil; the caller resolves them from the
// relationship's structural endpoints.
func DecodeEdge(props map[string]any) (*domain.Edge, error) {
	id, err := requireString(props, KeyEdgeID)
	if err != nil {
		return nil, err
	}
	createdAt, err := timeProp(props, KeyCreatedAt)
	if err != nil {
		return nil, err
	}
	updatedAt, err := timeProp(props, KeyUpdatedAt)
	if err != nil {
		return nil, err
	}
	etype, err := requireString(props, KeyEtype)
	if err != nil {
		return nil, err
	}
	relation, err := DecodeRelation(domain.RelationType(etype), props)
	if err != nil {
		return nil, err
	}
	return &domain.Edge{
		ID:        id,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Relation:  relation,
		Extra:     collectExtras(props),
	}, nil
}

// DecodeTag reconstructs a stored tag envelope from its node properties.
// ownerKey selects which identifier field names the owner.
func DecodeTag(ownerKey string, props map[string]any) (TagRecord, error) {
	id, err := requireString(props, KeyTagID)
	if err != nil {
		return TagRecord{}, err
	}
	ownerID, err := requireString(props, ownerKey)
	if err != nil {
		return TagRecord{}, err
	}
	createdAt, err := timeProp(props, KeyCreatedAt)
	if err != nil {
		return TagRecord{}, err
	}
	updatedAt, err := timeProp(props, KeyUpdatedAt)
	if err != nil {
		return TagRecord{}, err
	}
	ttype, err := requireString(props, KeyTtype)
	if err != nil {
		return TagRecord{}, err
	}
	prop, err := DecodeProperty(domain.PropertyType(ttype), props)
	if err != nil {
		return TagRecord{}, err
	}
	return TagRecord{
		ID:        id,
		OwnerID:   ownerID,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Property:  prop,
		Extra:     collectExtras(props),
	}, nil
}
