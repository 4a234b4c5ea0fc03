package domain

import "strings"

// Validator decides whether a relation with the given label and type may
// point from one asset type to another. Pure predicate, no I/O.
type Validator func(from AssetType, label string, rtype RelationType, to AssetType) bool

type taxonomyRule struct {
	from  AssetType
	label string
	rtype RelationType
	to    AssetType
}

// The default relationship taxonomy. Label matching is case-insensitive.
var taxonomyRules = []taxonomyRule{
	{TypeFQDN, "dns_record", TypeBasicDNSRelation, TypeIPAddress},
	{TypeFQDN, "dns_record", TypeBasicDNSRelation, TypeFQDN},
	{TypeFQDN, "dns_record", TypePrefDNSRelation, TypeFQDN},
	{TypeFQDN, "dns_record", TypeSRVDNSRelation, TypeFQDN},
	{TypeFQDN, "node", TypeSimpleRelation, TypeFQDN},
	{TypeFQDN, "port", TypePortRelation, TypeService},
	{TypeIPAddress, "port", TypePortRelation, TypeService},
	{TypeIPAddress, "ptr_record", TypeBasicDNSRelation, TypeFQDN},
	{TypeNetblock, "contains", TypeSimpleRelation, TypeIPAddress},
	{TypeAutonomousSystem, "announces", TypeSimpleRelation, TypeNetblock},
}

// ValidRelationship reports whether the triple is legal under the default
// taxonomy.
func ValidRelationship(from AssetType, label string, rtype RelationType, to AssetType) bool {
	for _, r := range taxonomyRules {
		if r.from == from && r.rtype == rtype && r.to == to &&
			strings.EqualFold(r.label, label) {
			return true
		}
	}
	return false
}
