package domain

import "fmt"

// AssetType discriminates the concrete Asset variant. The value is stored
// on entity nodes under the "etype" key and drives decoding.
type AssetType string

const (
	TypeFQDN             AssetType = "FQDN"
	TypeIPAddress        AssetType = "IPAddress"
	TypeNetblock         AssetType = "Netblock"
	TypeAutonomousSystem AssetType = "AutonomousSystem"
	TypeService          AssetType = "Service"
)

// Asset is an observed piece of attack-surface data. Assets are immutable
// once constructed and have no freshness model: two assets with equal
// declared fields are the same asset.
type Asset interface {
	// AssetType returns the variant discriminator.
	AssetType() AssetType

	// Key returns a human-readable identity string, used by loaders and
	// logs. It is not the storage identifier.
	Key() string

	// Props projects the declared fields to a flat key/value map.
	Props() map[string]any
}

// FQDN is a fully qualified domain name.
type FQDN struct {
	Name string
}

func (f FQDN) AssetType() AssetType { return TypeFQDN }
func (f FQDN) Key() string          { return f.Name }

func (f FQDN) Props() map[string]any {
	return map[string]any{"name": f.Name}
}

// Address type values for IPAddress.
const (
	IPv4 = "IPv4"
	IPv6 = "IPv6"
)

// IPAddress is a single IP address.
type IPAddress struct {
	Address string
	Type    string
}

func (a IPAddress) AssetType() AssetType { return TypeIPAddress }
func (a IPAddress) Key() string          { return a.Address }

func (a IPAddress) Props() map[string]any {
	return map[string]any{"address": a.Address, "type": a.Type}
}

// Netblock is a CIDR range of addresses.
type Netblock struct {
	CIDR string
	Type string
}

func (n Netblock) AssetType() AssetType { return TypeNetblock }
func (n Netblock) Key() string          { return n.CIDR }

func (n Netblock) Props() map[string]any {
	return map[string]any{"cidr": n.CIDR, "type": n.Type}
}

// AutonomousSystem is a routing AS identified by number.
type AutonomousSystem struct {
	Number int
}

func (a AutonomousSystem) AssetType() AssetType { return TypeAutonomousSystem }
func (a AutonomousSystem) Key() string          { return fmt.Sprintf("AS%d", a.Number) }

func (a AutonomousSystem) Props() map[string]any {
	return map[string]any{"number": a.Number}
}

// Service is a network service exposed by a host.
type Service struct {
	Identifier string
}

func (s Service) AssetType() AssetType { return TypeService }
func (s Service) Key() string          { return s.Identifier }

func (s Service) Props() map[string]any {
	return map[string]any{"identifier": s.Identifier}
}
