// Package connector implements the keyword-dispatched service connectors and
// their first-match-wins dispatcher. Connectors are simulated executors:
// real side effects belong to the downstream service.
package connector

import (
	"strings"

	contractx "github.com/relaylabs/relay/agent/contract"
)

// Build maps every descriptor to a connector. Unknown categories get a
// generic placeholder so the descriptor still shows up in capability
// listings even though dispatch never selects it.
func Build(descriptors []contractx.CapabilityDescriptor) []contractx.Connector {
	connectors := make([]contractx.Connector, 0, len(descriptors))
	for _, desc := range descriptors {
		switch strings.ToLower(desc.Category) {
		case "payment":
			connectors = append(connectors, &Payment{descriptor: desc})
		case "communication":
			connectors = append(connectors, &Communication{descriptor: desc})
		default:
			connectors = append(connectors, &Generic{descriptor: desc})
		}
	}
	return connectors
}

// Find returns the first connector whose CanHandle accepts the command,
// scanning in registration order. Returns nil when nothing matches.
func Find(connectors []contractx.Connector, command string) contractx.Connector {
	for _, c := range connectors {
		if c.CanHandle(command) {
			return c
		}
	}
	return nil
}

// Names lists connector display names for no_service_found responses.
func Names(connectors []contractx.Connector) []string {
	names := make([]string, 0, len(connectors))
	for _, c := range connectors {
		names = append(names, c.Descriptor().Name)
	}
	return names
}

// ServiceInfo is the introspection view of one connector.
type ServiceInfo struct {
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Capabilities []string `json:"capabilities"`
}

// Describe returns the capability listing for a connector set.
func Describe(connectors []contractx.Connector) []ServiceInfo {
	infos := make([]ServiceInfo, 0, len(connectors))
	for _, c := range connectors {
		infos = append(infos, ServiceInfo{
			Name:         c.Descriptor().Name,
			Category:     c.Descriptor().Category,
			Capabilities: capabilities(c),
		})
	}
	return infos
}

func capabilities(c contractx.Connector) []string {
	switch c.(type) {
	case *Payment:
		return []string{"Process payments", "Handle refunds", "Manage transactions"}
	case *Communication:
		return []string{"Send messages", "Make calls", "Handle communications"}
	default:
		return []string{"Execute service commands"}
	}
}

func containsAny(command string, keywords []string) bool {
	lowered := strings.ToLower(command)
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
