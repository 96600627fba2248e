package connector

import (
	"context"
	"fmt"

	contractx "github.com/relaylabs/relay/agent/contract"
)

// Generic is the placeholder connector for descriptors whose category has no
// keyword handler. CanHandle is always false, so dispatch never selects it;
// it exists only so every descriptor maps to some connector for listing.
type Generic struct {
	descriptor contractx.CapabilityDescriptor
}

func (g *Generic) Descriptor() contractx.CapabilityDescriptor { return g.descriptor }

func (g *Generic) CanHandle(string) bool { return false }

func (g *Generic) Execute(_ context.Context, command string, _ map[string]any) contractx.Result {
	return contractx.Failed("command_failed",
		fmt.Sprintf("no handler for command: %s", command),
		fmt.Sprintf("%s cannot execute commands directly.", g.descriptor.Name))
}
