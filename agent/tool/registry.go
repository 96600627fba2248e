// Package tool constructs the callable tools offered to the reasoning
// provider from capability descriptors. The keyword connector path stays the
// guaranteed fallback; these tools only exist on the provider path.
package tool

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	contractx "github.com/relaylabs/relay/agent/contract"
)

// Category is the closed set of builtin tool categories. Unknown categories
// still get a generic tool tagged with the original string.
type Category string

const (
	CategoryPayment       Category = "payment"
	CategoryCommunication Category = "communication"
	CategoryEmail         Category = "email"
	CategorySMS           Category = "sms"
	CategoryStripe        Category = "stripe"
	CategoryTwilio        Category = "twilio"
)

// ParseCategory matches a descriptor category exactly against the builtin
// set.
func ParseCategory(s string) (Category, bool) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryPayment:
		return CategoryPayment, true
	case CategoryCommunication:
		return CategoryCommunication, true
	case CategoryEmail:
		return CategoryEmail, true
	case CategorySMS:
		return CategorySMS, true
	case CategoryStripe:
		return CategoryStripe, true
	case CategoryTwilio:
		return CategoryTwilio, true
	default:
		return "", false
	}
}

type builder func(desc contractx.CapabilityDescriptor) builtTool

type builtTool struct {
	spec contractx.ToolSpec
	run  func(ctx context.Context, args map[string]any) contractx.Result
}

var builders = map[Category]builder{
	CategoryPayment:       buildPaymentTool,
	CategoryStripe:        buildPaymentTool,
	CategoryCommunication: buildCommunicationTool,
	CategoryTwilio:        buildCommunicationTool,
	CategoryEmail:         buildEmailTool,
	CategorySMS:           buildSMSTool,
}

// Ordered name-substring fallback rules, tried only when the category has no
// exact match. First hit wins.
var nameRules = []struct {
	substr  string
	builder builder
}{
	{"stripe", buildPaymentTool},
	{"paypal", buildPaymentTool},
	{"twilio", buildCommunicationTool},
	{"sendgrid", buildEmailTool},
	{"slack", buildCommunicationTool},
}

// Build constructs one tool per descriptor: exact category match first, then
// the name-substring rules, then the generic echo tool.
func Build(descriptors []contractx.CapabilityDescriptor) contractx.ToolSet {
	tools := make(map[string]builtTool, len(descriptors))
	specs := make([]contractx.ToolSpec, 0, len(descriptors))

	for _, desc := range descriptors {
		t := createFor(desc)
		tools[t.spec.Name] = t
		specs = append(specs, t.spec)
	}

	return contractx.ToolSet{
		Specs: specs,
		Execute: func(ctx context.Context, name string, args map[string]any) contractx.Result {
			t, ok := tools[name]
			if !ok {
				return contractx.Failed("tool_failed",
					fmt.Sprintf("unknown tool: %s", name),
					"The requested tool is not available for this user.")
			}
			return t.run(ctx, args)
		},
	}
}

func createFor(desc contractx.CapabilityDescriptor) builtTool {
	if cat, ok := ParseCategory(desc.Category); ok {
		return builders[cat](desc)
	}

	lowered := strings.ToLower(desc.Name)
	for _, rule := range nameRules {
		if strings.Contains(lowered, rule.substr) {
			return rule.builder(desc)
		}
	}

	return buildGenericTool(desc)
}

var toolNameSanitizer = regexp.MustCompile(`[^a-z0-9_]+`)

// toolName derives a unique, provider-safe tool identifier. Descriptor IDs
// keep duplicate categories apart.
func toolName(prefix string, desc contractx.CapabilityDescriptor) string {
	cleaned := toolNameSanitizer.ReplaceAllString(strings.ToLower(prefix), "_")
	cleaned = strings.Trim(cleaned, "_")
	if cleaned == "" {
		cleaned = "service"
	}
	return fmt.Sprintf("%s_%d", cleaned, desc.ID)
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

func floatArg(args map[string]any, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func schemaObject(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
