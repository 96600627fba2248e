// Package services provides the capability-descriptor sources an agent can
// be wired with: the server HTTP API or the product Postgres database.
package services

import (
	"context"

	contractx "github.com/relaylabs/relay/agent/contract"
	serverapix "github.com/relaylabs/relay/pkg/serverapi"
)

// APISource adapts the server HTTP client to the descriptor-source port.
type APISource struct {
	client *serverapix.Client
}

func NewAPISource(client *serverapix.Client) *APISource {
	return &APISource{client: client}
}

func (s *APISource) UserCapabilities(ctx context.Context, userID int64) ([]contractx.CapabilityDescriptor, error) {
	services, err := s.client.UserServices(ctx, userID)
	if err != nil {
		return nil, err
	}

	descriptors := make([]contractx.CapabilityDescriptor, 0, len(services))
	for _, svc := range services {
		descriptors = append(descriptors, contractx.CapabilityDescriptor{
			ID:       svc.ID,
			Name:     svc.Name,
			Category: svc.Type,
		})
	}
	return descriptors, nil
}

// APISink adapts the server HTTP client to the message-sink port.
type APISink struct {
	client *serverapix.Client
}

func NewAPISink(client *serverapix.Client) *APISink {
	return &APISink{client: client}
}

func (s *APISink) SendMessage(ctx context.Context, recipientID int64, content string) error {
	return s.client.SendMessage(ctx, recipientID, content)
}
