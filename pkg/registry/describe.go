package registry

import (
	"fmt"

	"github.com/intentwire/intents-bridge/pkg/intent"
)

// Describe returns the full descriptor for one intent together with its
// compiled and discoverability state.
func (r *Registry) Describe(identifier string) (*DescribeOutput, *intent.Error) {
	reg, ok := r.Lookup(identifier)
	if !ok {
		return nil, &intent.Error{
			Code:    intent.CodeUnknownIntent,
			Message: fmt.Sprintf("no intent registered with identifier %q", identifier),
			Intent:  identifier,
		}
	}

	binding := r.bindingFor(reg.Descriptor)
	return &DescribeOutput{
		Descriptor:   reg.Descriptor,
		Compiled:     binding.Reason != ReasonNotCompiled,
		Discoverable: binding.Discoverable,
		Reason:       binding.Reason,
	}, nil
}
