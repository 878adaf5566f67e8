package registry

import (
	"context"

	"github.com/intentwire/intents-bridge/pkg/intent"
	"github.com/intentwire/intents-bridge/pkg/manifest"
	"github.com/intentwire/intents-bridge/pkg/platform"
)

// noopHandler succeeds with no payload.
func noopHandler(_ context.Context, _ intent.Params) (*intent.Result, error) {
	return intent.Successful(nil), nil
}

func getCounterDescriptor() intent.Descriptor {
	return intent.Descriptor{
		Identifier:          "get_counter",
		Title:               "Get Counter",
		IsEligibleForSearch: true,
	}
}

func incrementCounterDescriptor() intent.Descriptor {
	return intent.Descriptor{
		Identifier: "increment_counter",
		Title:      "Increment Counter",
		Parameters: []intent.Parameter{
			{Name: "amount", Type: intent.TypeInteger, IsOptional: true, DefaultValue: int64(1)},
		},
		IsEligibleForPrediction: true,
	}
}

func orderCoffeeDescriptor() intent.Descriptor {
	return intent.Descriptor{
		Identifier: "order_coffee",
		Title:      "Order Coffee",
		Parameters: []intent.Parameter{
			{Name: "drink", Type: intent.TypeString},
			{Name: "amount", Type: intent.TypeInteger, IsOptional: true, DefaultValue: int64(1)},
		},
	}
}

// testManifest resolves a manifest whose compiled set matches the default
// embedded manifest (get_counter, increment_counter, order_coffee,
// open_settings).
func testManifest() *manifest.Resolved {
	return manifest.CreateResolvedManifest(manifest.GetDefaultManifestConfig())
}

func testHost(osName, version string) *platform.Host {
	h, err := platform.NewHost(osName, version)
	if err != nil {
		panic(err)
	}
	return h
}
