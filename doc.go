// Package gatekit is a local-first entitlement engine: feature tiers,
// rolling usage limits, cached license verification, trial lifecycle and
// a feature gate that ties them together.
//
// The subpackages under pkg/ are independently usable; this root package
// adds an Engine that wires them from an env-tagged Config:
//
//	cfg, err := gatekit.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	registry := feature.NewRegistry(
//		feature.Descriptor{ID: "export_csv", Tier: feature.TierFree},
//		feature.Descriptor{ID: "bulk_edit", Tier: feature.TierPro},
//	)
//
//	engine, err := gatekit.New(ctx, cfg, registry, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close(ctx)
//
//	if engine.Gate.IsAvailable(ctx, "bulk_edit") {
//		// ...
//	}
package gatekit
