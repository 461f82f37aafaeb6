// Package strategies implements the primary-candidate selection strategies
// used by the router.
package strategies

import (
	"github.com/igamenovoer/my-litellm-proxy/pkg/routing"
)

// Strategy names as they appear in router_settings.routing_strategy.
const (
	NameSimpleShuffle = "simple-shuffle"
	NameRoundRobin    = "round-robin"
	NameLeastBusy     = "least-busy"
	NameLatencyBased  = "latency-based-routing"
)

// Names lists every supported strategy.
var Names = []string{NameSimpleShuffle, NameRoundRobin, NameLeastBusy, NameLatencyBased}

// New returns the strategy registered under name. An empty name selects
// simple-shuffle.
func New(name string) (routing.Strategy, error) {
	switch name {
	case "", NameSimpleShuffle:
		return NewWeightedRandomStrategy(nil), nil
	case NameRoundRobin:
		return NewRoundRobinStrategy(), nil
	case NameLeastBusy:
		return NewLeastBusyStrategy(), nil
	case NameLatencyBased:
		return NewLatencyStrategy(), nil
	default:
		return nil, &routing.InvalidStrategyError{Strategy: name, AvailableStrategies: Names}
	}
}
