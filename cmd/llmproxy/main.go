// llmproxy is an OpenAI-compatible gateway that spreads completion requests
// over a pool of upstream deployments.
//
// Deployments serving the same model name form a model group. Each request
// is routed to a healthy deployment of its group and falls back to the
// others when an upstream fails, while a per-deployment circuit breaker
// keeps failing upstreams out of rotation.
//
// Usage:
//
//	# Start the gateway with config.yaml
//	llmproxy run
//
//	# Start with a custom configuration and reload it on change
//	llmproxy run --config /etc/llmproxy/config.yaml --watch
//
//	# Check a configuration file
//	llmproxy validate --config config.yaml
//
//	# Mint a virtual key signed by the master key
//	llmproxy keys generate --alias team-a --models gpt-4
//
//	# Export the audit log
//	llmproxy audit export --since 24h --format csv
package main

func main() {
	Execute()
}
