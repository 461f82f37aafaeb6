// Package providers implements the upstream side of the gateway: one HTTP
// exchange with one deployment per call.
//
// # Overview
//
// A Provider forwards a raw JSON body to a deployment and returns the raw
// reply. Nothing is re-encoded, so fields the gateway does not know about
// reach the upstream untouched and upstream error bodies reach the client
// untouched. Retries and fallback are not done here; the dispatcher owns
// them.
//
// # Architecture
//
//  1. Provider and StreamReader interfaces
//  2. HTTPProvider, the shared implementation (pooled client, error mapping)
//  3. Dialects for each provider kind: openai, generic (OpenAI-compatible)
//     and azure
//  4. providerfactory, which keeps one Provider per deployment
//
// # Errors
//
// Failures are typed so the dispatcher can classify them:
//
//   - *ProviderError: non-2xx reply with status, headers and body
//   - *TimeoutError: the attempt deadline passed
//   - *ConnectionError: the upstream could not be reached or the connection broke
//   - *ParseError: a 2xx body or stream event that is not JSON
//   - *StreamError: an error event inside a stream
//
// Caller cancellation is returned as a wrapped context.Canceled.
//
// # Streaming
//
//	stream, err := p.Stream(ctx, providers.OpChatCompletions, body)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for {
//	    event, err := stream.Recv()
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    forward(event)
//	}
package providers
