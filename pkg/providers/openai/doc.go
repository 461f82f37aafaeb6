// Package openai implements the OpenAI upstream dialect.
//
// Requests go to {api_base}/chat/completions or {api_base}/completions with
// an "Authorization: Bearer" header. Bodies are forwarded untouched apart
// from the model field, which the dispatcher rewrites before the call.
//
//	p, err := openai.NewProvider(dep, client, creds)
//	if err != nil {
//	    return err
//	}
//	resp, err := p.Send(ctx, providers.OpChatCompletions, body)
//
// The generic package reuses this dialect for OpenAI-compatible servers
// that accept requests without a key.
package openai
