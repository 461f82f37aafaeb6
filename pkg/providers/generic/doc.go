// Package generic serves deployments of kind "openai-compatible": any server
// that implements the OpenAI chat and completions endpoints. It shares the
// openai dialect but does not require a credential.
package generic
