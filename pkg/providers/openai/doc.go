// Package openai implements the OpenAI-dialect upstream provider.
package openai
