// Package llm contains adapters for invoking large language models. It
// abstracts away provider-specific APIs behind a tiered completion interface
// and ships the defensive JSON extraction used whenever a workflow expects a
// structured payload inside free-form model output.
package llm
