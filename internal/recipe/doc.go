// Package recipe asks a chat-completions model for a recipe built from
// pantry items.
//
// Suggest never surfaces a remote failure to the caller. Transport errors,
// non-2xx responses and empty completions are logged and replaced by
// FallbackMessage. Requests are not retried.
package recipe
