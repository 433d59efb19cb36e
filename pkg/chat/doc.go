// Package chat builds validated chat-completion requests.
//
// A [Request] can only be obtained through [NewRequest], which rejects
// invalid input with an invalid_request [api.APIError] before anything is
// sent over the network. Requests are immutable: accessors return copies.
package chat
